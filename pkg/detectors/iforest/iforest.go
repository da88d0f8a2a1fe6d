// Package iforest implements the Isolation Forest anomaly detector.
//
// Anomalies are isolated in fewer random splits than normal points, so
// the average path length to a sample across a forest of random trees
// is a direct anomaly signal. Trees are stored as flat node pools to
// keep the trained model compact and cheap to serialize.
package iforest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/rkaram/svmguard/pkg/detectors"
)

// eulerMascheroni is used in the harmonic-number approximation of the
// expected path length of an unsuccessful BST search.
const eulerMascheroni = 0.5772156649

// tree is a flat pool of nodes; index 0 is the root.
type tree struct {
	Nodes []treeNode
}

// treeNode is one split or leaf. Left/Right are indexes into the pool;
// -1 marks a leaf.
type treeNode struct {
	Feature int
	Split   float64
	Left    int
	Right   int
	Size    int
}

// Forest is an Isolation Forest anomaly detector.
type Forest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	maxDepth      int
	rng           *rand.Rand

	// Trained model
	dim      int
	trees    []tree
	expected float64
	trained  bool
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size each tree is built from.
func WithSampleSize(n int) Option {
	return func(f *Forest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies, used to
// pick the score threshold after training.
func WithContamination(c float64) Option {
	return func(f *Forest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	cfg := detectors.DefaultConfig()

	f := &Forest{
		nTrees:        100,
		sampleSize:    256,
		contamination: cfg.Contamination,
		threshold:     cfg.Threshold,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))

	return f
}

// Fit builds the forest from the provided samples.
func (f *Forest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	dim := len(data[0])
	for i, row := range data {
		if len(row) != dim {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), dim)
		}
	}
	f.dim = dim

	size := f.sampleSize
	if size > len(data) {
		size = len(data)
	}

	f.trees = make([]tree, f.nTrees)
	for i := range f.trees {
		sample := make([][]float64, size)
		for j, idx := range f.rng.Perm(len(data))[:size] {
			sample[j] = data[idx]
		}
		f.trees[i] = f.grow(sample)
	}

	f.expected = expectedPathLength(float64(size))
	if f.expected == 0 {
		// Degenerate subsample of one: avoid a zero normalizer.
		f.expected = 1
	}
	f.trained = true

	if f.contamination > 0 {
		scores := make([]float64, len(data))
		for i, row := range data {
			scores[i] = f.score(row)
		}
		sort.Float64s(scores)
		f.threshold = stat.Quantile(1-f.contamination, stat.Empirical, scores, nil)
	}

	return nil
}

// grow builds one isolation tree over the subsample.
func (f *Forest) grow(sample [][]float64) tree {
	t := tree{}
	f.split(&t, sample, 0)
	return t
}

// split appends the node for the given partition and returns its pool
// index, recursing into both sides of a random split.
func (f *Forest) split(t *tree, part [][]float64, depth int) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{Left: -1, Right: -1, Size: len(part)})

	if depth >= f.maxDepth || len(part) <= 1 {
		return idx
	}

	feature := f.rng.Intn(f.dim)
	lo, hi := part[0][feature], part[0][feature]
	for _, row := range part[1:] {
		if row[feature] < lo {
			lo = row[feature]
		}
		if row[feature] > hi {
			hi = row[feature]
		}
	}
	if lo == hi {
		return idx
	}

	value := lo + f.rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range part {
		if row[feature] < value {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	// Recurse before storing child indexes: both calls append to the
	// pool and may reallocate it.
	leftIdx := f.split(t, left, depth+1)
	rightIdx := f.split(t, right, depth+1)

	t.Nodes[idx].Feature = feature
	t.Nodes[idx].Split = value
	t.Nodes[idx].Left = leftIdx
	t.Nodes[idx].Right = rightIdx
	return idx
}

// Predict returns anomaly scores in [0, 1] for the given samples.
func (f *Forest) Predict(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, sample := range data {
		if len(sample) != f.dim {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(sample), f.dim)
		}
		scores[i] = f.score(sample)
	}
	return scores, nil
}

// PredictOne returns the anomaly score for a single sample.
func (f *Forest) PredictOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return 0, errors.New("model not trained")
	}
	if len(sample) != f.dim {
		return 0, fmt.Errorf("sample has %d features, want %d", len(sample), f.dim)
	}
	return f.score(sample), nil
}

// score is 2^(-E[path]/c(n)): near 1 for quickly isolated samples,
// well below for ordinary ones.
func (f *Forest) score(sample []float64) float64 {
	var total float64
	for i := range f.trees {
		total += f.trees[i].pathLength(sample)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/f.expected)
}

// pathLength walks the tree until the sample reaches a leaf.
func (t *tree) pathLength(sample []float64) float64 {
	depth := 0
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return float64(depth) + expectedPathLength(float64(n.Size))
		}
		if sample[n.Feature] < n.Split {
			idx = n.Left
		} else {
			idx = n.Right
		}
		depth++
	}
}

// expectedPathLength is c(n), the average path length of an
// unsuccessful search in a BST of n nodes.
func expectedPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerMascheroni) - 2*(n-1)/n
}

// PredictStream scores samples from a channel until it closes or the
// context is cancelled.
func (f *Forest) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Detection) error {
	f.mu.RLock()
	trained := f.trained
	f.mu.RUnlock()

	if !trained {
		return errors.New("model not trained")
	}
	return detectors.RunStream(ctx, f, input, output)
}

// Threshold returns the current anomaly threshold.
func (f *Forest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold updates the anomaly threshold.
func (f *Forest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// model is the gob-serialized form of a trained forest.
type model struct {
	NTrees        int
	SampleSize    int
	Contamination float64
	Threshold     float64
	Dim           int
	Trees         []tree
	Expected      float64
}

// Save serializes the trained model.
func (f *Forest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	m := model{
		NTrees:        f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		Dim:           f.dim,
		Trees:         f.trees,
		Expected:      f.expected,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (f *Forest) Load(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var m model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return err
	}

	f.nTrees = m.NTrees
	f.sampleSize = m.SampleSize
	f.contamination = m.Contamination
	f.threshold = m.Threshold
	f.dim = m.Dim
	f.trees = m.Trees
	f.expected = m.Expected
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.trained = true

	return nil
}
