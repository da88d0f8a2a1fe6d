// Package ocsvm implements a one-class support vector machine for
// unsupervised anomaly detection.
//
// The detector learns the boundary of the training distribution using
// the nu-formulation of the one-class SVM. The RBF kernel is
// approximated with an explicit random Fourier feature map, so training
// reduces to stochastic subgradient descent on a linear objective and
// scoring a sample is a single dot product.
package ocsvm

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

// Kernel selects the feature map used by the detector.
type Kernel int

const (
	// KernelRBF approximates the Gaussian kernel exp(-gamma*|x-y|^2)
	// with random Fourier features.
	KernelRBF Kernel = iota
	// KernelLinear scores samples in the input space directly.
	KernelLinear
)

// OneClassSVM is a one-class SVM anomaly detector.
type OneClassSVM struct {
	mu sync.RWMutex

	// Configuration
	nu            float64
	gamma         float64
	nFeatures     int
	kernel        Kernel
	epochs        int
	learnRate     float64
	contamination float64
	threshold     float64
	rng           *rand.Rand

	// Trained model
	dim     int
	omega   [][]float64 // random Fourier projection, nFeatures x dim
	phase   []float64   // random Fourier phases, nFeatures
	weights []float64
	rho     float64
	scale   float64
	trained bool
}

// Option configures a OneClassSVM.
type Option func(*OneClassSVM)

// WithNu sets the nu parameter, an upper bound on the fraction of
// training samples treated as outliers. Must be in (0, 1].
func WithNu(nu float64) Option {
	return func(s *OneClassSVM) {
		s.nu = nu
	}
}

// WithGamma sets the RBF kernel bandwidth. Zero means 1/dim, chosen
// at fit time.
func WithGamma(gamma float64) Option {
	return func(s *OneClassSVM) {
		s.gamma = gamma
	}
}

// WithFourierFeatures sets the dimensionality of the random Fourier
// feature map used to approximate the RBF kernel.
func WithFourierFeatures(n int) Option {
	return func(s *OneClassSVM) {
		s.nFeatures = n
	}
}

// WithLinearKernel disables the Fourier map and trains in input space.
func WithLinearKernel() Option {
	return func(s *OneClassSVM) {
		s.kernel = KernelLinear
	}
}

// WithEpochs sets the number of passes over the training data.
func WithEpochs(n int) Option {
	return func(s *OneClassSVM) {
		s.epochs = n
	}
}

// WithLearningRate sets the base SGD step size.
func WithLearningRate(lr float64) Option {
	return func(s *OneClassSVM) {
		s.learnRate = lr
	}
}

// WithContamination sets the expected proportion of anomalies, used to
// pick the score threshold after training.
func WithContamination(c float64) Option {
	return func(s *OneClassSVM) {
		s.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(s *OneClassSVM) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a OneClassSVM with the given options.
func New(opts ...Option) *OneClassSVM {
	cfg := detectors.DefaultConfig()

	s := &OneClassSVM{
		nu:            0.1,
		nFeatures:     128,
		kernel:        KernelRBF,
		epochs:        20,
		learnRate:     0.1,
		contamination: cfg.Contamination,
		threshold:     cfg.Threshold,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fit trains the detector on the provided samples. All rows must share
// the same dimensionality.
func (s *OneClassSVM) Fit(data [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}
	if s.nu <= 0 || s.nu > 1 {
		return fmt.Errorf("nu must be in (0, 1], got %v", s.nu)
	}

	dim := len(data[0])
	for i, row := range data {
		if len(row) != dim {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), dim)
		}
	}

	s.dim = dim
	if s.gamma == 0 {
		s.gamma = 1 / float64(dim)
	}
	if s.kernel == KernelRBF {
		s.initFourierMap()
	}

	s.train(data)

	// Calibrate the score squash against the spread of training
	// decision values, then pick the threshold at the contamination
	// percentile of training scores.
	decisions := make([]float64, len(data))
	for i, row := range data {
		decisions[i] = s.decision(s.featurize(row))
	}
	s.scale = stat.StdDev(decisions, nil)
	if s.scale < 1e-12 || math.IsNaN(s.scale) {
		s.scale = 1
	}

	s.trained = true

	if s.contamination > 0 {
		scores := make([]float64, len(decisions))
		for i, d := range decisions {
			scores[i] = s.squash(d)
		}
		sort.Float64s(scores)
		s.threshold = stat.Quantile(1-s.contamination, stat.Empirical, scores, nil)
	}

	return nil
}

// initFourierMap draws the random projection approximating the RBF
// kernel: rows of omega are N(0, 2*gamma), phases are U[0, 2*pi).
func (s *OneClassSVM) initFourierMap() {
	sigma := math.Sqrt(2 * s.gamma)

	s.omega = make([][]float64, s.nFeatures)
	s.phase = make([]float64, s.nFeatures)
	for j := 0; j < s.nFeatures; j++ {
		row := make([]float64, s.dim)
		for k := range row {
			row[k] = s.rng.NormFloat64() * sigma
		}
		s.omega[j] = row
		s.phase[j] = s.rng.Float64() * 2 * math.Pi
	}
}

// train runs stochastic subgradient descent on the nu-formulation
//
//	min (1/2)|w|^2 - rho + (1/(nu*n)) sum max(0, rho - w.z_i)
//
// with a decaying step size.
func (s *OneClassSVM) train(data [][]float64) {
	featured := make([][]float64, len(data))
	for i, row := range data {
		featured[i] = s.featurize(row)
	}

	s.weights = make([]float64, len(featured[0]))
	s.rho = 0

	step := 1
	for epoch := 0; epoch < s.epochs; epoch++ {
		for _, i := range s.rng.Perm(len(featured)) {
			z := featured[i]
			eta := s.learnRate / math.Sqrt(float64(step))
			step++

			violated := dot(s.weights, z) < s.rho

			for k := range s.weights {
				s.weights[k] *= 1 - eta
				if violated {
					s.weights[k] += eta / s.nu * z[k]
				}
			}

			if violated {
				s.rho += eta * (1 - 1/s.nu)
			} else {
				s.rho += eta
			}
		}
	}
}

// Predict returns anomaly scores in [0, 1] for the given samples.
func (s *OneClassSVM) Predict(data [][]float64) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, sample := range data {
		score, err := s.predictOne(sample)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

// PredictOne returns the anomaly score for a single sample.
func (s *OneClassSVM) PredictOne(sample []float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return 0, errors.New("model not trained")
	}
	return s.predictOne(sample)
}

func (s *OneClassSVM) predictOne(sample []float64) (float64, error) {
	if len(sample) != s.dim {
		return 0, fmt.Errorf("sample has %d features, want %d", len(sample), s.dim)
	}
	return s.squash(s.decision(s.featurize(sample))), nil
}

// Decision returns the raw margin w.phi(x) - rho. Positive values lie
// inside the learned region, negative values outside.
func (s *OneClassSVM) Decision(sample []float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return 0, errors.New("model not trained")
	}
	if len(sample) != s.dim {
		return 0, fmt.Errorf("sample has %d features, want %d", len(sample), s.dim)
	}
	return s.decision(s.featurize(sample)), nil
}

func (s *OneClassSVM) decision(z []float64) float64 {
	return dot(s.weights, z) - s.rho
}

// squash maps a decision value to an anomaly score in [0, 1]. Samples
// on the boundary score 0.5, samples far outside approach 1.
func (s *OneClassSVM) squash(decision float64) float64 {
	return 1 / (1 + math.Exp(decision/s.scale))
}

// featurize maps a sample into the space the SVM is trained in.
func (s *OneClassSVM) featurize(sample []float64) []float64 {
	if s.kernel == KernelLinear {
		z := make([]float64, len(sample))
		copy(z, sample)
		return z
	}

	norm := math.Sqrt(2 / float64(s.nFeatures))
	z := make([]float64, s.nFeatures)
	for j := 0; j < s.nFeatures; j++ {
		z[j] = norm * math.Cos(dot(s.omega[j], sample)+s.phase[j])
	}
	return z
}

// PredictStream scores samples from a channel until it closes or the
// context is cancelled.
func (s *OneClassSVM) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Detection) error {
	s.mu.RLock()
	trained := s.trained
	s.mu.RUnlock()

	if !trained {
		return errors.New("model not trained")
	}
	return detectors.RunStream(ctx, s, input, output)
}

// Threshold returns the current anomaly threshold.
func (s *OneClassSVM) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetThreshold updates the anomaly threshold.
func (s *OneClassSVM) SetThreshold(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = t
}

// model is the gob-serialized form of a trained detector.
type model struct {
	Nu            float64
	Gamma         float64
	NFeatures     int
	Kernel        Kernel
	Contamination float64
	Threshold     float64
	Dim           int
	Omega         [][]float64
	Phase         []float64
	Weights       []float64
	Rho           float64
	Scale         float64
}

// Save serializes the trained model.
func (s *OneClassSVM) Save() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return nil, errors.New("model not trained")
	}

	m := model{
		Nu:            s.nu,
		Gamma:         s.gamma,
		NFeatures:     s.nFeatures,
		Kernel:        s.kernel,
		Contamination: s.contamination,
		Threshold:     s.threshold,
		Dim:           s.dim,
		Omega:         s.omega,
		Phase:         s.phase,
		Weights:       s.weights,
		Rho:           s.rho,
		Scale:         s.scale,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (s *OneClassSVM) Load(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return err
	}

	s.nu = m.Nu
	s.gamma = m.Gamma
	s.nFeatures = m.NFeatures
	s.kernel = m.Kernel
	s.contamination = m.Contamination
	s.threshold = m.Threshold
	s.dim = m.Dim
	s.omega = m.Omega
	s.phase = m.Phase
	s.weights = m.Weights
	s.rho = m.Rho
	s.scale = m.Scale
	s.trained = true

	return nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
