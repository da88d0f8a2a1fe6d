// Package dataset provides labeled example sets and synthetic data
// generation for training and evaluating anomaly detectors.
package dataset

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

// Labels follow the one-class SVM convention.
const (
	// Normal marks an inlier.
	Normal = 1
	// Anomaly marks an outlier.
	Anomaly = -1
)

// Set is a labeled example set: one feature row per label.
type Set struct {
	// X is the row-major feature matrix.
	X [][]float64
	// Y holds one label per row, Normal or Anomaly.
	Y []int
}

// NewRand returns a seeded random source for Shuffle and Split.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// New returns an empty set with capacity for n examples.
func New(n int) *Set {
	return &Set{
		X: make([][]float64, 0, n),
		Y: make([]int, 0, n),
	}
}

// Len returns the number of examples.
func (s *Set) Len() int {
	return len(s.X)
}

// Dim returns the number of features, or 0 for an empty set.
func (s *Set) Dim() int {
	if len(s.X) == 0 {
		return 0
	}
	return len(s.X[0])
}

// Append adds one labeled example. All rows must share the same
// dimensionality.
func (s *Set) Append(features []float64, label int) error {
	if len(features) == 0 {
		return errors.New("empty feature vector")
	}
	if dim := s.Dim(); dim > 0 && len(features) != dim {
		return fmt.Errorf("feature vector has %d features, want %d", len(features), dim)
	}
	s.X = append(s.X, features)
	s.Y = append(s.Y, label)
	return nil
}

// Counts returns the number of normal and anomalous examples.
func (s *Set) Counts() (normals, anomalies int) {
	for _, y := range s.Y {
		if y == Anomaly {
			anomalies++
		} else {
			normals++
		}
	}
	return normals, anomalies
}

// Shuffle permutes examples in place.
func (s *Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(s.X), func(i, j int) {
		s.X[i], s.X[j] = s.X[j], s.X[i]
		s.Y[i], s.Y[j] = s.Y[j], s.Y[i]
	})
}

// Split partitions the set into a training set holding frac of the
// examples and a test set holding the rest. frac is clamped to (0, 1).
// The receiver is not modified; rows are shared, not copied.
func (s *Set) Split(frac float64, rng *rand.Rand) (train, test *Set) {
	if frac <= 0 {
		frac = 0.5
	}
	if frac >= 1 {
		frac = 0.5
	}

	perm := rng.Perm(s.Len())
	cut := int(float64(s.Len()) * frac)

	train = New(cut)
	test = New(s.Len() - cut)
	for i, idx := range perm {
		if i < cut {
			train.X = append(train.X, s.X[idx])
			train.Y = append(train.Y, s.Y[idx])
		} else {
			test.X = append(test.X, s.X[idx])
			test.Y = append(test.Y, s.Y[idx])
		}
	}
	return train, test
}

// Filter returns the examples carrying the given label. Rows are
// shared, not copied.
func (s *Set) Filter(label int) *Set {
	out := New(s.Len())
	for i, y := range s.Y {
		if y == label {
			out.X = append(out.X, s.X[i])
			out.Y = append(out.Y, y)
		}
	}
	return out
}

// AnomalyFlags returns Y as boolean anomaly markers.
func (s *Set) AnomalyFlags() []bool {
	flags := make([]bool, len(s.Y))
	for i, y := range s.Y {
		flags[i] = y == Anomaly
	}
	return flags
}
