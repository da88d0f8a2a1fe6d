package dataset

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig describes a synthetic anomaly detection problem:
// Gaussian clusters of normal points with uniformly scattered outliers
// mixed in.
type SyntheticConfig struct {
	// Samples is the total number of examples to generate.
	Samples int
	// Dim is the number of features per example.
	Dim int
	// Clusters is the number of Gaussian clusters normal points are
	// drawn from.
	Clusters int
	// StdDev is the within-cluster standard deviation.
	StdDev float64
	// AnomalyFraction is the proportion of examples drawn from the
	// uniform background instead of a cluster.
	AnomalyFraction float64
	// Bound is the half-width of the box cluster centers and outliers
	// are drawn from.
	Bound float64
	// Seed makes generation reproducible.
	Seed uint64
}

// DefaultSyntheticConfig returns a two-cluster problem in five
// dimensions with 10% anomalies.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Samples:         1000,
		Dim:             5,
		Clusters:        2,
		StdDev:          0.5,
		AnomalyFraction: 0.1,
		Bound:           6,
		Seed:            42,
	}
}

// Generate produces a labeled synthetic set per cfg. Normal points are
// sampled around random cluster centers, anomalies uniformly over the
// whole box. Generation is deterministic for a given seed.
func Generate(cfg SyntheticConfig) (*Set, error) {
	if cfg.Samples <= 0 {
		return nil, errors.New("samples must be positive")
	}
	if cfg.Dim <= 0 {
		return nil, errors.New("dim must be positive")
	}
	if cfg.Clusters <= 0 {
		return nil, errors.New("clusters must be positive")
	}
	if cfg.AnomalyFraction < 0 || cfg.AnomalyFraction >= 1 {
		return nil, fmt.Errorf("anomaly fraction must be in [0, 1), got %v", cfg.AnomalyFraction)
	}

	src := rand.NewSource(cfg.Seed)
	rng := rand.New(src)

	background := distuv.Uniform{Min: -cfg.Bound, Max: cfg.Bound, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: cfg.StdDev, Src: src}

	// Centers are kept away from the box edge so outliers have room to
	// land outside the clusters.
	centers := make([][]float64, cfg.Clusters)
	for c := range centers {
		center := make([]float64, cfg.Dim)
		for k := range center {
			center[k] = (rng.Float64()*2 - 1) * cfg.Bound / 2
		}
		centers[c] = center
	}

	set := New(cfg.Samples)
	anomalies := int(float64(cfg.Samples) * cfg.AnomalyFraction)

	for i := 0; i < cfg.Samples; i++ {
		row := make([]float64, cfg.Dim)
		if i < anomalies {
			for k := range row {
				row[k] = background.Rand()
			}
			set.X = append(set.X, row)
			set.Y = append(set.Y, Anomaly)
			continue
		}

		center := centers[rng.Intn(len(centers))]
		for k := range row {
			row[k] = center[k] + noise.Rand()
		}
		set.X = append(set.X, row)
		set.Y = append(set.Y, Normal)
	}

	set.Shuffle(rng)
	return set, nil
}
