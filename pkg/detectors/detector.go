// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

import (
	"context"
	"time"
)

// Detector is the common interface for all anomaly detection algorithms.
//
// A detector is trained once on historical data and then scores new
// samples. Scores are normalized to [0, 1]; higher values indicate
// anomalies. A sample whose score meets or exceeds the detector's
// threshold is classified as an anomaly.
type Detector interface {
	// Fit trains the detector. data is a row-major matrix where each
	// row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// Predict returns anomaly scores for the given samples.
	Predict(data [][]float64) ([]float64, error)

	// PredictOne returns the anomaly score for a single sample.
	PredictOne(sample []float64) (float64, error)

	// Threshold returns the score above which samples are classified
	// as anomalies.
	Threshold() float64

	// SetThreshold overrides the threshold chosen during training.
	SetThreshold(t float64)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// StreamDetector extends Detector with channel-based scoring.
type StreamDetector interface {
	Detector

	// PredictStream scores samples from input until it is closed or
	// the context is cancelled, emitting one Detection per sample.
	PredictStream(ctx context.Context, input <-chan []float64, output chan<- Detection) error
}

// Detection is the result of scoring a single sample.
type Detection struct {
	// At is the time the sample was scored.
	At time.Time
	// Score is the anomaly score in [0, 1].
	Score float64
	// Anomaly reports whether Score reached the detector threshold.
	Anomaly bool
	// Sample is the scored feature vector.
	Sample []float64
}

// Config holds configuration shared by all detectors.
type Config struct {
	// Contamination is the expected proportion of anomalies in the
	// training data. It drives automatic threshold selection.
	Contamination float64
	// Threshold classifies samples when no contamination-based
	// threshold has been fitted.
	Threshold float64
	// Seed makes training reproducible.
	Seed int64
}

// DefaultConfig returns the defaults used by all detectors.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.1,
		Threshold:     0.5,
		Seed:          42,
	}
}

// RunStream implements StreamDetector.PredictStream on top of a fitted
// Detector. Samples that fail to score are dropped.
func RunStream(ctx context.Context, d Detector, input <-chan []float64, output chan<- Detection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-input:
			if !ok {
				return nil
			}

			score, err := d.PredictOne(sample)
			if err != nil {
				continue
			}

			det := Detection{
				At:      time.Now(),
				Score:   score,
				Anomaly: score >= d.Threshold(),
				Sample:  sample,
			}

			select {
			case output <- det:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
