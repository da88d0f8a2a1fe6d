// Package io provides data ingestion and result reporting for
// anomaly detection pipelines.
package io

import (
	"context"
	"time"
)

// Reader reads feature vectors from a data source.
type Reader interface {
	// Read returns the complete dataset.
	Read() ([][]float64, error)

	// Stream returns a channel of samples for real-time processing.
	Stream(ctx context.Context) (<-chan []float64, error)

	// Close releases resources.
	Close() error
}

// FeatureExtractor converts raw records into feature vectors.
type FeatureExtractor interface {
	// Extract converts raw input to a feature vector.
	Extract(data any) ([]float64, error)

	// FeatureNames returns the names of extracted features.
	FeatureNames() []string
}

// Writer persists detection results.
type Writer interface {
	// Write outputs a single result.
	Write(result Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []Result) error

	// Close flushes and releases resources.
	Close() error
}

// Result is a detection result ready for reporting.
type Result struct {
	// Time is when the sample was scored.
	Time time.Time `json:"time"`
	// Score is the anomaly score in [0, 1].
	Score float64 `json:"score"`
	// Anomaly reports whether the score reached the threshold.
	Anomaly bool `json:"anomaly"`
	// Features is the scored feature vector.
	Features []float64 `json:"features,omitempty"`
	// Source identifies where the sample came from.
	Source string `json:"source,omitempty"`
}
