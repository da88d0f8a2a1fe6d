package detectors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDetector scores every sample with the sum of its features.
type stubDetector struct {
	threshold float64
}

func (d *stubDetector) Fit([][]float64) error { return nil }

func (d *stubDetector) Predict(data [][]float64) ([]float64, error) {
	scores := make([]float64, len(data))
	for i, row := range data {
		s, err := d.PredictOne(row)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	return scores, nil
}

func (d *stubDetector) PredictOne(sample []float64) (float64, error) {
	if len(sample) == 0 {
		return 0, errors.New("empty sample")
	}
	var sum float64
	for _, v := range sample {
		sum += v
	}
	return sum, nil
}

func (d *stubDetector) Threshold() float64     { return d.threshold }
func (d *stubDetector) SetThreshold(t float64) { d.threshold = t }
func (d *stubDetector) Save() ([]byte, error)  { return nil, nil }
func (d *stubDetector) Load([]byte) error      { return nil }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.1, cfg.Contamination)
	assert.Equal(t, 0.5, cfg.Threshold)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestRunStream(t *testing.T) {
	d := &stubDetector{threshold: 0.5}

	input := make(chan []float64, 4)
	output := make(chan Detection, 4)

	done := make(chan error, 1)
	go func() {
		done <- RunStream(context.Background(), d, input, output)
	}()

	input <- []float64{0.2}
	input <- []float64{0.9}
	input <- []float64{} // unscorable, dropped
	close(input)

	require.NoError(t, <-done)
	close(output)

	var results []Detection
	for det := range output {
		results = append(results, det)
	}
	require.Len(t, results, 2)

	assert.False(t, results[0].Anomaly)
	assert.True(t, results[1].Anomaly)
	assert.Equal(t, []float64{0.9}, results[1].Sample)
	assert.False(t, results[1].At.IsZero())
}

func TestRunStreamCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := make(chan []float64)
	err := RunStream(ctx, &stubDetector{}, input, make(chan Detection))
	assert.ErrorIs(t, err, context.Canceled)
}
