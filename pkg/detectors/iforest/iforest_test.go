package iforest

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkaram/svmguard/pkg/detectors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantNTrees int
	}{
		{
			name:       "default configuration",
			opts:       nil,
			wantNTrees: 100,
		},
		{
			name:       "custom trees",
			opts:       []Option{WithTrees(50)},
			wantNTrees: 50,
		},
		{
			name:       "multiple options",
			opts:       []Option{WithTrees(200), WithContamination(0.05), WithSeed(123)},
			wantNTrees: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.opts...)
			assert.Equal(t, tt.wantNTrees, f.nTrees)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		wantErr bool
	}{
		{
			name:    "empty data",
			data:    [][]float64{},
			wantErr: true,
		},
		{
			name:    "ragged rows",
			data:    [][]float64{{1, 2, 3}, {1, 2}},
			wantErr: true,
		},
		{
			name: "single sample",
			data: [][]float64{{1.0, 2.0, 3.0}},
		},
		{
			name: "normal data",
			data: gaussian(100, 5, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithTrees(10), WithSeed(42))
			err := f.Fit(tt.data)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, f.trained)
			assert.Len(t, f.trees, f.nTrees)
		})
	}
}

func TestPredict(t *testing.T) {
	f := New(WithTrees(50), WithSampleSize(100), WithSeed(42))
	require.NoError(t, f.Fit(gaussian(500, 5, 1)))

	t.Run("scores are normalized", func(t *testing.T) {
		scores, err := f.Predict(gaussian(100, 5, 2))
		require.NoError(t, err)
		require.Len(t, scores, 100)
		for _, score := range scores {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})

	t.Run("anomalies score high", func(t *testing.T) {
		scores, err := f.Predict([][]float64{
			{1000, 1000, 1000, 1000, 1000},
			{-500, -500, -500, -500, -500},
		})
		require.NoError(t, err)
		for _, score := range scores {
			assert.Greater(t, score, 0.4, "isolated samples should score high")
		}
	})

	t.Run("predict before fit", func(t *testing.T) {
		_, err := New().Predict(gaussian(10, 5, 3))
		assert.Error(t, err)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := f.Predict([][]float64{{1, 2}})
		assert.Error(t, err)
	})
}

func TestPredictOne(t *testing.T) {
	f := New(WithTrees(20), WithSeed(42))
	require.NoError(t, f.Fit(gaussian(200, 3, 1)))

	score, err := f.PredictOne([]float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	_, err = f.PredictOne([]float64{0.5})
	assert.Error(t, err)
}

func TestPredictStream(t *testing.T) {
	f := New(WithTrees(20), WithSeed(42))
	require.NoError(t, f.Fit(gaussian(200, 3, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan []float64, 10)
	output := make(chan detectors.Detection, 10)

	go func() {
		assert.NoError(t, f.PredictStream(ctx, input, output))
		close(output)
	}()

	samples := [][]float64{
		{0.5, 0.5, 0.5},
		{100, 100, 100},
		{0.3, 0.3, 0.3},
	}
	for _, sample := range samples {
		input <- sample
	}
	close(input)

	var results []detectors.Detection
	for det := range output {
		results = append(results, det)
	}
	require.Len(t, results, len(samples))
	assert.Greater(t, results[1].Score, results[0].Score)
}

func TestSaveLoad(t *testing.T) {
	original := New(WithTrees(30), WithContamination(0.15), WithSeed(42))
	require.NoError(t, original.Fit(gaussian(200, 4, 1)))

	test := gaussian(50, 4, 2)
	want, err := original.Predict(test)
	require.NoError(t, err)

	raw, err := original.Save()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	loaded := New()
	require.NoError(t, loaded.Load(raw))

	got, err := loaded.Predict(test)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestThreshold(t *testing.T) {
	f := New()
	assert.Equal(t, 0.5, f.Threshold())

	f.SetThreshold(0.7)
	assert.Equal(t, 0.7, f.Threshold())
}

func BenchmarkFit(b *testing.B) {
	data := gaussian(10000, 10, 1)
	f := New(WithTrees(100), WithSampleSize(256))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Fit(data)
	}
}

func BenchmarkPredictOne(b *testing.B) {
	f := New(WithTrees(100), WithSampleSize(256))
	if err := f.Fit(gaussian(5000, 10, 1)); err != nil {
		b.Fatal(err)
	}
	sample := make([]float64, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.PredictOne(sample)
	}
}

func gaussian(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := range data {
		row := make([]float64, dim)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		data[i] = row
	}
	return data
}
