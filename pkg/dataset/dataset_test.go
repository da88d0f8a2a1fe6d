package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	s := New(4)

	require.NoError(t, s.Append([]float64{1, 2}, Normal))
	require.NoError(t, s.Append([]float64{3, 4}, Anomaly))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Dim())

	t.Run("dimension mismatch", func(t *testing.T) {
		assert.Error(t, s.Append([]float64{1, 2, 3}, Normal))
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Error(t, s.Append(nil, Normal))
	})
}

func TestCounts(t *testing.T) {
	s := New(3)
	require.NoError(t, s.Append([]float64{1}, Normal))
	require.NoError(t, s.Append([]float64{2}, Anomaly))
	require.NoError(t, s.Append([]float64{3}, Normal))

	normals, anomalies := s.Counts()
	assert.Equal(t, 2, normals)
	assert.Equal(t, 1, anomalies)
}

func TestSplit(t *testing.T) {
	s := New(100)
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Append([]float64{float64(i)}, Normal))
	}

	tests := []struct {
		name      string
		frac      float64
		wantTrain int
	}{
		{name: "seventy thirty", frac: 0.7, wantTrain: 70},
		{name: "clamped low", frac: -1, wantTrain: 50},
		{name: "clamped high", frac: 1.5, wantTrain: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, test := s.Split(tt.frac, NewRand(1))
			assert.Equal(t, tt.wantTrain, train.Len())
			assert.Equal(t, 100-tt.wantTrain, test.Len())
		})
	}
}

func TestSplitPartitions(t *testing.T) {
	s := New(20)
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Append([]float64{float64(i)}, Normal))
	}

	train, test := s.Split(0.5, NewRand(3))

	seen := map[float64]bool{}
	for _, row := range train.X {
		seen[row[0]] = true
	}
	for _, row := range test.X {
		assert.False(t, seen[row[0]], "example in both splits")
		seen[row[0]] = true
	}
	assert.Len(t, seen, 20)
}

func TestFilter(t *testing.T) {
	s := New(4)
	require.NoError(t, s.Append([]float64{1}, Normal))
	require.NoError(t, s.Append([]float64{2}, Anomaly))
	require.NoError(t, s.Append([]float64{3}, Normal))

	normals := s.Filter(Normal)
	assert.Equal(t, 2, normals.Len())
	for _, y := range normals.Y {
		assert.Equal(t, Normal, y)
	}
}

func TestAnomalyFlags(t *testing.T) {
	s := New(3)
	require.NoError(t, s.Append([]float64{1}, Normal))
	require.NoError(t, s.Append([]float64{2}, Anomaly))

	assert.Equal(t, []bool{false, true}, s.AnomalyFlags())
}

func TestGenerate(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	set, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.Samples, set.Len())
	assert.Equal(t, cfg.Dim, set.Dim())

	normals, anomalies := set.Counts()
	assert.Equal(t, int(float64(cfg.Samples)*cfg.AnomalyFraction), anomalies)
	assert.Equal(t, cfg.Samples-anomalies, normals)
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()

	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Y, b.Y)

	cfg.Seed++
	c, err := Generate(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.X, c.X)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SyntheticConfig)
	}{
		{name: "zero samples", mutate: func(c *SyntheticConfig) { c.Samples = 0 }},
		{name: "zero dim", mutate: func(c *SyntheticConfig) { c.Dim = 0 }},
		{name: "zero clusters", mutate: func(c *SyntheticConfig) { c.Clusters = 0 }},
		{name: "fraction too high", mutate: func(c *SyntheticConfig) { c.AnomalyFraction = 1 }},
		{name: "negative fraction", mutate: func(c *SyntheticConfig) { c.AnomalyFraction = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSyntheticConfig()
			tt.mutate(&cfg)
			_, err := Generate(cfg)
			assert.Error(t, err)
		})
	}
}
