package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkaram/svmguard/pkg/dataset"
	guardio "github.com/rkaram/svmguard/pkg/io"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReader(t *testing.T) {
	path := writeFile(t, "a,b,c\n1,2,3\n4,5,6\nbad,row,x\n7,8,9\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"a", "b", "c"}, r.Headers())

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, data)
}

func TestReaderNoHeader(t *testing.T) {
	path := writeFile(t, "1,2\n3,4\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Headers())

	data, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, data, 2)
}

func TestReaderLabelColumn(t *testing.T) {
	path := writeFile(t, "a,b,label\n1,2,1\n3,4,-1\n5,6,1\n")

	r, err := NewReader(path, WithLabelColumn())
	require.NoError(t, err)
	defer r.Close()

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, data, "label column should be dropped")
}

func TestReadLabeled(t *testing.T) {
	path := writeFile(t, "a,b,label\n1,2,1\n3,4,-1\n5,6,1\n")

	r, err := NewReader(path, WithLabelColumn())
	require.NoError(t, err)
	defer r.Close()

	set, err := r.ReadLabeled()
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []int{dataset.Normal, dataset.Anomaly, dataset.Normal}, set.Y)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, set.X)
}

func TestReadLabeledWithoutLabelColumn(t *testing.T) {
	path := writeFile(t, "a,b\n1,2\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadLabeled()
	assert.Error(t, err)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReaderStream(t *testing.T) {
	path := writeFile(t, "a,b\n1,2\n3,4\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	stream, err := r.Stream(context.Background())
	require.NoError(t, err)

	var rows [][]float64
	for row := range stream {
		rows = append(rows, row)
	}
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, rows)
}

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewWriter(path)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteAll([]guardio.Result{
		{Time: now, Score: 0.25, Anomaly: false},
		{Time: now, Score: 0.85, Anomaly: true},
	}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,score,anomaly", lines[0])
	assert.Contains(t, lines[1], "0.250000")
	assert.Contains(t, lines[2], "true")
}
