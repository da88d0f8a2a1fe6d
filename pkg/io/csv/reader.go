// Package csv reads tabular datasets and writes detection results as
// CSV.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rkaram/svmguard/pkg/dataset"
)

// Reader reads feature vectors, and optionally labels, from CSV files.
type Reader struct {
	file    *os.File
	reader  *csv.Reader
	headers []string

	hasHeader bool
	labelCol  bool
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates whether the file starts with a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithLabelColumn indicates the last column holds the example label
// (1 normal, -1 anomaly) rather than a feature.
func WithLabelColumn() Option {
	return func(r *Reader) {
		r.labelCol = true
	}
}

// NewReader opens a CSV file for reading.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers, if any.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all feature rows. When the reader was built with
// WithLabelColumn the label column is dropped. Malformed rows are
// skipped.
func (r *Reader) Read() ([][]float64, error) {
	var data [][]float64

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row, _, err := r.parse(record)
		if err != nil {
			continue
		}
		data = append(data, row)
	}

	return data, nil
}

// ReadLabeled returns the file as a labeled example set. Requires a
// reader built with WithLabelColumn.
func (r *Reader) ReadLabeled() (*dataset.Set, error) {
	if !r.labelCol {
		return nil, errors.New("reader has no label column")
	}

	set := dataset.New(0)
	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row, label, err := r.parse(record)
		if err != nil {
			continue
		}
		if err := set.Append(row, label); err != nil {
			return nil, err
		}
	}

	if set.Len() == 0 {
		return nil, errors.New("no parseable rows")
	}
	return set, nil
}

// Stream returns a channel of feature rows for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			record, err := r.reader.Read()
			if err != nil {
				return
			}

			row, _, err := r.parse(record)
			if err != nil {
				continue
			}

			select {
			case out <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// parse converts a record into a feature row and, when configured, the
// trailing label.
func (r *Reader) parse(record []string) ([]float64, int, error) {
	fields := record
	label := dataset.Normal

	if r.labelCol {
		if len(fields) < 2 {
			return nil, 0, errors.New("row too short for label column")
		}
		raw := fields[len(fields)-1]
		fields = fields[:len(fields)-1]

		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("bad label %q: %w", raw, err)
		}
		if v == dataset.Anomaly {
			label = dataset.Anomaly
		}
	}

	if len(fields) == 0 {
		return nil, 0, errors.New("empty row")
	}

	row := make([]float64, len(fields))
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, 0, err
		}
		row[i] = f
	}
	return row, label, nil
}
