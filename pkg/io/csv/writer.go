package csv

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	guardio "github.com/rkaram/svmguard/pkg/io"
)

// Writer writes detection results as CSV rows.
type Writer struct {
	file   *os.File
	writer *csv.Writer
}

// NewWriter creates the output file and writes the header row.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		file:   file,
		writer: csv.NewWriter(file),
	}

	if err := w.writer.Write([]string{"time", "score", "anomaly"}); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Write outputs a single result.
func (w *Writer) Write(result guardio.Result) error {
	return w.writer.Write([]string{
		result.Time.Format(time.RFC3339Nano),
		strconv.FormatFloat(result.Score, 'f', 6, 64),
		strconv.FormatBool(result.Anomaly),
	})
}

// WriteAll outputs multiple results.
func (w *Writer) WriteAll(results []guardio.Result) error {
	for _, result := range results {
		if err := w.Write(result); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
