// Package jsonl writes detection results as JSON lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	guardio "github.com/rkaram/svmguard/pkg/io"
)

// Writer writes one JSON object per detection result.
type Writer struct {
	closer io.Closer
	buf    *bufio.Writer
	enc    *json.Encoder
}

// NewWriter creates the output file.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return NewStreamWriter(file), nil
}

// NewStreamWriter wraps an existing stream, which is closed with the
// writer if it implements io.Closer.
func NewStreamWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	jw := &Writer{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Write outputs a single result.
func (w *Writer) Write(result guardio.Result) error {
	return w.enc.Encode(result)
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

// Close flushes buffered output and closes the underlying stream.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
