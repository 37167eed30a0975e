package jsonio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// LineWriter writes one JSON value per line.
type LineWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// CreateLines creates (or truncates) path for line-delimited output.
func CreateLines(path string) (*LineWriter, error) {
	f, err := os.Create(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	buf := bufio.NewWriterSize(f, readBufferSize)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	return &LineWriter{f: f, buf: buf, enc: enc}, nil
}

// Write encodes v followed by a newline.
func (w *LineWriter) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encoding line: %w", err)
	}

	return nil
}

// Close flushes buffered lines and closes the file.
func (w *LineWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("flushing %s: %w", w.f.Name(), err)
	}

	return w.f.Close()
}
