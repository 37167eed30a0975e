// Package jsonio reads and writes the JSON documents and line-delimited
// dumps the pipeline stages operate on.
package jsonio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const readBufferSize = 1 << 20

// LineFunc is called once per non-empty line. The slice is only valid for
// the duration of the call.
type LineFunc func(line []byte) error

// ScanLines streams path line by line, calling fn for every non-empty line.
// Lines of any length are supported. The context is checked between lines.
func ScanLines(ctx context.Context, path string, fn LineFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return scan(ctx, f, fn)
}

func scan(ctx context.Context, r io.Reader, fn LineFunc) error {
	reader := bufio.NewReaderSize(r, readBufferSize)

	var long []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := reader.ReadSlice('\n')

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			long = append(long, chunk...)
			continue
		case err != nil && !errors.Is(err, io.EOF):
			return fmt.Errorf("reading line: %w", err)
		}

		line := chunk
		if long != nil {
			long = append(long, chunk...)
			line = long
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if fnErr := fn(trimmed); fnErr != nil {
				return fnErr
			}
		}

		long = nil

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

var idKey = []byte(`"id":`)

// ExtractID finds the value of the first "id" key in a JSON line without
// decoding it. It returns false when the line has no quoted id value, in
// which case callers fall back to a full decode.
func ExtractID(line []byte) (string, bool) {
	i := bytes.Index(line, idKey)
	if i < 0 {
		return "", false
	}

	rest := bytes.TrimLeft(line[i+len(idKey):], " \t")
	if len(rest) == 0 || rest[0] != '"' {
		return "", false
	}

	rest = rest[1:]

	end := bytes.IndexByte(rest, '"')
	if end < 0 || bytes.IndexByte(rest[:end], '\\') >= 0 {
		return "", false
	}

	return string(rest[:end]), true
}

// ReadDocument decodes the JSON document at path into v.
func ReadDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}

// WriteDocument encodes v to path. The document is written to a temporary
// file in the same directory and renamed into place.
func WriteDocument(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return WriteFile(path, data)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck,gosec // already failing
		os.Remove(tmpName) //nolint:errcheck,gosec // best effort
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // best effort
		return fmt.Errorf("closing %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // best effort
		return fmt.Errorf("renaming %s: %w", path, err)
	}

	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
