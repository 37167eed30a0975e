// Package objindex implements the per-directory Object Index: an
// append-only, insertion-ordered mapping from entity id to the file name
// holding that entity's document.
package objindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
)

// FileName is the name of the index document inside a stage directory.
const FileName = "index.json"

// DefaultExtension is used by GetOrCreate when no extension is given.
const DefaultExtension = "json"

// Index maps entity ids to file names within one directory. It is not safe
// for concurrent mutation; names are assigned before workers start.
type Index struct {
	dir   string
	ids   []string
	names map[string]string
	log   logrus.FieldLogger
}

// Open creates dir if needed and loads its index document when present.
func Open(dir string, log logrus.FieldLogger) (*Index, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx := &Index{
		dir:   dir,
		names: make(map[string]string),
		log:   log.WithField("directory", dir),
	}

	ids, names, err := load(idx.path())
	if err != nil {
		return nil, err
	}

	if ids == nil {
		idx.log.Info("no index file found")
		return idx, nil
	}

	idx.ids, idx.names = ids, names
	idx.log.WithField("size", len(ids)).Info("index loaded")

	return idx, nil
}

// Dir returns the directory the index describes.
func (x *Index) Dir() string { return x.dir }

// Len returns the number of entries.
func (x *Index) Len() int { return len(x.ids) }

func (x *Index) path() string { return filepath.Join(x.dir, FileName) }

func (x *Index) resolve(name string) string { return filepath.Join(x.dir, name) }

// Get returns the path of id's document.
func (x *Index) Get(id string) (string, bool) {
	name, ok := x.names[id]
	if !ok {
		return "", false
	}

	return x.resolve(name), true
}

// MustGet is Get returning ErrMissingIndexEntry for unknown ids.
func (x *Index) MustGet(id string) (string, error) {
	path, ok := x.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", models.ErrMissingIndexEntry, id, x.dir)
	}

	return path, nil
}

// GetOrCreate returns the path of id's document, assigning the next
// sequential name when id is new.
func (x *Index) GetOrCreate(id, ext string) string {
	if name, ok := x.names[id]; ok {
		return x.resolve(name)
	}

	if ext == "" {
		ext = DefaultExtension
	}

	name := fmt.Sprintf("item_%06d.%s", len(x.ids), ext)
	x.add(id, name)

	return x.resolve(name)
}

// Put sets the file name for id and reports whether id was new.
func (x *Index) Put(id, name string) (string, bool) {
	_, exists := x.names[id]
	if exists {
		x.names[id] = name
	} else {
		x.add(id, name)
	}

	return x.resolve(name), !exists
}

func (x *Index) add(id, name string) {
	x.ids = append(x.ids, id)
	x.names[id] = name
}

// All yields every entry in insertion order.
func (x *Index) All() iter.Seq[models.IndexEntry] {
	return func(yield func(models.IndexEntry) bool) {
		for _, id := range x.ids {
			name := x.names[id]
			if !yield(models.IndexEntry{ID: id, Name: name, Path: x.resolve(name)}) {
				return
			}
		}
	}
}

// Save writes the index document, keys in insertion order.
func (x *Index) Save() error {
	data, err := encode(x.ids, x.names)
	if err != nil {
		return err
	}

	if err := jsonio.WriteFile(x.path(), data); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	x.log.WithField("size", len(x.ids)).Info("index saved")

	return nil
}

// Merge reloads the index from disk under the directory lock and folds the
// in-memory entries into it. On-disk names win for ids present in both;
// ids only known in memory are appended. An in-memory name the disk index
// already gives to another id is replaced by a fresh sequential name. The
// merged index is saved.
func (x *Index) Merge(ctx context.Context, opts LockOptions) error {
	return WithLease(ctx, x.dir+".lock", opts, func(context.Context) error {
		ids, names, err := load(x.path())
		if err != nil {
			return err
		}

		if names == nil {
			names = make(map[string]string, len(x.ids))
		}

		// used holds names owned by merged entries; reserved also holds the
		// in-memory names still to be merged, so fresh names avoid both.
		used := make(map[string]struct{}, len(names)+len(x.ids))
		reserved := make(map[string]struct{}, len(names)+len(x.ids))

		for _, name := range names {
			used[name] = struct{}{}
			reserved[name] = struct{}{}
		}

		for _, name := range x.names {
			reserved[name] = struct{}{}
		}

		for _, id := range x.ids {
			if _, ok := names[id]; ok {
				continue
			}

			name := x.names[id]
			if _, clash := used[name]; clash {
				fresh := freshName(len(ids), extension(name), reserved)
				x.log.WithFields(logrus.Fields{"id": id, "name": name, "renamed": fresh}).
					Warn("index name already taken on disk")
				name = fresh
				reserved[name] = struct{}{}
			}

			ids = append(ids, id)
			names[id] = name
			used[name] = struct{}{}
		}

		x.ids, x.names = ids, names

		return x.Save()
	})
}

// freshName returns the first unused sequential name starting at seq.
func freshName(seq int, ext string, taken map[string]struct{}) string {
	for ; ; seq++ {
		name := fmt.Sprintf("item_%06d.%s", seq, ext)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func extension(name string) string {
	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		return ext
	}

	return DefaultExtension
}

// load reads an index document preserving key order. A missing file
// returns nil slices.
func load(path string) ([]string, map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the stage directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}

		return nil, nil, fmt.Errorf("reading index: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, fmt.Errorf("%w: index %s: %v", models.ErrMalformedInput, path, err)
	}

	ids := make([]string, 0)
	names := make(map[string]string)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: index %s: %v", models.ErrMalformedInput, path, err)
		}

		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: index %s: unexpected key %v", models.ErrMalformedInput, path, tok)
		}

		var name string
		if err := dec.Decode(&name); err != nil {
			return nil, nil, fmt.Errorf("%w: index %s: value of %s: %v", models.ErrMalformedInput, path, id, err)
		}

		if _, dup := names[id]; !dup {
			ids = append(ids, id)
		}

		names[id] = name
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, fmt.Errorf("%w: index %s: %v", models.ErrMalformedInput, path, err)
	}

	return ids, names, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}

	return nil
}

func encode(ids []string, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(names[id])
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
