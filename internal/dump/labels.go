// Package dump holds the offline tools that shrink the knowledge-graph dumps
// to what the exported records reference.
package dump

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

const progressEvery = 100_000

// LabelLine is one line of the filtered label file.
type LabelLine struct {
	ID    string          `json:"id"`
	Label json.RawMessage `json:"label"`
}

// CollectEntities returns every entity id referenced by the record documents
// in dir: mapped ids and both endpoints of every hierarchy edge.
func CollectEntities(ctx context.Context, log logrus.FieldLogger, dir string) (map[string]struct{}, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	ids := make(map[string]struct{})
	read := 0

	for _, f := range files {
		if f.IsDir() || f.Name() == objindex.FileName || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec models.Record
		if err := jsonio.ReadDocument(filepath.Join(dir, f.Name()), &rec); err != nil {
			return nil, err
		}

		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}

		for _, id := range rec.MappedIDs() {
			ids[id] = struct{}{}
		}

		for _, e := range rec.Hierarchy {
			ids[e.Source] = struct{}{}
			ids[e.Target] = struct{}{}
		}

		read++
	}

	log.WithFields(logrus.Fields{"records": read, "entities": len(ids)}).Info("collected referenced entities")

	return ids, nil
}

// FilterLabels copies the id and label of every entity in ids from the label
// dump at in to out. Referenced entities without a label are logged and
// skipped. It returns the number of lines written.
func FilterLabels(ctx context.Context, log logrus.FieldLogger, in, out string, ids map[string]struct{}) (int, error) {
	w, err := jsonio.CreateLines(out)
	if err != nil {
		return 0, err
	}

	var (
		written, seen int
		line          LabelLine
	)

	err = jsonio.ScanLines(ctx, in, func(raw []byte) error {
		seen++
		if seen%progressEvery == 0 {
			log.WithField("lines", seen).Info("filtering labels")
		}

		id, ok := jsonio.ExtractID(raw)
		if ok {
			if _, want := ids[id]; !want {
				return nil
			}
		}

		line = LabelLine{}
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("%w: label line %d: %v", models.ErrMalformedInput, seen, err)
		}

		if _, want := ids[line.ID]; !want {
			return nil
		}

		if len(line.Label) == 0 || string(line.Label) == "null" {
			log.WithField("id", line.ID).Warn("referenced entity has no label")
			return nil
		}

		written++

		return w.Write(&line)
	})
	if err != nil {
		w.Close() //nolint:errcheck,gosec // already failing
		return written, err
	}

	if err := w.Close(); err != nil {
		return written, err
	}

	log.WithFields(logrus.Fields{"lines": seen, "written": written}).Info("labels filtered")

	return written, nil
}
