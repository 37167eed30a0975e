// Package export writes the records of the final stage to their consumers:
// the UI file layout and the Postgres record store.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
	"github.com/odinkg/odin/internal/pipeline"
)

// ForUI copies every record of the input stage to <file-name>.json, where
// the file name is looked up by iri in a JSON table. The output directory
// gets no index.
type ForUI struct {
	table string
	log   logrus.FieldLogger
}

// NewForUI creates the UI export stage. table is the path of a JSON object
// mapping record iri to output file name.
func NewForUI(table string, log logrus.FieldLogger) *ForUI {
	return &ForUI{table: table, log: log}
}

// Name implements pipeline.Transformation.
func (e *ForUI) Name() string { return "export-for-ui" }

// Transform implements pipeline.Transformation.
func (e *ForUI) Transform(ctx context.Context, inputDir, outputDir string) error {
	var names map[string]string
	if err := jsonio.ReadDocument(e.table, &names); err != nil {
		return err
	}

	in, err := objindex.Open(inputDir, e.log)
	if err != nil {
		return err
	}

	progress := pipeline.NewProgress(e.log, e.Name(), in.Len())
	i := 0

	for entry := range in.All() {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress.Tick(i)
		i++

		name, ok := names[entry.ID]
		if !ok {
			return fmt.Errorf("%w: %s not in %s", models.ErrMissingIndexEntry, entry.ID, e.table)
		}

		err := progress.IO(func() error {
			return copyFile(entry.Path, filepath.Join(outputDir, name+".json"))
		})
		if err != nil {
			return err
		}
	}

	progress.Done()

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // path comes from the index
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}

	return jsonio.WriteFile(dst, data)
}
