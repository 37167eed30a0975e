// Package ingest seeds a stage directory from prepared line-delimited JSON.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/metrics"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

// Strategy decides how a prepared line is merged into its record.
type Strategy int

const (
	// Metadata stores title, description and keywords as record metadata.
	Metadata Strategy = iota
	// Terms stores tokenized title, description and keywords as the
	// mapping source of the record.
	Terms
)

func (s Strategy) String() string {
	switch s {
	case Metadata:
		return "metadata"
	case Terms:
		return "terms"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "metadata":
		return Metadata, nil
	case "terms":
		return Terms, nil
	default:
		return 0, fmt.Errorf("%w: unknown merge strategy %q", models.ErrInvalidConfig, name)
	}
}

// Line is one prepared catalog record.
type Line struct {
	IRI         string          `json:"iri"`
	Title       json.RawMessage `json:"title"`
	Description json.RawMessage `json:"description"`
	Keywords    json.RawMessage `json:"keywords"`
}

const logEvery = 10000

// AddFromJSONLines merges every line of a prepared file into the record of
// its iri in the output directory.
type AddFromJSONLines struct {
	file     string
	strategy Strategy
	log      logrus.FieldLogger
}

// New creates the stage.
func New(file string, strategy Strategy, log logrus.FieldLogger) *AddFromJSONLines {
	return &AddFromJSONLines{file: file, strategy: strategy, log: log}
}

// Name implements pipeline.Transformation.
func (a *AddFromJSONLines) Name() string { return "add-from-jsonl:" + a.strategy.String() }

// Transform implements pipeline.Transformation. The input directory is
// not used.
func (a *AddFromJSONLines) Transform(ctx context.Context, _, outputDir string) error {
	idx, err := objindex.Open(outputDir, a.log)
	if err != nil {
		return err
	}

	log := a.log.WithField("file", a.file)
	count := 0

	err = jsonio.ScanLines(ctx, a.file, func(raw []byte) error {
		var line Line
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("%w: line %d: %v", models.ErrMalformedInput, count+1, err)
		}

		if line.IRI == "" {
			return fmt.Errorf("line %d: %w", count+1, models.ErrMissingField("iri"))
		}

		if err := a.merge(idx.GetOrCreate(line.IRI, ""), &line); err != nil {
			return fmt.Errorf("%s: %w", line.IRI, err)
		}

		count++
		if count%logEvery == 0 {
			log.WithField("lines", count).Info("progress")
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("lines", count).Info("file merged")
	metrics.RecordsProcessed.WithLabelValues(a.Name()).Add(float64(count))

	return idx.Save()
}

func (a *AddFromJSONLines) merge(path string, line *Line) error {
	var rec models.Record

	if err := jsonio.ReadDocument(path, &rec); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := Apply(a.strategy, &rec, line); err != nil {
		return err
	}

	return jsonio.WriteDocument(path, &rec)
}

// Apply merges line into rec using strategy.
func Apply(strategy Strategy, rec *models.Record, line *Line) error {
	rec.ID = line.IRI

	switch strategy {
	case Metadata:
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}

		for key, raw := range map[string]json.RawMessage{
			"title":       line.Title,
			"description": line.Description,
			"keywords":    line.Keywords,
		} {
			var v any
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("%w: %s: %v", models.ErrMalformedInput, key, err)
				}
			}

			rec.Metadata[key] = v
		}

	case Terms:
		src := &models.MappingSource{}

		if err := decodeTerms(line.Title, &src.Title); err != nil {
			return fmt.Errorf("title: %w", err)
		}

		if err := decodeTerms(line.Description, &src.Description); err != nil {
			return fmt.Errorf("description: %w", err)
		}

		if err := decodeTerms(line.Keywords, &src.Keywords); err != nil {
			return fmt.Errorf("keywords: %w", err)
		}

		rec.MappingValue = src

	default:
		return fmt.Errorf("%w: unknown merge strategy %d", models.ErrInvalidConfig, int(strategy))
	}

	return nil
}

func decodeTerms(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}

	return nil
}
