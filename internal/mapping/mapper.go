// Package mapping maps catalog records onto knowledge-graph entities by
// term overlap between record text and entity labels and aliases.
package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// GroupTitle is written into every mapping group this stage produces.
const GroupTitle = "Wikidata"

// StageName names the mapping stage in logs and metrics.
const StageName = "wikidata-mapping"

const dumpLogEvery = 100000

// Config is the read-only context shared by every mapping chunk.
type Config struct {
	EntityDump      string
	SharedThreshold float64
	Words           WordFilter
	Standalone      WordFilter
	Sources         []Source
}

func (c Config) withDefaults() Config {
	if c.SharedThreshold <= 0 {
		c.SharedThreshold = DefaultSharedThreshold
	}

	if c.Words == nil {
		c.Words = PassThrough{}
	}

	if c.Standalone == nil {
		c.Standalone = NewExcludeFilter(StandaloneExcluded)
	}

	if len(c.Sources) == 0 {
		c.Sources = AllSources
	}

	return c
}

// NewStage creates the chunk-parallel mapping stage.
func NewStage(cfg Config, exec executor.Config, log logrus.FieldLogger) *pipeline.Parallel[Config] {
	return pipeline.NewParallel(StageName, exec, cfg.withDefaults(), Worker, log)
}

// Worker maps one chunk of records.
func Worker(ctx context.Context, log logrus.FieldLogger, chunk executor.Chunk[models.Task, Config]) error {
	cfg := chunk.Shared.withDefaults()

	log.WithField("records", len(chunk.Tasks)).Info("loading terms")

	universe, err := collectTerms(ctx, log, cfg, chunk.Tasks)
	if err != nil {
		return err
	}

	log.WithField("terms", len(universe)).Info("mapping to labels")

	idx, err := BuildCandidates(ctx, log, cfg, universe)
	if err != nil {
		return err
	}

	m := NewMatcher(cfg, idx)

	log.Info("saving mappings")

	return pipeline.RewriteRecords(ctx, log, StageName, chunk.Tasks, m.MapRecord)
}

func collectTerms(ctx context.Context, log logrus.FieldLogger, cfg Config, tasks []models.Task) (map[string]struct{}, error) {
	all := make([]string, 0)
	seen := make(map[string]struct{})

	err := pipeline.ReadRecords(ctx, log, StageName, tasks, func(rec *models.Record) error {
		if rec.MappingValue == nil {
			return models.ErrMissingField("mappings-value")
		}

		for _, source := range cfg.Sources {
			for _, group := range source.TermGroups(rec.MappingValue) {
				for _, term := range group {
					if _, ok := seen[term]; !ok {
						seen[term] = struct{}{}
						all = append(all, term)
					}
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	universe := make(map[string]struct{}, len(all))
	for _, term := range cfg.Words.Filter(all) {
		universe[term] = struct{}{}
	}

	return universe, nil
}

// Candidates is the term inverted index over the entities that share at
// least one term with a chunk.
type Candidates struct {
	terms    map[string][]string
	entities map[string]*models.Entity
}

// Lookup returns the entities sharing term, in dump order.
func (c *Candidates) Lookup(term string) []*models.Entity {
	ids := c.terms[term]
	out := make([]*models.Entity, 0, len(ids))

	for _, id := range ids {
		out = append(out, c.entities[id])
	}

	return out
}

// Len returns the number of candidate entities.
func (c *Candidates) Len() int { return len(c.entities) }

// BuildCandidates streams the entity dump once and keeps every entity whose
// filtered label or aliases intersect universe.
func BuildCandidates(ctx context.Context, log logrus.FieldLogger, cfg Config, universe map[string]struct{}) (*Candidates, error) {
	cfg = cfg.withDefaults()
	c := &Candidates{
		terms:    make(map[string][]string),
		entities: make(map[string]*models.Entity),
	}

	lines := 0

	err := jsonio.ScanLines(ctx, cfg.EntityDump, func(raw []byte) error {
		lines++
		if lines%dumpLogEvery == 0 {
			log.WithField("lines", lines).Info("scanning entity dump")
		}

		var line models.EntityLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("%w: entity dump line %d: %v", models.ErrMalformedInput, lines, err)
		}

		if line.ID == "" {
			return fmt.Errorf("entity dump line %d: %w", lines, models.ErrMissingField("id"))
		}

		// The first matching line of an id wins; later duplicates are ignored.
		if _, dup := c.entities[line.ID]; dup {
			return nil
		}

		entity := &models.Entity{Code: line.ID, Label: cfg.Words.Filter(line.Label)}
		for _, alias := range line.Aliases {
			entity.Aliases = append(entity.Aliases, cfg.Words.Filter(alias))
		}

		matched := false
		added := make(map[string]struct{})

		for _, group := range entity.TermGroups() {
			for _, term := range group {
				if _, ok := universe[term]; !ok {
					continue
				}

				if _, ok := added[term]; ok {
					continue
				}

				added[term] = struct{}{}
				c.terms[term] = append(c.terms[term], entity.Code)
				matched = true
			}
		}

		if matched {
			c.entities[entity.Code] = entity
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"lines": lines, "candidates": c.Len()}).Info("entity dump scanned")

	return c, nil
}
