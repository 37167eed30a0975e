// Package workflow assembles the mapping pipeline described by a workflow
// file.
package workflow

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/config"
	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/export"
	"github.com/odinkg/odin/internal/hierarchy"
	"github.com/odinkg/odin/internal/ingest"
	"github.com/odinkg/odin/internal/mapping"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// Deps holds the collaborators optional stages need.
type Deps struct {
	// Saver is required when the workflow enables persistence.
	Saver export.RecordSaver
}

// Build creates the pipeline: input, mapping, hierarchy, reduction,
// pruning, optional persistence and UI export.
func Build(wf *config.Workflow, deps Deps, log logrus.FieldLogger) (*pipeline.Pipeline, error) {
	mappingCfg, err := mappingConfig(&wf.Mapping)
	if err != nil {
		return nil, err
	}

	if wf.Persist != nil && deps.Saver == nil {
		return nil, fmt.Errorf("%w: persistence enabled without a record store", models.ErrInvalidConfig)
	}

	p := pipeline.New(wf.Root, log)

	p.Directory(wf.Input.Directory).
		Apply(ingest.New(wf.Input.Metadata, ingest.Metadata, log)).
		Apply(ingest.New(wf.Input.Terms, ingest.Terms, log))

	p.Directory(wf.Mapping.Directory).
		Apply(mapping.NewStage(mappingCfg, wf.Executor, log))

	p.Directory(wf.Hierarchy.Directory).
		Apply(hierarchy.NewResolveStage(hierarchy.ResolverConfig{
			HierarchyDump: wf.Hierarchy.Dump,
			IdlePasses:    wf.Hierarchy.IdlePasses,
		}, wf.Executor, log))

	p.Directory(wf.Reduce.Directory).
		Apply(hierarchy.NewReduceStage(wf.Executor, log))

	// Pruning is cheap enough for a single chunk.
	p.Directory(wf.Prune.Directory).
		Apply(hierarchy.NewPruneStage(executor.Config{Chunks: 1, Workers: 1}, log))

	if wf.Persist != nil {
		p.Directory(wf.Persist.Directory).
			Apply(export.NewPersistStage(deps.Saver, log))
	}

	p.Directory(wf.Export.Directory).
		Apply(export.NewForUI(wf.Export.FileNames, log))

	return p, nil
}

func mappingConfig(m *config.MappingStage) (mapping.Config, error) {
	cfg := mapping.Config{
		EntityDump:      m.EntityDump,
		SharedThreshold: m.SharedThreshold,
	}

	stop, err := m.LoadStopWords()
	if err != nil {
		return cfg, err
	}

	if len(stop) > 0 {
		cfg.Words = mapping.NewExcludeFilter(stop)
	}

	if len(m.StandaloneExcluded) > 0 {
		cfg.Standalone = mapping.NewExcludeFilter(m.StandaloneExcluded)
	}

	for _, name := range m.Sources {
		s, err := mapping.ParseSource(name)
		if err != nil {
			return cfg, err
		}

		cfg.Sources = append(cfg.Sources, s)
	}

	return cfg, nil
}
