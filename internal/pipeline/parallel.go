package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/models"
)

// ChunkFunc processes one chunk of tasks with the shared context C.
type ChunkFunc[C any] = executor.WorkerFunc[models.Task, C]

// Parallel splits the entities of the input directory into chunks and runs
// them on the executor. Every chunk receives the same Shared value.
type Parallel[C any] struct {
	name   string
	cfg    executor.Config
	shared C
	worker ChunkFunc[C]
	log    logrus.FieldLogger
}

// NewParallel creates a chunk-parallel transformation.
func NewParallel[C any](name string, cfg executor.Config, shared C, worker ChunkFunc[C], log logrus.FieldLogger) *Parallel[C] {
	return &Parallel[C]{name: name, cfg: cfg, shared: shared, worker: worker, log: log}
}

// Name implements Transformation.
func (t *Parallel[C]) Name() string { return t.name }

// Transform implements Transformation.
func (t *Parallel[C]) Transform(ctx context.Context, inputDir, outputDir string) error {
	tasks, err := PrepareTasks(t.log, inputDir, outputDir)
	if err != nil {
		return err
	}

	return executor.Run(ctx, t.log.WithField("stage", t.name), t.cfg, tasks, t.shared, t.worker)
}
