package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/models"
)

// TaskFunc transforms a single entity.
type TaskFunc func(ctx context.Context, task models.Task) error

// PerTask applies a TaskFunc to every entity of the input directory, one at
// a time, in index order.
type PerTask struct {
	name string
	fn   TaskFunc
	log  logrus.FieldLogger
}

// NewPerTask creates a per-entity transformation.
func NewPerTask(name string, fn TaskFunc, log logrus.FieldLogger) *PerTask {
	return &PerTask{name: name, fn: fn, log: log}
}

// Name implements Transformation.
func (t *PerTask) Name() string { return t.name }

// Transform implements Transformation.
func (t *PerTask) Transform(ctx context.Context, inputDir, outputDir string) error {
	tasks, err := PrepareTasks(t.log, inputDir, outputDir)
	if err != nil {
		return err
	}

	progress := NewProgress(t.log, t.name, len(tasks))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress.Tick(i)

		if err := progress.Work(func() error { return t.fn(ctx, task) }); err != nil {
			return fmt.Errorf("%s: %w", task.ID, err)
		}
	}

	progress.Done()

	return nil
}
