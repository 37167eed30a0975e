package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
)

// RecordFunc mutates a record in place before it is written out.
type RecordFunc func(rec *models.Record) error

// RewriteRecords reads every task's input record, applies fn and writes the
// result to the task's output path.
func RewriteRecords(ctx context.Context, log logrus.FieldLogger, stage string, tasks []models.Task, fn RecordFunc) error {
	progress := NewProgress(log, stage, len(tasks))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress.Tick(i)

		var rec models.Record
		if err := progress.IO(func() error { return jsonio.ReadDocument(task.InPath, &rec) }); err != nil {
			return err
		}

		if err := progress.Work(func() error { return fn(&rec) }); err != nil {
			return fmt.Errorf("%s: %w", task.ID, err)
		}

		if err := progress.IO(func() error { return jsonio.WriteDocument(task.OutPath, &rec) }); err != nil {
			return err
		}
	}

	progress.Done()

	return nil
}

// ReadRecords calls fn with every task's input record.
func ReadRecords(ctx context.Context, log logrus.FieldLogger, stage string, tasks []models.Task, fn RecordFunc) error {
	progress := NewProgress(log, stage, len(tasks))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress.Tick(i)

		var rec models.Record
		if err := progress.IO(func() error { return jsonio.ReadDocument(task.InPath, &rec) }); err != nil {
			return err
		}

		if err := progress.Work(func() error { return fn(&rec) }); err != nil {
			return fmt.Errorf("%s: %w", task.ID, err)
		}
	}

	progress.Finish()

	return nil
}
