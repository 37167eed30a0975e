// Package executor runs a task list as round-robin chunks on a fixed pool
// of worker goroutines.
package executor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/odinkg/odin/internal/metrics"
)

// Config sizes a run.
type Config struct {
	Chunks  int `yaml:"chunks"`
	Workers int `yaml:"workers"`
}

func (c Config) normalized() Config {
	if c.Chunks <= 0 {
		c.Chunks = 1
	}

	if c.Workers <= 0 {
		c.Workers = 1
	}

	return c
}

// Chunk is the unit of work handed to a worker. Shared is the same
// read-only value for every chunk of a run.
type Chunk[T, C any] struct {
	Index  int
	Tasks  []T
	Shared C
}

// WorkerFunc processes one chunk. log carries the worker name.
type WorkerFunc[T, C any] func(ctx context.Context, log logrus.FieldLogger, chunk Chunk[T, C]) error

// Split distributes tasks round-robin: chunk i holds every task whose
// position modulo n is i.
func Split[T any](tasks []T, n int) [][]T {
	if n <= 0 {
		n = 1
	}

	chunks := make([][]T, n)
	for i, task := range tasks {
		chunks[i%n] = append(chunks[i%n], task)
	}

	return chunks
}

// Run splits tasks into cfg.Chunks chunks and processes the non-empty ones
// on cfg.Workers goroutines. The first failing chunk cancels the others;
// Run returns once every worker has exited.
func Run[T, C any](ctx context.Context, log logrus.FieldLogger, cfg Config, tasks []T, shared C, fn WorkerFunc[T, C]) error {
	cfg = cfg.normalized()

	chunks := Split(tasks, cfg.Chunks)
	g, ctx := errgroup.WithContext(ctx)
	queue := make(chan Chunk[T, C])

	g.Go(func() error {
		defer close(queue)

		for i, tasks := range chunks {
			if len(tasks) == 0 {
				continue
			}

			select {
			case queue <- Chunk[T, C]{Index: i, Tasks: tasks, Shared: shared}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return nil
	})

	log.WithFields(logrus.Fields{
		"tasks":   len(tasks),
		"chunks":  cfg.Chunks,
		"workers": cfg.Workers,
	}).Info("starting workers")

	for w := range cfg.Workers {
		wlog := log.WithField("worker", fmt.Sprintf("worker %02d", w+1))

		g.Go(func() error {
			for chunk := range queue {
				if err := runChunk(ctx, wlog, chunk, fn); err != nil {
					return err
				}
			}

			return nil
		})
	}

	return g.Wait()
}

func runChunk[T, C any](ctx context.Context, log logrus.FieldLogger, chunk Chunk[T, C], fn WorkerFunc[T, C]) error {
	metrics.ActiveChunks.Inc()
	defer metrics.ActiveChunks.Dec()

	log = log.WithField("chunk", chunk.Index)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fn(ctx, log, chunk); err != nil {
		log.WithError(err).Error("chunk failed")
		return fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	return nil
}
