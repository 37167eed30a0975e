// Package pipeline runs an ordered list of stages over stage directories.
// A directory step switches the output directory and, when that directory
// holds a completion marker, skips every transformation until the next
// directory step. A directory without the marker is left over from a failed
// run; it is cleared and its stage runs again.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/metrics"
	"github.com/odinkg/odin/internal/models"
)

// DoneMarker is written into a stage directory once every transformation
// applied to it has succeeded.
const DoneMarker = ".done"

// Transformation turns the documents of inputDir into documents in outputDir.
type Transformation interface {
	Name() string
	Transform(ctx context.Context, inputDir, outputDir string) error
}

// Step is either a directory change or a transformation.
type Step struct {
	Directory string
	Transform Transformation
}

// Pipeline is an ordered list of steps rooted at a working directory.
type Pipeline struct {
	root  string
	steps []Step
	log   logrus.FieldLogger
}

// New creates an empty pipeline writing stage directories under root.
func New(root string, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{root: root, log: log}
}

// Directory appends a directory step.
func (p *Pipeline) Directory(name string) *Pipeline {
	p.steps = append(p.steps, Step{Directory: name})
	return p
}

// Apply appends a transformation step.
func (p *Pipeline) Apply(t Transformation) *Pipeline {
	p.steps = append(p.steps, Step{Transform: t})
	return p
}

// Add appends a prepared step.
func (p *Pipeline) Add(s Step) *Pipeline {
	p.steps = append(p.steps, s)
	return p
}

// Steps returns the number of steps.
func (p *Pipeline) Steps() int { return len(p.steps) }

// Execute runs every step in order and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context) error {
	start := time.Now()
	log := p.log.WithField("run", uuid.NewString())

	var (
		inputDir, outputDir string
		skip                bool
	)

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		slog := log.WithField("step", fmt.Sprintf("%d/%d", i+1, len(p.steps)))

		switch {
		case step.Directory != "":
			if err := markDone(outputDir, skip); err != nil {
				return err
			}

			inputDir = outputDir
			outputDir = filepath.Join(p.root, step.Directory)

			var err error
			if skip, err = openStageDir(slog, outputDir); err != nil {
				return err
			}

			slog.WithField("directory", outputDir).Info("output directory changed")

		case step.Transform != nil && skip:
			slog.WithField("stage", step.Transform.Name()).Info("step skipped as output directory is complete")

		case step.Transform != nil:
			if err := p.run(ctx, slog, step.Transform, inputDir, outputDir); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: step %d", models.ErrUnknownStep, i+1)
		}
	}

	if err := markDone(outputDir, skip); err != nil {
		return err
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("all done")

	return nil
}

func (p *Pipeline) run(ctx context.Context, log logrus.FieldLogger, t Transformation, inputDir, outputDir string) error {
	log = log.WithField("stage", t.Name())
	log.Info("running")

	start := time.Now()
	err := t.Transform(ctx, inputDir, outputDir)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(t.Name()).Observe(elapsed.Seconds())

	if err != nil {
		log.WithError(err).WithField("directory", outputDir).
			Error("stage failed, it runs again on the next start")
		metrics.ErrorsTotal.WithLabelValues("stage").Inc()

		return fmt.Errorf("stage %s: %w", t.Name(), err)
	}

	log.WithField("elapsed", elapsed.Round(time.Millisecond)).Info("stage finished")

	return nil
}

// openStageDir reports whether dir is a completed stage. An incomplete
// directory is emptied so its stage starts from scratch.
func openStageDir(log logrus.FieldLogger, dir string) (bool, error) {
	if jsonio.Exists(filepath.Join(dir, DoneMarker)) {
		return true, nil
	}

	if jsonio.Exists(dir) {
		log.WithField("directory", dir).Warn("clearing incomplete stage directory")

		if err := os.RemoveAll(dir); err != nil {
			return false, fmt.Errorf("clearing stage directory: %w", err)
		}
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("creating stage directory: %w", err)
	}

	return false, nil
}

func markDone(dir string, skipped bool) error {
	if dir == "" || skipped {
		return nil
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := jsonio.WriteFile(filepath.Join(dir, DoneMarker), stamp); err != nil {
		return fmt.Errorf("marking stage complete: %w", err)
	}

	return nil
}
