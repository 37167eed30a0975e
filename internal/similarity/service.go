package similarity

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/odinkg/odin/internal/metrics"
	"github.com/odinkg/odin/internal/models"
)

// Service computes paths between datasets.
type Service struct {
	log     logrus.FieldLogger
	workers int
}

// NewService creates a service searching with up to workers goroutines.
func NewService(log logrus.FieldLogger, workers int) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Service{log: log, workers: workers}
}

// FindAllPaths searches every (left entity, right entity) pair over the
// combined hierarchy. Results are grouped by left entity in mapping order.
func (s *Service) FindAllPaths(ctx context.Context, left, right *Dataset) ([]models.Path, error) {
	graph := NewGraph(left.Hierarchy, right.Hierarchy)
	leftIDs := left.Entities()
	rightIDs := right.Entities()

	perLeft := make([][]models.Path, len(leftIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, l := range leftIDs {
		g.Go(func() error {
			var found []models.Path

			for _, r := range rightIDs {
				if err := ctx.Err(); err != nil {
					return err
				}

				found = append(found, graph.FindPaths(l, r)...)
			}

			perLeft[i] = found

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]models.Path, 0)
	for _, paths := range perLeft {
		all = append(all, paths...)
	}

	return all, nil
}

// Compute finds every path between left and right and applies the
// selection method of opts.
func (s *Service) Compute(ctx context.Context, left, right *Dataset, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	all, err := s.FindAllPaths(ctx, left, right)
	if err != nil {
		return nil, err
	}

	selected, err := Select(all, opts)
	if err != nil {
		return nil, err
	}

	metrics.PathsFound.WithLabelValues("total").Observe(float64(len(all)))
	metrics.PathsFound.WithLabelValues("selected").Observe(float64(len(selected)))

	s.log.WithFields(logrus.Fields{
		"left":     left.ID,
		"right":    right.ID,
		"method":   opts.MethodOrDefault(),
		"total":    len(all),
		"selected": len(selected),
	}).Debug("similarity computed")

	return &Result{
		Metadata: ResultMetadata{
			Method:          opts.MethodOrDefault(),
			Datasets:        []string{left.ID, right.ID},
			TotalPathCount:  len(all),
			ResultPathCount: len(selected),
		},
		Similarity: Summarize(selected),
		Paths:      selected,
	}, nil
}
