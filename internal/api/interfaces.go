package api

import (
	"context"

	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/similarity"
)

// SimilarityService computes hierarchy paths between two datasets.
type SimilarityService interface {
	Compute(ctx context.Context, left, right *similarity.Dataset, opts similarity.Options) (*similarity.Result, error)
}

// RecordRepository reads exported records.
type RecordRepository interface {
	GetRecord(ctx context.Context, iri string) (*models.Record, error)
	RecordsMappedTo(ctx context.Context, entityID string) ([]string, error)
	CountRecords(ctx context.Context) (int, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
