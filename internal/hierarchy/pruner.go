package hierarchy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// PruneStageName names the pruning stage.
const PruneStageName = "prune-hierarchy"

// Prune drops every edge touching an id in remove.
func Prune(edges []models.HierarchyEdge, remove map[string]struct{}) []models.HierarchyEdge {
	out := make([]models.HierarchyEdge, 0, len(edges))

	for _, e := range edges {
		if !e.Touches(remove) {
			out = append(out, e)
		}
	}

	return out
}

// PruneRecord removes the hierarchy edges of ids that reduction collapsed.
func PruneRecord(rec *models.Record) error {
	rec.Hierarchy = Prune(rec.Hierarchy, rec.ReducedFrom())
	return nil
}

// NewPruneStage creates the chunk-parallel pruning stage.
func NewPruneStage(exec executor.Config, log logrus.FieldLogger) *pipeline.Parallel[struct{}] {
	return pipeline.NewParallel(PruneStageName, exec, struct{}{},
		func(ctx context.Context, log logrus.FieldLogger, chunk executor.Chunk[models.Task, struct{}]) error {
			return pipeline.RewriteRecords(ctx, log, PruneStageName, chunk.Tasks, PruneRecord)
		}, log)
}
