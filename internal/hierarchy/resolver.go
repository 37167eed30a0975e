// Package hierarchy resolves, reduces and prunes the is-a hierarchy stored
// with each mapped record.
package hierarchy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/metrics"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// ResolveStageName names the hierarchy resolution stage.
const ResolveStageName = "wikidata-hierarchy"

// DefaultIdlePasses is how many consecutive scans without progress end
// resolution.
const DefaultIdlePasses = 2

var errScanDone = errors.New("scan done")

// ResolverConfig is the read-only context of the resolution stage.
type ResolverConfig struct {
	HierarchyDump string
	IdlePasses    int
}

// Resolver expands a set of entity ids to every ancestor reachable in the
// hierarchy dump.
type Resolver struct {
	dump       string
	idlePasses int
	log        logrus.FieldLogger
}

// NewResolver creates a resolver over the hierarchy dump at path.
func NewResolver(cfg ResolverConfig, log logrus.FieldLogger) *Resolver {
	idle := cfg.IdlePasses
	if idle <= 0 {
		idle = DefaultIdlePasses
	}

	return &Resolver{dump: cfg.HierarchyDump, idlePasses: idle, log: log}
}

// Resolve scans the dump until every id and every ancestor it leads to is
// resolved. Ids still unresolved after the configured number of passes
// without progress are recorded as not-found.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (map[string]models.Ancestors, error) {
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	resolved := make(map[string]models.Ancestors, len(ids))
	idle := 0

	for pass := 1; len(pending) > 0; pass++ {
		r.log.WithFields(logrus.Fields{"pass": pass, "pending": len(pending)}).Info("iterating hierarchy file")
		metrics.ResolverPasses.Inc()

		before := len(resolved)

		if err := r.scan(ctx, pending, resolved); err != nil {
			return nil, err
		}

		if len(resolved) > before {
			idle = 0
			continue
		}

		idle++
		if idle < r.idlePasses {
			continue
		}

		missing := make([]string, 0, len(pending))
		for id := range pending {
			missing = append(missing, id)
		}

		sort.Strings(missing)

		for _, id := range missing {
			r.log.WithField("id", id).Warn("missing hierarchy record")
			resolved[id] = models.Ancestors{Type: models.AncestorNotFound}
		}

		metrics.UnresolvedAncestors.Add(float64(len(missing)))

		break
	}

	r.log.WithField("size", len(resolved)).Info("hierarchy resolved")

	return resolved, nil
}

func (r *Resolver) scan(ctx context.Context, pending map[string]struct{}, resolved map[string]models.Ancestors) error {
	err := jsonio.ScanLines(ctx, r.dump, func(raw []byte) error {
		id, ok := jsonio.ExtractID(raw)
		if ok {
			if _, want := pending[id]; !want {
				return nil
			}
		}

		var line models.HierarchyLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("%w: hierarchy dump: %v", models.ErrMalformedInput, err)
		}

		if _, want := pending[line.ID]; !want {
			return nil
		}

		a := models.Ancestors{InstanceOf: line.InstanceOf, SubclassOf: line.SubclassOf}

		delete(pending, line.ID)
		resolved[line.ID] = a

		_, parents := a.Parents()
		for _, p := range parents {
			if _, done := resolved[p]; !done {
				pending[p] = struct{}{}
			}
		}

		if len(pending) == 0 {
			return errScanDone
		}

		return nil
	})
	if errors.Is(err, errScanDone) {
		return nil
	}

	return err
}

// Walk returns the edges reachable from ids, following subclassof parents
// when an entity has any and instanceof parents otherwise. Edges are
// sorted.
func Walk(resolved map[string]models.Ancestors, ids []string) ([]models.HierarchyEdge, error) {
	queue := append([]string(nil), ids...)
	visited := make(map[string]struct{}, len(ids))
	edges := make(map[models.HierarchyEdge]struct{})

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, ok := visited[id]; ok {
			continue
		}

		visited[id] = struct{}{}

		a, ok := resolved[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrMissingHierarchyRecord, id)
		}

		relation, parents := a.Parents()
		for _, p := range parents {
			edges[models.HierarchyEdge{Source: id, Relation: relation, Target: p}] = struct{}{}

			if _, seen := visited[p]; !seen {
				queue = append(queue, p)
			}
		}
	}

	out := make([]models.HierarchyEdge, 0, len(edges))
	for e := range edges {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}

		if out[i].Relation != out[j].Relation {
			return out[i].Relation < out[j].Relation
		}

		return out[i].Target < out[j].Target
	})

	return out, nil
}

// NewResolveStage creates the stage that stores the reachable hierarchy in
// every record.
func NewResolveStage(cfg ResolverConfig, exec executor.Config, log logrus.FieldLogger) *pipeline.Parallel[ResolverConfig] {
	return pipeline.NewParallel(ResolveStageName, exec, cfg, resolveWorker, log)
}

func resolveWorker(ctx context.Context, log logrus.FieldLogger, chunk executor.Chunk[models.Task, ResolverConfig]) error {
	log.WithField("records", len(chunk.Tasks)).Info("loading mapped entities")

	var ids []string

	seen := make(map[string]struct{})

	err := pipeline.ReadRecords(ctx, log, ResolveStageName, chunk.Tasks, func(rec *models.Record) error {
		for _, id := range rec.MappedIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.WithField("entities", len(ids)).Info("collecting hierarchy")

	resolved, err := NewResolver(chunk.Shared, log).Resolve(ctx, ids)
	if err != nil {
		return err
	}

	log.Info("saving hierarchy")

	return pipeline.RewriteRecords(ctx, log, ResolveStageName, chunk.Tasks, func(rec *models.Record) error {
		edges, err := Walk(resolved, rec.MappedIDs())
		if err != nil {
			return err
		}

		rec.Hierarchy = edges

		return nil
	})
}
