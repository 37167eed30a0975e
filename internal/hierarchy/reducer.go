package hierarchy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// ReduceStageName names the mapping reduction stage.
const ReduceStageName = "reduce-mapping"

// ReduceMap maps an entity to the entities its instanceof chain collapses to.
type ReduceMap map[string][]string

// BuildReduceMap builds the transitive instanceof closure of edges: A->B
// and B->C become A->C. Self references are dropped and the closure is
// bounded so cycles terminate.
func BuildReduceMap(edges []models.HierarchyEdge) ReduceMap {
	m := make(ReduceMap)
	keys := make([]string, 0)

	for _, e := range edges {
		if e.Relation != models.RelationInstanceOf || e.Source == e.Target {
			continue
		}

		if _, ok := m[e.Source]; !ok {
			keys = append(keys, e.Source)
		}

		m[e.Source] = appendUnique(m[e.Source], e.Target)
	}

	for round := 0; round <= len(keys); round++ {
		changed := false

		for _, key := range keys {
			var intermediate, add []string

			for _, v := range m[key] {
				if _, ok := m[v]; ok {
					intermediate = append(intermediate, v)
				}
			}

			for _, v := range intermediate {
				for _, next := range m[v] {
					if next != key {
						add = appendUnique(add, next)
					}
				}
			}

			if len(add) == 0 {
				continue
			}

			next := make([]string, 0, len(m[key])+len(add))
			for _, v := range m[key] {
				if !contains(intermediate, v) {
					next = append(next, v)
				}
			}

			for _, v := range add {
				if !contains(intermediate, v) {
					next = appendUnique(next, v)
				}
			}

			if !equal(next, m[key]) {
				m[key] = next
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	for _, key := range keys {
		if len(m[key]) == 0 {
			delete(m, key)
		}
	}

	return m
}

// Terminals follows m from id to the ids with no further mapping. An id
// whose expansion reaches no terminal maps to itself.
func (m ReduceMap) Terminals(id string) []string {
	queue := []string{id}
	visited := make(map[string]struct{})

	var out []string

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if _, ok := visited[next]; ok {
			continue
		}

		visited[next] = struct{}{}

		targets, ok := m[next]
		if !ok {
			out = append(out, next)
			continue
		}

		queue = append(queue, targets...)
	}

	if len(out) == 0 {
		return []string{id}
	}

	return out
}

// Reduce rewrites mappings to their terminal ids. Mappings landing on the
// same id are merged; results keep the order targets are first reached.
func (m ReduceMap) Reduce(mappings []models.MappingRecord) []models.MappingRecord {
	order := make([]string, 0, len(mappings))
	byID := make(map[string]models.MappingRecord, len(mappings))

	for _, mapping := range mappings {
		for _, target := range m.Terminals(mapping.ID) {
			var next models.MappingRecord
			if target == mapping.ID {
				next = originallyMapped(mapping)
			} else {
				next = mappedTo(mapping, target)
			}

			existing, ok := byID[target]
			if !ok {
				order = append(order, target)
				byID[target] = next

				continue
			}

			byID[target] = merge(existing, next)
		}
	}

	out := make([]models.MappingRecord, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}

	return out
}

func originallyMapped(m models.MappingRecord) models.MappingRecord {
	return models.MappingRecord{
		ID: m.ID,
		Metadata: models.MappingMetadata{
			Group:               m.Metadata.Group,
			DirectlyMapped:      true,
			DirectlyMappedGroup: m.Metadata.Group,
		},
	}
}

func mappedTo(m models.MappingRecord, target string) models.MappingRecord {
	return models.MappingRecord{
		ID: target,
		Metadata: models.MappingMetadata{
			Group:       m.Metadata.Group,
			ReducedFrom: []string{m.ID},
		},
	}
}

func merge(existing, next models.MappingRecord) models.MappingRecord {
	group := append([]string(nil), existing.Metadata.Group...)
	for _, g := range next.Metadata.Group {
		group = appendUnique(group, g)
	}

	reduced := append([]string(nil), existing.Metadata.ReducedFrom...)
	for _, r := range next.Metadata.ReducedFrom {
		reduced = appendUnique(reduced, r)
	}

	var direct []string
	direct = append(direct, existing.Metadata.DirectlyMappedGroup...)
	direct = append(direct, next.Metadata.DirectlyMappedGroup...)

	return models.MappingRecord{
		ID: existing.ID,
		Metadata: models.MappingMetadata{
			Group:               group,
			ReducedFrom:         reduced,
			DirectlyMapped:      existing.Metadata.DirectlyMapped || next.Metadata.DirectlyMapped,
			DirectlyMappedGroup: direct,
		},
	}
}

// ReduceRecord rewrites every mapping group of rec using its own hierarchy.
func ReduceRecord(rec *models.Record) error {
	m := BuildReduceMap(rec.Hierarchy)

	for i := range rec.Mappings {
		rec.Mappings[i].Data = m.Reduce(rec.Mappings[i].Data)
	}

	return nil
}

// NewReduceStage creates the chunk-parallel reduction stage.
func NewReduceStage(exec executor.Config, log logrus.FieldLogger) *pipeline.Parallel[struct{}] {
	return pipeline.NewParallel(ReduceStageName, exec, struct{}{},
		func(ctx context.Context, log logrus.FieldLogger, chunk executor.Chunk[models.Task, struct{}]) error {
			return pipeline.RewriteRecords(ctx, log, ReduceStageName, chunk.Tasks, ReduceRecord)
		}, log)
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}

	return append(list, v)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
