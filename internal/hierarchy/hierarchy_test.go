package hierarchy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/hierarchy"
	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func writeDump(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hierarchy.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func edge(s, r, t string) models.HierarchyEdge {
	return models.HierarchyEdge{Source: s, Relation: r, Target: t}
}

func instanceOf(s, t string) models.HierarchyEdge { return edge(s, models.RelationInstanceOf, t) }

func subclassOf(s, t string) models.HierarchyEdge { return edge(s, models.RelationSubclassOf, t) }

func TestResolver_FollowsSubclassBeforeInstance(t *testing.T) {
	dump := writeDump(t,
		// Parents listed before children force extra passes.
		`{"id":"Q3","subclassof":[]}`,
		`{"id":"Q2","subclassof":["Q3"]}`,
		`{"id":"Q9"}`,
		`{"id":"Q1","instanceof":["Q9"],"subclassof":["Q2"]}`,
	)

	r := hierarchy.NewResolver(hierarchy.ResolverConfig{HierarchyDump: dump}, testLogger())

	resolved, err := r.Resolve(context.Background(), []string{"Q1"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, id := range []string{"Q1", "Q2", "Q3"} {
		if a, ok := resolved[id]; !ok || a.Type != models.AncestorFound {
			t.Errorf("%s = %+v, %v", id, a, ok)
		}
	}

	if _, ok := resolved["Q9"]; ok {
		t.Error("instanceof parent must not be followed when subclassof exists")
	}
}

func TestResolver_MarksMissingAsNotFound(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		ids     []string
		missing []string
	}{
		{
			name:    "single missing parent",
			lines:   []string{`{"id":"Q1","instanceof":["Q404"]}`},
			ids:     []string{"Q1"},
			missing: []string{"Q404"},
		},
		{
			name:    "several missing ids",
			lines:   []string{`{"id":"Q1","instanceof":["Q404","Q405"]}`},
			ids:     []string{"Q1", "Q406"},
			missing: []string{"Q404", "Q405", "Q406"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hierarchy.NewResolver(hierarchy.ResolverConfig{HierarchyDump: writeDump(t, tt.lines...)}, testLogger())

			resolved, err := r.Resolve(context.Background(), tt.ids)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}

			for _, id := range tt.missing {
				if resolved[id].Type != models.AncestorNotFound {
					t.Errorf("%s = %+v, want not-found", id, resolved[id])
				}
			}
		})
	}
}

func TestResolver_CycleTerminates(t *testing.T) {
	dump := writeDump(t,
		`{"id":"Q1","instanceof":["Q2"]}`,
		`{"id":"Q2","instanceof":["Q1"]}`,
	)

	r := hierarchy.NewResolver(hierarchy.ResolverConfig{HierarchyDump: dump}, testLogger())

	resolved, err := r.Resolve(context.Background(), []string{"Q1"})
	if err != nil {
		t.Fatal(err)
	}

	if len(resolved) != 2 {
		t.Errorf("resolved = %v", resolved)
	}
}

func TestWalk(t *testing.T) {
	resolved := map[string]models.Ancestors{
		"A": {InstanceOf: []string{"B"}},
		"B": {InstanceOf: []string{"X"}, SubclassOf: []string{"C"}},
		"C": {},
		"X": {},
	}

	edges, err := hierarchy.Walk(resolved, []string{"A"})
	if err != nil {
		t.Fatal(err)
	}

	want := []models.HierarchyEdge{instanceOf("A", "B"), subclassOf("B", "C")}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}

	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}

	_, err = hierarchy.Walk(resolved, []string{"Z"})
	if !errors.Is(err, models.ErrMissingHierarchyRecord) {
		t.Errorf("expected ErrMissingHierarchyRecord, got %v", err)
	}
}

func TestBuildReduceMap_ChainCollapses(t *testing.T) {
	m := hierarchy.BuildReduceMap([]models.HierarchyEdge{
		instanceOf("A", "B"),
		instanceOf("B", "C"),
	})

	if got := m["A"]; len(got) != 1 || got[0] != "C" {
		t.Fatalf("A -> %v, want [C]", got)
	}

	reduced := m.Reduce([]models.MappingRecord{{ID: "A", Metadata: models.MappingMetadata{Group: []string{"a"}}}})
	if len(reduced) != 1 {
		t.Fatalf("reduced = %+v", reduced)
	}

	got := reduced[0]
	if got.ID != "C" || len(got.Metadata.ReducedFrom) != 1 || got.Metadata.ReducedFrom[0] != "A" || got.Metadata.DirectlyMapped {
		t.Errorf("reduced mapping = %+v", got)
	}
}

func TestBuildReduceMap_IgnoresSubclassEdges(t *testing.T) {
	m := hierarchy.BuildReduceMap([]models.HierarchyEdge{subclassOf("A", "B")})
	if len(m) != 0 {
		t.Errorf("reduce map = %v, want empty", m)
	}
}

func TestBuildReduceMap_FixedPoint(t *testing.T) {
	inputs := [][]models.HierarchyEdge{
		{instanceOf("A", "B"), instanceOf("B", "C"), instanceOf("C", "D")},
		{instanceOf("A", "B"), instanceOf("A", "C"), instanceOf("B", "D"), instanceOf("C", "D")},
		{instanceOf("A", "B"), instanceOf("B", "A")},
		{instanceOf("A", "A"), instanceOf("A", "B")},
	}

	for i, edges := range inputs {
		first := hierarchy.BuildReduceMap(edges)

		var closed []models.HierarchyEdge
		for s, targets := range first {
			for _, t := range targets {
				closed = append(closed, instanceOf(s, t))
			}
		}

		second := hierarchy.BuildReduceMap(closed)

		if len(first) != len(second) {
			t.Errorf("input %d: %v then %v", i, first, second)
			continue
		}

		for k, v := range first {
			if strings.Join(second[k], ",") != strings.Join(v, ",") {
				t.Errorf("input %d: %s -> %v then %v", i, k, v, second[k])
			}
		}
	}
}

func TestReduce_MergesCollapsedMappings(t *testing.T) {
	m := hierarchy.BuildReduceMap([]models.HierarchyEdge{
		instanceOf("A", "C"),
		instanceOf("B", "C"),
	})

	reduced := m.Reduce([]models.MappingRecord{
		{ID: "A", Metadata: models.MappingMetadata{Group: []string{"x"}}},
		{ID: "C", Metadata: models.MappingMetadata{Group: []string{"y"}}},
		{ID: "B", Metadata: models.MappingMetadata{Group: []string{"x", "z"}}},
	})

	if len(reduced) != 1 {
		t.Fatalf("reduced = %+v", reduced)
	}

	meta := reduced[0].Metadata
	if reduced[0].ID != "C" {
		t.Errorf("id = %s", reduced[0].ID)
	}

	if strings.Join(meta.Group, ",") != "x,y,z" {
		t.Errorf("group = %v", meta.Group)
	}

	if strings.Join(meta.ReducedFrom, ",") != "A,B" {
		t.Errorf("reduced_from = %v", meta.ReducedFrom)
	}

	if !meta.DirectlyMapped || strings.Join(meta.DirectlyMappedGroup, ",") != "y" {
		t.Errorf("direct = %v %v", meta.DirectlyMapped, meta.DirectlyMappedGroup)
	}
}

func TestReduce_CycleMapsToItself(t *testing.T) {
	m := hierarchy.BuildReduceMap([]models.HierarchyEdge{instanceOf("A", "B"), instanceOf("B", "A")})

	reduced := m.Reduce([]models.MappingRecord{{ID: "A"}})
	if len(reduced) != 1 || reduced[0].ID != "A" || !reduced[0].Metadata.DirectlyMapped {
		t.Errorf("reduced = %+v", reduced)
	}
}

func TestPrune(t *testing.T) {
	edges := []models.HierarchyEdge{
		instanceOf("A", "C"),
		instanceOf("B", "C"),
		subclassOf("C", "D"),
	}

	got := hierarchy.Prune(edges, map[string]struct{}{"A": {}})
	if len(got) != 2 || got[0] != instanceOf("B", "C") {
		t.Errorf("pruned = %v", got)
	}

	got = hierarchy.Prune(edges, map[string]struct{}{"C": {}})
	if len(got) != 0 {
		t.Errorf("pruned = %v", got)
	}
}

func TestStages_ResolveReducePrune(t *testing.T) {
	root := t.TempDir()
	dirs := []string{filepath.Join(root, "mapped"), filepath.Join(root, "hier"), filepath.Join(root, "reduced"), filepath.Join(root, "pruned")}

	idx, err := objindex.Open(dirs[0], testLogger())
	if err != nil {
		t.Fatal(err)
	}

	rec := &models.Record{
		ID: "r1",
		Mappings: []models.MappingGroup{{
			Metadata: models.GroupMetadata{From: "title"},
			Data:     []models.MappingRecord{{ID: "A", Metadata: models.MappingMetadata{Group: []string{"a"}, DirectlyMapped: true}}},
		}},
	}

	if err := jsonio.WriteDocument(idx.GetOrCreate("r1", ""), rec); err != nil {
		t.Fatal(err)
	}

	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}

	dump := writeDump(t,
		`{"id":"A","instanceof":["B"]}`,
		`{"id":"B","instanceof":["C"]}`,
		`{"id":"C","subclassof":["D"]}`,
		`{"id":"D"}`,
	)

	exec := executor.Config{Chunks: 1, Workers: 1}
	ctx := context.Background()

	if err := hierarchy.NewResolveStage(hierarchy.ResolverConfig{HierarchyDump: dump}, exec, testLogger()).Transform(ctx, dirs[0], dirs[1]); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := hierarchy.NewReduceStage(exec, testLogger()).Transform(ctx, dirs[1], dirs[2]); err != nil {
		t.Fatalf("reduce: %v", err)
	}

	if err := hierarchy.NewPruneStage(exec, testLogger()).Transform(ctx, dirs[2], dirs[3]); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var out models.Record
	if err := jsonio.ReadDocument(filepath.Join(dirs[3], "item_000000.json"), &out); err != nil {
		t.Fatal(err)
	}

	data := out.Mappings[0].Data
	if len(data) != 1 || data[0].ID != "C" {
		t.Fatalf("mappings = %+v", data)
	}

	// A -> B -> C -> D with A reduced away.
	want := []models.HierarchyEdge{instanceOf("B", "C"), subclassOf("C", "D")}
	if len(out.Hierarchy) != len(want) {
		t.Fatalf("hierarchy = %v, want %v", out.Hierarchy, want)
	}

	for i := range want {
		if out.Hierarchy[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, out.Hierarchy[i], want[i])
		}
	}
}
