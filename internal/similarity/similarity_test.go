package similarity_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/similarity"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func ptr[T any](v T) *T { return &v }

func edge(s, t string) models.HierarchyEdge {
	return models.HierarchyEdge{Source: s, Relation: models.RelationInstanceOf, Target: t}
}

func dataset(id string, mapped []string, edges ...models.HierarchyEdge) *similarity.Dataset {
	data := make([]models.MappingRecord, 0, len(mapped))
	for _, m := range mapped {
		data = append(data, models.MappingRecord{ID: m})
	}

	return &similarity.Dataset{
		ID:        id,
		Mappings:  []models.MappingGroup{{Metadata: models.GroupMetadata{From: "title"}, Data: data}},
		Hierarchy: edges,
	}
}

func path(shared string, nodes ...string) models.Path {
	return models.Path{Shared: shared, Nodes: nodes}
}

func nodes(p models.Path) string { return strings.Join(p.Nodes, ">") }

func TestFindPaths_SharedParent(t *testing.T) {
	g := similarity.NewGraph([]models.HierarchyEdge{edge("X", "Y")}, []models.HierarchyEdge{edge("Z", "Y")})

	got := g.FindPaths("X", "Z")
	if len(got) != 1 || got[0].Shared != "Y" || nodes(got[0]) != "X>Y>Z" {
		t.Fatalf("paths = %+v", got)
	}
}

func TestFindPaths_Cases(t *testing.T) {
	tests := []struct {
		name        string
		edges       []models.HierarchyEdge
		left, right string
		want        []string
	}{
		{"same entity", nil, "A", "A", []string{"A"}},
		{"direct parent", []models.HierarchyEdge{edge("A", "B")}, "A", "B", []string{"A>B"}},
		{"disconnected", []models.HierarchyEdge{edge("A", "B"), edge("C", "D")}, "A", "C", nil},
		{
			"uneven depth",
			[]models.HierarchyEdge{edge("A", "B"), edge("B", "C"), edge("C", "R"), edge("D", "R")},
			"A", "D",
			[]string{"A>B>C>R>D"},
		},
		{
			"two meeting nodes",
			[]models.HierarchyEdge{edge("A", "P"), edge("A", "Q"), edge("B", "P"), edge("B", "Q")},
			"A", "B",
			[]string{"A>P>B", "A>Q>B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarity.NewGraph(tt.edges).FindPaths(tt.left, tt.right)

			var gotNodes []string
			for _, p := range got {
				gotNodes = append(gotNodes, nodes(p))
			}

			if !slices.Equal(gotNodes, tt.want) {
				t.Errorf("paths = %v, want %v", gotNodes, tt.want)
			}
		})
	}
}

func TestFindPaths_ReverseSymmetry(t *testing.T) {
	edges := []models.HierarchyEdge{
		edge("A", "B"), edge("B", "C"), edge("C", "R"),
		edge("D", "E"), edge("E", "R"),
		edge("F", "C"),
	}
	g := similarity.NewGraph(edges)

	pairs := [][2]string{{"A", "D"}, {"A", "F"}, {"F", "D"}, {"B", "E"}}

	for _, pair := range pairs {
		forward := g.FindPaths(pair[0], pair[1])
		backward := g.FindPaths(pair[1], pair[0])

		if len(forward) != len(backward) {
			t.Fatalf("%v: %d vs %d paths", pair, len(forward), len(backward))
		}

		for i := range forward {
			reversed := slices.Clone(backward[i].Nodes)
			slices.Reverse(reversed)

			if forward[i].Shared != backward[i].Shared || !slices.Equal(forward[i].Nodes, reversed) {
				t.Errorf("%v: %v is not the reverse of %v", pair, forward[i], backward[i])
			}
		}
	}
}

func TestSelectClosestForEach(t *testing.T) {
	paths := []models.Path{
		path("R", "A", "x", "R", "y", "B"),
		path("S", "A", "S", "B"),
		path("T", "C", "T", "B"),
		path("S", "A", "S", "B"),
	}

	got := similarity.SelectClosestForEach(paths, similarity.Options{})

	var gotNodes []string
	for _, p := range got {
		gotNodes = append(gotNodes, nodes(p))
	}

	want := []string{"A>S>B", "C>T>B"}
	if !slices.Equal(gotNodes, want) {
		t.Fatalf("selected = %v, want %v", gotNodes, want)
	}

	// Every endpoint is still reached by a path of its minimal length.
	shortest := func(set []models.Path, node string) int {
		best := 0
		for _, p := range set {
			if p.Start() == node || p.End() == node {
				if best == 0 || p.Len() < best {
					best = p.Len()
				}
			}
		}

		return best
	}

	for _, node := range []string{"A", "B", "C"} {
		if shortest(got, node) != shortest(paths, node) {
			t.Errorf("endpoint %s: shortest selected %d, shortest overall %d", node, shortest(got, node), shortest(paths, node))
		}
	}
}

func TestSelectClosestForEach_KeepsOnlyPathOfOtherEndpoint(t *testing.T) {
	paths := []models.Path{
		path("Y", "A", "Y", "B"),
		path("C", "A", "C"),
	}

	got := similarity.SelectClosestForEach(paths, similarity.Options{})

	var gotNodes []string
	for _, p := range got {
		gotNodes = append(gotNodes, nodes(p))
	}

	// A>Y>B is longer than A's closest path but is B's only path.
	want := []string{"A>C", "A>Y>B"}
	slices.Sort(gotNodes)

	if !slices.Equal(gotNodes, want) {
		t.Fatalf("selected = %v, want %v", gotNodes, want)
	}
}

func TestSelectClosestForEach_DistanceFilter(t *testing.T) {
	paths := []models.Path{
		path("R", "A", "x", "R", "B"),
		path("S", "C", "S", "D"),
	}

	got := similarity.SelectClosestForEach(paths, similarity.Options{Distance: ptr(1)})
	if len(got) != 1 || nodes(got[0]) != "C>S>D" {
		t.Errorf("selected = %+v", got)
	}
}

func TestSelectByLength(t *testing.T) {
	paths := []models.Path{
		path("A", "A"),
		path("B", "A", "B"),
		path("C", "A", "C", "B"),
		path("D", "A", "x", "D", "B"),
	}

	tests := []struct {
		distance int
		want     int
	}{
		{0, 2},
		{1, 3},
		{5, 4},
	}

	for _, tt := range tests {
		if got := similarity.SelectByLength(paths, tt.distance); len(got) != tt.want {
			t.Errorf("distance %d: %d paths, want %d", tt.distance, len(got), tt.want)
		}
	}
}

func TestSelect_UnknownMethod(t *testing.T) {
	_, err := similarity.Select(nil, similarity.Options{Method: "nearest"})
	if !errors.Is(err, models.ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	if s := similarity.Summarize(nil); s != (similarity.Stats{}) {
		t.Errorf("empty summary = %+v", s)
	}

	s := similarity.Summarize([]models.Path{path("A", "A", "B"), path("C", "A", "C", "x", "B")})
	if s.Min != 2 || s.Max != 4 || s.Sum != 6 || s.Mean != 3 {
		t.Errorf("summary = %+v", s)
	}
}

func TestService_Compute(t *testing.T) {
	left := dataset("left", []string{"X"}, edge("X", "Y"))
	right := dataset("right", []string{"Z"}, edge("Z", "Y"))

	svc := similarity.NewService(testLogger(), 2)

	res, err := svc.Compute(context.Background(), left, right, similarity.Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if res.Metadata.Method != similarity.MethodClosest || res.Metadata.TotalPathCount != 1 || res.Metadata.ResultPathCount != 1 {
		t.Errorf("metadata = %+v", res.Metadata)
	}

	if !slices.Equal(res.Metadata.Datasets, []string{"left", "right"}) {
		t.Errorf("datasets = %v", res.Metadata.Datasets)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{`"totalPathCount":1`, `"mean":3`, `"paths":[{"shared":"Y","nodes":["X","Y","Z"]}]`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("response %s missing %s", data, want)
		}
	}
}

func TestService_ComputeNoPaths(t *testing.T) {
	left := dataset("left", []string{"X"})
	right := dataset("right", []string{"Z"})

	res, err := similarity.NewService(testLogger(), 1).Compute(context.Background(), left, right, similarity.Options{Method: similarity.MethodDistance})
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(data), `"similarity":{}`) || !strings.Contains(string(data), `"paths":[]`) {
		t.Errorf("response = %s", data)
	}
}

func TestDecodeDataset(t *testing.T) {
	ds, err := similarity.DecodeDataset(strings.NewReader(
		`{"@id":"r1","mappings":[{"metadata":{"from":"title"},"data":[{"id":"Q1","metadata":{"group":["a"],"directly_mapped":true}},{"id":"Q2","metadata":{}}]}],"hierarchy":[["Q1","instanceof","Q3"]]}`))
	if err != nil {
		t.Fatal(err)
	}

	if ds.ID != "r1" || !slices.Equal(ds.Entities(), []string{"Q1", "Q2"}) || len(ds.Hierarchy) != 1 {
		t.Errorf("dataset = %+v", ds)
	}

	for _, bad := range []string{`not json`, `{"mappings":[]}`, `{"@id":"x","hierarchy":[["a","b"]]}`} {
		if _, err := similarity.DecodeDataset(strings.NewReader(bad)); !errors.Is(err, models.ErrMalformedInput) {
			t.Errorf("DecodeDataset(%s) error = %v, want ErrMalformedInput", bad, err)
		}
	}
}

func TestDecodeDataset_SubclassShortForm(t *testing.T) {
	ds, err := similarity.DecodeDataset(strings.NewReader(
		`{"@id":"http://a","mappings":[{"metadata":{"from":"title"},"data":[{"id":"Q1"}]}],"hierarchy":[["Q1","subclass","Q2"]]}`))
	if err != nil {
		t.Fatalf("DecodeDataset: %v", err)
	}

	if len(ds.Hierarchy) != 1 || ds.Hierarchy[0].Relation != models.RelationSubclassOf {
		t.Errorf("hierarchy = %+v", ds.Hierarchy)
	}
}
