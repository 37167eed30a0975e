package similarity

import (
	"slices"
	"sort"

	"github.com/odinkg/odin/internal/models"
)

// Graph is the upward adjacency of the combined hierarchy of two datasets.
type Graph struct {
	adj map[string][]string
}

// NewGraph builds the adjacency of the distinct edges of every list.
func NewGraph(hierarchies ...[]models.HierarchyEdge) *Graph {
	sets := make(map[string]map[string]struct{})

	for _, edges := range hierarchies {
		for _, e := range edges {
			targets, ok := sets[e.Source]
			if !ok {
				targets = make(map[string]struct{})
				sets[e.Source] = targets
			}

			targets[e.Target] = struct{}{}
		}
	}

	adj := make(map[string][]string, len(sets))
	for source, targets := range sets {
		list := make([]string, 0, len(targets))
		for t := range targets {
			list = append(list, t)
		}

		sort.Strings(list)
		adj[source] = list
	}

	return &Graph{adj: adj}
}

// FindPaths runs a bidirectional breadth-first search upward from left and
// right. It returns one path per meeting node of the first round in which
// the two searches touch, or nil when they never do.
func (g *Graph) FindPaths(left, right string) []models.Path {
	if left == right {
		return []models.Path{{Shared: left, Nodes: []string{left}}}
	}

	leftPaths := map[string][]string{left: {left}}
	rightPaths := map[string][]string{right: {right}}
	leftLevel := []string{left}
	rightLevel := []string{right}

	for len(leftLevel) > 0 || len(rightLevel) > 0 {
		leftLevel = g.expand(leftLevel, leftPaths)
		rightLevel = g.expand(rightLevel, rightPaths)

		// Each path map already holds its new level, so this covers the new
		// levels meeting each other and either side's earlier visits.
		meeting := make(map[string]struct{})
		intersect(meeting, leftLevel, rightPaths)
		intersect(meeting, rightLevel, leftPaths)

		if len(meeting) == 0 {
			continue
		}

		shared := make([]string, 0, len(meeting))
		for node := range meeting {
			shared = append(shared, node)
		}

		sort.Strings(shared)

		paths := make([]models.Path, 0, len(shared))
		for _, node := range shared {
			paths = append(paths, join(node, leftPaths[node], rightPaths[node]))
		}

		return paths
	}

	return nil
}

// expand visits the unvisited targets of level in sorted order. The first
// path to reach a node is kept.
func (g *Graph) expand(level []string, paths map[string][]string) []string {
	next := make([]string, 0)

	for _, source := range level {
		for _, target := range g.adj[source] {
			if _, seen := paths[target]; seen {
				continue
			}

			path := make([]string, len(paths[source]), len(paths[source])+1)
			copy(path, paths[source])
			paths[target] = append(path, target)
			next = append(next, target)
		}
	}

	sort.Strings(next)

	return next
}

func join(shared string, left, right []string) models.Path {
	reversed := slices.Clone(right)
	slices.Reverse(reversed)

	nodes := make([]string, 0, len(left)+len(reversed))
	nodes = append(nodes, left...)
	nodes = append(nodes, reversed[1:]...)

	return models.Path{Shared: shared, Nodes: nodes}
}

func intersect(into map[string]struct{}, level []string, visited map[string][]string) {
	for _, n := range level {
		if _, ok := visited[n]; ok {
			into[n] = struct{}{}
		}
	}
}
