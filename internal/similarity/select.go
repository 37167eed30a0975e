package similarity

import (
	"fmt"

	"github.com/odinkg/odin/internal/models"
)

// Path selection methods.
const (
	MethodClosest  = "closest"
	MethodDistance = "distance"
)

// Options controls path selection.
type Options struct {
	Method   string `json:"method,omitempty"`
	Distance *int   `json:"distance,omitempty"`
}

// MethodOrDefault returns the configured method, closest when unset.
func (o Options) MethodOrDefault() string {
	if o.Method == "" {
		return MethodClosest
	}

	return o.Method
}

// Validate rejects unknown methods and negative distances.
func (o Options) Validate() error {
	switch o.MethodOrDefault() {
	case MethodClosest, MethodDistance:
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownMethod, o.Method)
	}

	if o.Distance != nil && *o.Distance < 0 {
		return fmt.Errorf("%w: distance must not be negative", models.ErrMalformedInput)
	}

	return nil
}

// Select applies the selection method of opts.
func Select(paths []models.Path, opts Options) ([]models.Path, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.MethodOrDefault() == MethodDistance {
		distance := 0
		if opts.Distance != nil {
			distance = *opts.Distance
		}

		return SelectByLength(paths, distance), nil
	}

	return SelectClosestForEach(paths, opts), nil
}

// SelectByLength keeps paths with at most distance+2 nodes, so distance 0
// keeps paths between directly connected entities.
func SelectByLength(paths []models.Path, distance int) []models.Path {
	limit := distance + 2
	out := make([]models.Path, 0, len(paths))

	for _, p := range paths {
		if p.Len() <= limit {
			out = append(out, p)
		}
	}

	return out
}

// SelectClosestForEach keeps, for every path endpoint, the shortest path
// touching it. Earlier paths win ties. When opts carries a distance the
// result is also filtered by length.
func SelectClosestForEach(paths []models.Path, opts Options) []models.Path {
	order := make([]string, 0)
	shortest := make(map[string]models.Path)

	update := func(node string, p models.Path) {
		current, ok := shortest[node]
		if !ok {
			order = append(order, node)
			shortest[node] = p

			return
		}

		if p.Len() < current.Len() {
			shortest[node] = p
		}
	}

	for _, p := range paths {
		update(p.Start(), p)
		update(p.End(), p)
	}

	seen := make(map[string]struct{})
	out := make([]models.Path, 0, len(order))

	for _, node := range order {
		p := shortest[node]
		if _, dup := seen[p.Key()]; dup {
			continue
		}

		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}

	if opts.Distance != nil {
		out = SelectByLength(out, *opts.Distance)
	}

	return out
}
