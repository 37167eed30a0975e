package models

import (
	"encoding/json"
	"fmt"
)

// Hierarchy relations. subclassof takes precedence over instanceof when
// resolving ancestors.
const (
	RelationInstanceOf = "instanceof"
	RelationSubclassOf = "subclassof"

	// relationSubclass is the short form older record documents carry.
	relationSubclass = "subclass"
)

// HierarchyEdge is a directed is-a edge. On the wire it is a
// [source, relation, target] triple.
type HierarchyEdge struct {
	Source   string
	Relation string
	Target   string
}

// MarshalJSON encodes the edge as a three element array.
func (e HierarchyEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{e.Source, e.Relation, e.Target})
}

// UnmarshalJSON decodes a [source, relation, target] triple.
func (e *HierarchyEdge) UnmarshalJSON(data []byte) error {
	var triple []string
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("%w: hierarchy edge: %v", ErrMalformedInput, err)
	}

	if len(triple) != 3 {
		return fmt.Errorf("%w: hierarchy edge has %d elements, want 3", ErrMalformedInput, len(triple))
	}

	e.Source, e.Relation, e.Target = triple[0], triple[1], triple[2]
	if e.Relation == relationSubclass {
		e.Relation = RelationSubclassOf
	}

	return nil
}

// Validate checks that the edge has both endpoints and a known relation.
func (e HierarchyEdge) Validate() error {
	if e.Source == "" {
		return ErrMissingField("edge source")
	}

	if e.Target == "" {
		return ErrMissingField("edge target")
	}

	if e.Relation != RelationInstanceOf && e.Relation != RelationSubclassOf {
		return fmt.Errorf("%w: unknown relation %q", ErrMalformedInput, e.Relation)
	}

	return nil
}

// Touches reports whether either endpoint is in ids.
func (e HierarchyEdge) Touches(ids map[string]struct{}) bool {
	if _, ok := ids[e.Source]; ok {
		return true
	}

	_, ok := ids[e.Target]

	return ok
}
