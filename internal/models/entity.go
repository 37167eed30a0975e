package models

// Entity is a knowledge-graph entity as seen by the term mapper. Identity
// is the code only.
type Entity struct {
	Code    string
	Label   []string
	Aliases [][]string
}

// TermGroups returns the label followed by every alias.
func (e *Entity) TermGroups() [][]string {
	groups := make([][]string, 0, len(e.Aliases)+1)
	groups = append(groups, e.Label)

	return append(groups, e.Aliases...)
}

// EntityLine is one line of the entity dump.
type EntityLine struct {
	ID      string     `json:"id"`
	Label   []string   `json:"label,omitempty"`
	Aliases [][]string `json:"aliases,omitempty"`
}

// HierarchyLine is one line of the hierarchy dump.
type HierarchyLine struct {
	ID         string   `json:"id"`
	InstanceOf []string `json:"instanceof,omitempty"`
	SubclassOf []string `json:"subclassof,omitempty"`
}

// Ancestor entry types.
const (
	AncestorFound    = ""
	AncestorNotFound = "not-found"
)

// Ancestors is the resolved is-a parents of one entity.
type Ancestors struct {
	InstanceOf []string
	SubclassOf []string
	Type       string
}

// Parents returns subclassof parents when present, else instanceof parents,
// with the relation they were taken from.
func (a Ancestors) Parents() (string, []string) {
	if len(a.SubclassOf) > 0 {
		return RelationSubclassOf, a.SubclassOf
	}

	return RelationInstanceOf, a.InstanceOf
}
