package models

import "strings"

// Path connects two mapped entities through a shared meeting node. Nodes
// runs from the left endpoint to the right endpoint inclusive.
type Path struct {
	Shared string   `json:"shared"`
	Nodes  []string `json:"nodes"`
}

// Key identifies a path by its meeting node and full node sequence.
func (p Path) Key() string {
	return p.Shared + "\x00" + strings.Join(p.Nodes, "\x00")
}

// Start returns the left endpoint.
func (p Path) Start() string { return p.Nodes[0] }

// End returns the right endpoint.
func (p Path) End() string { return p.Nodes[len(p.Nodes)-1] }

// Len returns the node count.
func (p Path) Len() int { return len(p.Nodes) }
