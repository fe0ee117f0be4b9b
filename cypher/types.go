package cypher

import "fmt"

// Direction selects the arrow orientation of a relationship pattern.
type Direction int

const (
	// Outgoing matches (a)-[r:TYPE]->(b).
	Outgoing Direction = iota
	// Incoming matches (a)<-[r:TYPE]-(b).
	Incoming
	// Both matches (a)-[r:TYPE]-(b) regardless of orientation.
	Both
)

// String returns the arrow fragment for the direction, for debugging.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "->"
	case Incoming:
		return "<-"
	case Both:
		return "-"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// IsValid reports whether the direction is one of the defined constants.
func (d Direction) IsValid() bool {
	switch d {
	case Outgoing, Incoming, Both:
		return true
	default:
		return false
	}
}

// Result is the value produced by Builder.Build: the query text, the
// out-of-band parameter map, a heuristic complexity score, and any
// non-fatal warnings accumulated while building.
type Result struct {
	Query      string
	Parameters map[string]any
	Complexity int
	Warnings   []string
}
