package school

import "fmt"

// Pair is an unordered pair of mutually opposite schools.
type Pair struct {
	A School
	B School
}

// DefaultPairs are the four opposite pairs of the standard topology.
var DefaultPairs = []Pair{
	{Fire, Water},
	{Earth, Air},
	{Light, Shadow},
	{Life, Death},
}

var defaultGraph = mustGraph(DefaultPairs)

// Graph is an immutable opposite relation over the schools.
// A school may have no opposite when the graph is built from a partial pair list.
type Graph struct {
	opposite [Count]School
	hasOpp   [Count]bool
}

// Default returns the standard graph built from DefaultPairs.
func Default() *Graph {
	return defaultGraph
}

// NewGraph builds a Graph from pairs.
//
// Precondition: pairs must be disjoint, reference valid schools, and never pair a school with itself.
// Postcondition: Returns a Graph whose opposite relation is symmetric, or a non-nil error.
func NewGraph(pairs []Pair) (*Graph, error) {
	g := &Graph{}
	for _, p := range pairs {
		if !p.A.Valid() || !p.B.Valid() {
			return nil, fmt.Errorf("pair %s/%s references an unknown school", p.A, p.B)
		}
		if p.A == p.B {
			return nil, fmt.Errorf("school %s cannot be its own opposite", p.A)
		}
		if g.hasOpp[p.A] || g.hasOpp[p.B] {
			return nil, fmt.Errorf("pair %s/%s overlaps an existing pair", p.A, p.B)
		}
		g.opposite[p.A], g.hasOpp[p.A] = p.B, true
		g.opposite[p.B], g.hasOpp[p.B] = p.A, true
	}
	return g, nil
}

func mustGraph(pairs []Pair) *Graph {
	g, err := NewGraph(pairs)
	if err != nil {
		panic(err)
	}
	return g
}

// Opposite returns the school opposite s and whether one is configured.
func (g *Graph) Opposite(s School) (School, bool) {
	if !s.Valid() || !g.hasOpp[s] {
		return 0, false
	}
	return g.opposite[s], true
}
