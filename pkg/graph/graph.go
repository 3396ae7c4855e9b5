package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrGraphHasCycle is returned by [TopologicalOrder] when the directed
	// edges contain a cycle.
	ErrGraphHasCycle = errors.New("graph contains a cycle")

	// ErrUndirectedEdge is returned by [TopologicalOrder] when the graph still
	// has undirected edges. Use [ExtendToDAG] first.
	ErrUndirectedEdge = errors.New("graph has undirected edges")

	// ErrNoExtension is returned by [ExtendToDAG] when the PDAG admits no
	// consistent DAG extension.
	ErrNoExtension = errors.New("no consistent DAG extension")

	// ErrUnknownNode is returned when decoding a graph whose edges refer to
	// undeclared nodes.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateNode is returned when decoding a graph that declares a
	// node twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrSelfLoop is returned when decoding an edge from a node to itself.
	ErrSelfLoop = errors.New("self-loop")

	// ErrConflictingEdge is returned when decoding two edges of different
	// kinds between the same pair, such as a→b and b→a. A Graph holds at
	// most one edge per pair.
	ErrConflictingEdge = errors.New("conflicting edges")
)

// EdgeType distinguishes directed from undirected edges.
type EdgeType string

const (
	Directed   EdgeType = "directed"
	Undirected EdgeType = "undirected"
)

// Edge is one edge of a graph. Undirected edges are reported with From < To.
type Edge struct {
	From int
	To   int
	Type EdgeType
}

// Graph is a partially directed graph over named variables.
//
// Internally it is an endpoint matrix: mark[a][b] means the edge between a
// and b may be traversed from a to b. a→b sets only mark[a][b]; a---b sets
// both.
type Graph struct {
	names []string
	mark  [][]bool
}

// New returns an empty graph over names.
func New(names []string) *Graph {
	p := len(names)
	m := make([][]bool, p)
	for i := range m {
		m[i] = make([]bool, p)
	}
	return &Graph{names: slices.Clone(names), mark: m}
}

// FromParents builds a DAG where every parents[v] member points into v.
// It panics if v lists itself or if u and v list each other, since a Graph
// holds at most one edge per pair.
func FromParents(names []string, parents [][]int) *Graph {
	g := New(names)
	for v, pa := range parents {
		for _, u := range pa {
			switch {
			case u == v:
				panic(fmt.Sprintf("graph: %s lists itself as a parent", names[v]))
			case g.IsDirected(v, u):
				panic(fmt.Sprintf("graph: %s and %s list each other as parents", names[u], names[v]))
			}
			g.AddDirected(u, v)
		}
	}
	return g
}

// Size returns the number of variables.
func (g *Graph) Size() int { return len(g.names) }

// Names returns the variable names in index order.
func (g *Graph) Names() []string { return slices.Clone(g.names) }

// Name returns the name of variable v.
func (g *Graph) Name(v int) string { return g.names[v] }

// Index returns the index of name, or -1.
func (g *Graph) Index(name string) int { return slices.Index(g.names, name) }

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := New(g.names)
	for i := range g.mark {
		copy(c.mark[i], g.mark[i])
	}
	return c
}

// AddDirected adds a→b, replacing any existing edge between a and b.
func (g *Graph) AddDirected(a, b int) {
	g.mark[a][b], g.mark[b][a] = true, false
}

// AddUndirected adds a---b, replacing any existing edge between a and b.
func (g *Graph) AddUndirected(a, b int) {
	g.mark[a][b], g.mark[b][a] = true, true
}

// RemoveEdge removes any edge between a and b.
func (g *Graph) RemoveEdge(a, b int) {
	g.mark[a][b], g.mark[b][a] = false, false
}

// Orient turns an adjacency between a and b into a→b.
func (g *Graph) Orient(a, b int) { g.AddDirected(a, b) }

// Adjacent reports whether a and b share any edge.
func (g *Graph) Adjacent(a, b int) bool { return g.mark[a][b] || g.mark[b][a] }

// IsDirected reports whether a→b is in g.
func (g *Graph) IsDirected(a, b int) bool { return g.mark[a][b] && !g.mark[b][a] }

// IsUndirected reports whether a---b is in g.
func (g *Graph) IsUndirected(a, b int) bool { return g.mark[a][b] && g.mark[b][a] }

// Parents returns the u with u→v, ascending.
func (g *Graph) Parents(v int) []int {
	return g.collect(func(u int) bool { return g.IsDirected(u, v) })
}

// Children returns the w with v→w, ascending.
func (g *Graph) Children(v int) []int {
	return g.collect(func(w int) bool { return g.IsDirected(v, w) })
}

// Neighbors returns the u with u---v, ascending.
func (g *Graph) Neighbors(v int) []int {
	return g.collect(func(u int) bool { return g.IsUndirected(u, v) })
}

// Adjacents returns every variable adjacent to v, ascending.
func (g *Graph) Adjacents(v int) []int {
	return g.collect(func(u int) bool { return u != v && g.Adjacent(u, v) })
}

func (g *Graph) collect(keep func(int) bool) []int {
	var out []int
	for u := range g.names {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	var out []Edge
	p := g.Size()
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			switch {
			case g.IsDirected(a, b):
				out = append(out, Edge{From: a, To: b, Type: Directed})
			case a < b && g.IsUndirected(a, b):
				out = append(out, Edge{From: a, To: b, Type: Undirected})
			}
		}
	}
	return out
}

// NumEdges returns the number of edges of either kind.
func (g *Graph) NumEdges() int {
	n := 0
	p := g.Size()
	for a := 0; a < p; a++ {
		for b := a + 1; b < p; b++ {
			if g.Adjacent(a, b) {
				n++
			}
		}
	}
	return n
}

// Equal reports whether g and h have the same names and edges.
func (g *Graph) Equal(h *Graph) bool {
	if !slices.Equal(g.names, h.names) {
		return false
	}
	for i := range g.mark {
		if !slices.Equal(g.mark[i], h.mark[i]) {
			return false
		}
	}
	return true
}

// String renders g as "A --> B; B --- C".
func (g *Graph) String() string {
	edges := g.Edges()
	parts := make([]string, len(edges))
	for i, e := range edges {
		arrow := "-->"
		if e.Type == Undirected {
			arrow = "---"
		}
		parts[i] = fmt.Sprintf("%s %s %s", g.names[e.From], arrow, g.names[e.To])
	}
	return strings.Join(parts, "; ")
}
