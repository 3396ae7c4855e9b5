package graph

// IsAcyclic reports whether the directed edges of g form no cycle.
// Undirected edges are ignored.
func IsAcyclic(g *Graph) bool {
	const (
		white = iota
		gray
		black
	)
	p := g.Size()
	color := make([]int, p)
	type frame struct{ v, next int }

	for root := 0; root < p; root++ {
		if color[root] != white {
			continue
		}
		stack := []frame{{root, 0}}
		color[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == p {
				color[top.v] = black
				stack = stack[:len(stack)-1]
				continue
			}
			w := top.next
			top.next++
			if !g.IsDirected(top.v, w) {
				continue
			}
			switch color[w] {
			case gray:
				return false
			case white:
				color[w] = gray
				stack = append(stack, frame{w, 0})
			}
		}
	}
	return true
}

// TopologicalOrder returns an order of a DAG in which every edge points
// forward. Among the available variables the lowest index is emitted first.
func TopologicalOrder(g *Graph) ([]int, error) {
	p := g.Size()
	indeg := make([]int, p)
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			if a == b {
				continue
			}
			if g.IsUndirected(a, b) {
				return nil, ErrUndirectedEdge
			}
			if g.IsDirected(a, b) {
				indeg[b]++
			}
		}
	}

	order := make([]int, 0, p)
	done := make([]bool, p)
	for len(order) < p {
		next := -1
		for v := 0; v < p; v++ {
			if !done[v] && indeg[v] == 0 {
				next = v
				break
			}
		}
		if next < 0 {
			return nil, ErrGraphHasCycle
		}
		done[next] = true
		order = append(order, next)
		for _, w := range g.Children(next) {
			indeg[w]--
		}
	}
	return order, nil
}

// ExtendToDAG returns a DAG in the equivalence class described by pdag,
// using the Dor–Tarsi procedure: repeatedly remove a sink x whose
// undirected neighbours are adjacent to every other neighbour of x,
// orienting those undirected edges into x. Candidates are tried in
// ascending index order.
func ExtendToDAG(pdag *Graph) (*Graph, error) {
	p := pdag.Size()
	out := pdag.Clone()
	work := pdag.Clone()
	removed := make([]bool, p)

	for left := p; left > 0; left-- {
		x := -1
		for v := 0; v < p && x < 0; v++ {
			if !removed[v] && isExtensionSink(work, removed, v) {
				x = v
			}
		}
		if x < 0 {
			return nil, ErrNoExtension
		}
		for _, y := range work.Neighbors(x) {
			if !removed[y] {
				out.AddDirected(y, x)
			}
		}
		for u := 0; u < p; u++ {
			work.RemoveEdge(u, x)
		}
		removed[x] = true
	}
	return out, nil
}

func isExtensionSink(g *Graph, removed []bool, x int) bool {
	p := g.Size()
	for w := 0; w < p; w++ {
		if !removed[w] && g.IsDirected(x, w) {
			return false
		}
	}
	adj := g.Adjacents(x)
	for _, y := range g.Neighbors(x) {
		for _, z := range adj {
			if z != y && !g.Adjacent(y, z) {
				return false
			}
		}
	}
	return true
}

// Ancestors returns the variables with a directed path into v, including v
// itself, as a membership slice indexed by variable.
func Ancestors(g *Graph, v int) []bool {
	seen := make([]bool, g.Size())
	seen[v] = true
	stack := []int{v}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range g.Parents(x) {
			if !seen[u] {
				seen[u] = true
				stack = append(stack, u)
			}
		}
	}
	return seen
}
