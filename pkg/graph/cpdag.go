package graph

// CPDAG returns the completed partially directed graph of the Markov
// equivalence class of dag. Edges taking part in a v-structure a→c←b (a, b
// non-adjacent) stay directed, every other edge is made undirected, and
// [MeekOrient] then propagates the compelled orientations.
//
// dag is not modified. Undirected edges in the input are kept undirected.
func CPDAG(dag *Graph) *Graph {
	p := dag.Size()
	g := New(dag.names)

	for a := 0; a < p; a++ {
		for b := a + 1; b < p; b++ {
			if dag.Adjacent(a, b) {
				g.AddUndirected(a, b)
			}
		}
	}

	for c := 0; c < p; c++ {
		pa := dag.Parents(c)
		for i, a := range pa {
			for _, b := range pa[i+1:] {
				if !dag.Adjacent(a, b) {
					g.AddDirected(a, c)
					g.AddDirected(b, c)
				}
			}
		}
	}

	MeekOrient(g)
	return g
}

// MeekOrient applies Meek rules R1–R4 to g in place until no rule fires.
// Rules are tried in a fixed order over ascending indices, so the result is
// deterministic. It returns the number of edges oriented.
//
//	R1: a→b---c, a,c non-adjacent                        ⇒ b→c
//	R2: a→b→c, a---c                                      ⇒ a→c
//	R3: a---c→b, a---d→b, a---b, c,d non-adjacent         ⇒ a→b
//	R4: a---d→c→b, a---b, a adj c, d,b non-adjacent       ⇒ a→b
func MeekOrient(g *Graph) int {
	p := g.Size()
	oriented := 0
	for changed := true; changed; {
		changed = false
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				if a == b || !g.IsUndirected(a, b) {
					continue
				}
				if meekR1(g, a, b) || meekR2(g, a, b) || meekR3(g, a, b) || meekR4(g, a, b) {
					g.Orient(a, b)
					oriented++
					changed = true
				}
			}
		}
	}
	return oriented
}

// meekR1 reports whether some c→a exists with c and b non-adjacent.
func meekR1(g *Graph, a, b int) bool {
	for c := 0; c < g.Size(); c++ {
		if c != b && g.IsDirected(c, a) && !g.Adjacent(c, b) {
			return true
		}
	}
	return false
}

// meekR2 reports whether a→c→b for some c.
func meekR2(g *Graph, a, b int) bool {
	for c := 0; c < g.Size(); c++ {
		if g.IsDirected(a, c) && g.IsDirected(c, b) {
			return true
		}
	}
	return false
}

// meekR3 reports whether two non-adjacent c, d exist with a---c→b and a---d→b.
func meekR3(g *Graph, a, b int) bool {
	var cands []int
	for c := 0; c < g.Size(); c++ {
		if g.IsUndirected(a, c) && g.IsDirected(c, b) {
			cands = append(cands, c)
		}
	}
	for i, c := range cands {
		for _, d := range cands[i+1:] {
			if !g.Adjacent(c, d) {
				return true
			}
		}
	}
	return false
}

// meekR4 reports whether a---d→c→b for some c adjacent to a and d not
// adjacent to b.
func meekR4(g *Graph, a, b int) bool {
	p := g.Size()
	for c := 0; c < p; c++ {
		if c == a || !g.IsDirected(c, b) || !g.Adjacent(a, c) {
			continue
		}
		for d := 0; d < p; d++ {
			if d != b && g.IsUndirected(a, d) && g.IsDirected(d, c) && !g.Adjacent(d, b) {
				return true
			}
		}
	}
	return false
}
