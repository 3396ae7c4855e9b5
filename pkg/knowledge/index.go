package knowledge

import (
	"slices"

	"github.com/matzehuels/causeway/pkg/errors"
)

// Index is knowledge compiled against a fixed variable universe. Variables
// are addressed by index 0..p-1. An Index is immutable and safe for
// concurrent use.
//
// A nil *Index behaves as empty knowledge.
type Index struct {
	p         int
	forbidden map[[2]int]bool
	required  map[[2]int]bool
	tier      []int
	// before[v] lists the variables that must precede v.
	before [][]int
	empty  bool
}

// Compile resolves k against names. It fails with UNKNOWN_VARIABLE when a
// constraint names a variable outside the universe and INVALID_KNOWLEDGE
// when the constraints admit no consistent order.
func (k Knowledge) Compile(names []string) (*Index, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, errors.New(errors.ErrCodeUnknownVariable, "knowledge refers to unknown variable %q", name)
		}
		return i, nil
	}

	idx := &Index{
		p:         len(names),
		forbidden: make(map[[2]int]bool),
		required:  make(map[[2]int]bool),
		tier:      make([]int, len(names)),
		before:    make([][]int, len(names)),
		empty:     k.Empty(),
	}
	for i := range idx.tier {
		idx.tier[i] = -1
	}

	addBefore := func(a, b int) {
		if !slices.Contains(idx.before[b], a) {
			idx.before[b] = append(idx.before[b], a)
		}
	}
	for _, pr := range k.forbidden {
		a, err := lookup(pr.From)
		if err != nil {
			return nil, err
		}
		b, err := lookup(pr.To)
		if err != nil {
			return nil, err
		}
		idx.forbidden[[2]int{a, b}] = true
		addBefore(b, a)
	}
	for _, pr := range k.required {
		a, err := lookup(pr.From)
		if err != nil {
			return nil, err
		}
		b, err := lookup(pr.To)
		if err != nil {
			return nil, err
		}
		idx.required[[2]int{a, b}] = true
		addBefore(a, b)
	}

	var prev []int
	for t, tierNames := range k.tiers {
		var cur []int
		for _, n := range tierNames {
			v, err := lookup(n)
			if err != nil {
				return nil, err
			}
			idx.tier[v] = t
			cur = append(cur, v)
		}
		if len(cur) == 0 {
			continue
		}
		// Linking consecutive non-empty tiers is enough; precedence is transitive.
		for _, a := range prev {
			for _, b := range cur {
				addBefore(a, b)
			}
		}
		prev = cur
	}

	identity := make([]int, len(names))
	for i := range identity {
		identity[i] = i
	}
	if _, ok := idx.kahn(identity); !ok {
		return nil, errors.New(errors.ErrCodeInvalidKnowledge, "knowledge constraints form a cycle; no order satisfies them")
	}
	return idx, nil
}

// Size returns the size of the variable universe.
func (x *Index) Size() int {
	if x == nil {
		return 0
	}
	return x.p
}

// Empty reports whether the index carries no constraints.
func (x *Index) Empty() bool { return x == nil || x.empty }

// IsForbidden reports whether a is forbidden from preceding b.
func (x *Index) IsForbidden(a, b int) bool {
	return x != nil && x.forbidden[[2]int{a, b}]
}

// IsRequired reports whether a is required to precede b.
func (x *Index) IsRequired(a, b int) bool {
	return x != nil && x.required[[2]int{a, b}]
}

// ForbiddenParent reports whether parent may not be chosen as a parent of
// child.
func (x *Index) ForbiddenParent(parent, child int) bool {
	if x == nil {
		return false
	}
	if x.forbidden[[2]int{parent, child}] || x.required[[2]int{child, parent}] {
		return true
	}
	tp, tc := x.tier[parent], x.tier[child]
	return tp >= 0 && tc >= 0 && tp > tc
}

// Tier returns the tier of v, or -1 if untiered.
func (x *Index) Tier(v int) int {
	if x == nil {
		return -1
	}
	return x.tier[v]
}

// Violates reports whether order breaks any constraint. The check is global
// over the whole order.
func (x *Index) Violates(order []int) bool {
	if x.Empty() {
		return false
	}
	pos := make([]int, x.p)
	for i, v := range order {
		pos[v] = i
	}
	for v, preds := range x.before {
		for _, u := range preds {
			if pos[u] > pos[v] {
				return true
			}
		}
	}
	return false
}

// Repair returns the consistent order closest to order: a stable
// topological sort of the precedence constraints that keeps the relative
// order of order wherever the constraints allow. A consistent order is
// returned unchanged.
func (x *Index) Repair(order []int) []int {
	if !x.Violates(order) {
		return slices.Clone(order)
	}
	out, _ := x.kahn(order)
	return out
}

// kahn runs Kahn's algorithm over the precedence graph, always emitting the
// available variable that comes first in order.
func (x *Index) kahn(order []int) ([]int, bool) {
	indeg := make([]int, x.p)
	after := make([][]int, x.p)
	for v, preds := range x.before {
		indeg[v] = len(preds)
		for _, u := range preds {
			after[u] = append(after[u], v)
		}
	}

	out := make([]int, 0, x.p)
	done := make([]bool, x.p)
	for len(out) < x.p {
		next := -1
		for _, v := range order {
			if !done[v] && indeg[v] == 0 {
				next = v
				break
			}
		}
		if next < 0 {
			return nil, false
		}
		done[next] = true
		out = append(out, next)
		for _, w := range after[next] {
			indeg[w]--
		}
	}
	return out, true
}
