// Package knowledge models background knowledge for structure search:
// forbidden and required precedences between named variables, plus an
// optional temporal tier partition.
//
// A [Knowledge] is an immutable value. Every setter returns a new value and
// leaves the receiver untouched, so one Knowledge can be shared freely
// between searches:
//
//	k := knowledge.New().
//	    Require("age", "income").
//	    Forbid("income", "age").
//	    WithTier(0, "age", "sex")
//
// Search code does not query names directly; it compiles the knowledge
// against the variable list of a score with [Knowledge.Compile], which
// resolves names to indices and rejects unknown or contradictory input.
//
// # Semantics
//
// For an order π:
//   - Forbid(a, b) is violated when a is placed before b. The edge a→b is
//     also excluded as a parent choice.
//   - Require(a, b) is violated when a is placed after b.
//   - Tiers are violated when a variable of a higher tier is placed before a
//     variable of a lower tier. Untiered variables are unconstrained.
package knowledge

import (
	"slices"

	"github.com/matzehuels/causeway/pkg/errors"
)

// Pair is an ordered pair of variable names.
type Pair struct {
	From string `json:"from" toml:"from"`
	To   string `json:"to" toml:"to"`
}

// Knowledge is an immutable set of precedence constraints.
// The zero value is empty knowledge and ready to use.
type Knowledge struct {
	forbidden []Pair
	required  []Pair
	tiers     [][]string
}

// New returns empty knowledge.
func New() Knowledge { return Knowledge{} }

// Forbid returns a copy of k in which a must not precede b.
func (k Knowledge) Forbid(a, b string) Knowledge {
	out := k.clone()
	p := Pair{a, b}
	if !slices.Contains(out.forbidden, p) {
		out.forbidden = append(out.forbidden, p)
	}
	return out
}

// Require returns a copy of k in which a must precede b.
func (k Knowledge) Require(a, b string) Knowledge {
	out := k.clone()
	p := Pair{a, b}
	if !slices.Contains(out.required, p) {
		out.required = append(out.required, p)
	}
	return out
}

// WithTier returns a copy of k with names added to tier t. Tiers are
// numbered from zero; earlier tiers precede later ones. A name already in
// another tier is moved.
func (k Knowledge) WithTier(t int, names ...string) Knowledge {
	out := k.clone()
	for i := range out.tiers {
		out.tiers[i] = slices.DeleteFunc(out.tiers[i], func(n string) bool {
			return slices.Contains(names, n)
		})
	}
	for len(out.tiers) <= t {
		out.tiers = append(out.tiers, nil)
	}
	for _, n := range names {
		if !slices.Contains(out.tiers[t], n) {
			out.tiers[t] = append(out.tiers[t], n)
		}
	}
	return out
}

// IsForbidden reports whether a is forbidden from preceding b.
func (k Knowledge) IsForbidden(a, b string) bool {
	return slices.Contains(k.forbidden, Pair{a, b})
}

// IsRequired reports whether a is required to precede b.
func (k Knowledge) IsRequired(a, b string) bool {
	return slices.Contains(k.required, Pair{a, b})
}

// Tier returns the tier of name, or -1 if it is untiered.
func (k Knowledge) Tier(name string) int {
	for t, names := range k.tiers {
		if slices.Contains(names, name) {
			return t
		}
	}
	return -1
}

// Forbidden returns a copy of the forbidden pairs in insertion order.
func (k Knowledge) Forbidden() []Pair { return slices.Clone(k.forbidden) }

// Required returns a copy of the required pairs in insertion order.
func (k Knowledge) Required() []Pair { return slices.Clone(k.required) }

// Tiers returns a copy of the tier partition.
func (k Knowledge) Tiers() [][]string {
	out := make([][]string, len(k.tiers))
	for i, t := range k.tiers {
		out[i] = slices.Clone(t)
	}
	return out
}

// Empty reports whether k has no constraints.
func (k Knowledge) Empty() bool {
	if len(k.forbidden) > 0 || len(k.required) > 0 {
		return false
	}
	for _, t := range k.tiers {
		if len(t) > 0 {
			return false
		}
	}
	return true
}

// Validate checks k for internal contradictions that do not depend on the
// variable universe: a pair both forbidden and required, a pair with
// itself, and required precedences that contradict the tiers.
func (k Knowledge) Validate() error {
	for _, p := range append(slices.Clone(k.forbidden), k.required...) {
		if p.From == p.To {
			return errors.New(errors.ErrCodeInvalidKnowledge, "constraint %q -> %q relates a variable to itself", p.From, p.To)
		}
	}
	for _, p := range k.required {
		if k.IsForbidden(p.From, p.To) {
			return errors.New(errors.ErrCodeInvalidKnowledge, "%q -> %q is both forbidden and required", p.From, p.To)
		}
		ta, tb := k.Tier(p.From), k.Tier(p.To)
		if ta >= 0 && tb >= 0 && ta > tb {
			return errors.New(errors.ErrCodeInvalidKnowledge, "%q -> %q is required but %q is in a later tier", p.From, p.To, p.From)
		}
	}
	return nil
}

// Variables returns every name mentioned by k, sorted.
func (k Knowledge) Variables() []string {
	seen := make(map[string]bool)
	for _, p := range k.forbidden {
		seen[p.From], seen[p.To] = true, true
	}
	for _, p := range k.required {
		seen[p.From], seen[p.To] = true, true
	}
	for _, t := range k.tiers {
		for _, n := range t {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (k Knowledge) clone() Knowledge {
	return Knowledge{
		forbidden: slices.Clone(k.forbidden),
		required:  slices.Clone(k.required),
		tiers:     k.Tiers(),
	}
}
