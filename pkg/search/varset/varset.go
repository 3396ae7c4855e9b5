// Package varset implements small fixed-universe bit sets over variable
// indices. The search core uses them for prefixes, grow/shrink candidate
// pools and ancestor sets, where map-based sets would dominate the profile.
package varset

import (
	"math/bits"
	"strings"
)

// Set is a bit set over the universe 0..n-1. The zero value is an empty set
// over an empty universe; use New to size it.
type Set struct {
	words []uint64
}

// New returns an empty set able to hold indices 0..n-1.
func New(n int) Set {
	return Set{words: make([]uint64, (n+63)/64)}
}

// Of returns a set sized for n containing the given members.
func Of(n int, members ...int) Set {
	s := New(n)
	for _, m := range members {
		s.Add(m)
	}
	return s
}

// Add inserts i. It panics if i is outside the universe.
func (s Set) Add(i int) { s.words[i>>6] |= 1 << (uint(i) & 63) }

// Remove deletes i. It panics if i is outside the universe.
func (s Set) Remove(i int) { s.words[i>>6] &^= 1 << (uint(i) & 63) }

// Has reports whether i is a member. Indices outside the universe are never
// members.
func (s Set) Has(i int) bool {
	w := i >> 6
	if i < 0 || w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(i)&63)) != 0
}

// Len returns the number of members.
func (s Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := Set{words: make([]uint64, len(s.words))}
	copy(c.words, s.words)
	return c
}

// Clear removes every member, keeping the universe size.
func (s Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// Intersect returns s ∩ o as a new set.
func (s Set) Intersect(o Set) Set {
	c := s.Clone()
	for i := range c.words {
		if i < len(o.words) {
			c.words[i] &= o.words[i]
		} else {
			c.words[i] = 0
		}
	}
	return c
}

// Members returns the members in ascending order.
func (s Set) Members() []int {
	out := make([]int, 0, s.Len())
	for wi, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi<<6+b)
			w &= w - 1
		}
	}
	return out
}

// Key returns a compact string usable as a map key. Two sets over the same
// universe have equal keys iff they have equal members.
func (s Set) Key() string {
	var b strings.Builder
	b.Grow(len(s.words) * 8)
	for _, w := range s.words {
		for k := 0; k < 8; k++ {
			b.WriteByte(byte(w >> (8 * k)))
		}
	}
	return b.String()
}
