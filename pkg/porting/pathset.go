package porting

import (
	"maps"
	"slices"
)

// PathSet is a set of top-level path names.
type PathSet map[string]struct{}

// NewPathSet returns a set holding names.
func NewPathSet(names ...string) PathSet {
	set := make(PathSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	return set
}

// Add inserts every name of other.
func (s PathSet) Add(other PathSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

// Remove deletes every name of other.
func (s PathSet) Remove(other PathSet) {
	for name := range other {
		delete(s, name)
	}
}

// Has reports membership.
func (s PathSet) Has(name string) bool {
	_, ok := s[name]

	return ok
}

// Minus returns the names of s absent from other.
func (s PathSet) Minus(other PathSet) PathSet {
	out := make(PathSet, len(s))

	for name := range s {
		if !other.Has(name) {
			out[name] = struct{}{}
		}
	}

	return out
}

// Clone copies the set.
func (s PathSet) Clone() PathSet {
	return maps.Clone(s)
}

// Equal reports whether both sets hold the same names.
func (s PathSet) Equal(other PathSet) bool {
	if len(s) != len(other) {
		return false
	}

	for name := range s {
		if !other.Has(name) {
			return false
		}
	}

	return true
}

// Sorted returns the names in lexical order.
func (s PathSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
