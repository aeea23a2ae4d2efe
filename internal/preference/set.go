package preference

import (
	"slices"
	"strings"
)

// Set is an unordered collection of strings used by set-valued settings.
type Set map[string]struct{}

// NewSet creates a set holding the given items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports whether the item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Sorted returns the items in ascending order.
func (s Set) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// String joins the sorted items with ", ".
func (s Set) String() string {
	return strings.Join(s.Sorted(), ", ")
}
