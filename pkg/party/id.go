// Package party defines party identifiers used throughout a ceremony.
package party

import "sort"

// ID identifies a party within a ceremony. A party's ID is stable across
// the lifetime of a share but its numeric index (its position within an
// ordered VerifiedParties roster) may change across re-sharing.
type ID string

// IDSlice is a sortable, searchable collection of party IDs.
type IDSlice []ID

func (p IDSlice) Len() int           { return len(p) }
func (p IDSlice) Less(i, j int) bool { return p[i] < p[j] }
func (p IDSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Sort returns a sorted copy of the slice.
func (p IDSlice) Sort() IDSlice {
	out := make(IDSlice, len(p))
	copy(out, p)
	sort.Sort(out)
	return out
}

// Contains reports whether id is present in the slice.
func (p IDSlice) Contains(id ID) bool {
	for _, other := range p {
		if other == id {
			return true
		}
	}
	return false
}
