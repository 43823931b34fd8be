// Package span locates category values inside an address string as
// character-offset windows, with optional tracking of already-consumed
// positions so repeated or colliding values resolve to later occurrences.
package span

import (
	"sort"
	"strings"
)

// categoryRank orders the address component vocabulary the way the upstream
// classifier emits it. Unknown categories sort after known ones, by name.
var categoryRank = map[string]int{
	"prov":          0,
	"city":          1,
	"district":      2,
	"town":          3,
	"community":     4,
	"devzone":       5,
	"road":          6,
	"roadno":        7,
	"intersection":  8,
	"poi":           9,
	"subpoi":        10,
	"houseno":       11,
	"cellno":        12,
	"floorno":       13,
	"roomno":        14,
	"assist":        15,
	"distance":      16,
	"village_group": 17,
}

// OrderedCategories returns the map's keys in canonical order. Go map
// iteration is randomized; every category walk in the engine goes through
// here so identical inputs always produce identical outputs.
func OrderedCategories(entities map[string]string) []string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := categoryRank[keys[i]]
		rj, jok := categoryRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// SplitValues splits a raw category value on "," and trims each candidate,
// dropping empties. A comma-joined value represents multiple distinct
// occurrences of the category in the text.
func SplitValues(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Used is a set of consumed character positions, threaded explicitly through
// searches instead of held as shared state, so callers stay pure.
type Used struct {
	positions map[int]struct{}
}

// NewUsed returns an empty consumed-position set.
func NewUsed() *Used {
	return &Used{positions: make(map[int]struct{})}
}

// Overlaps reports whether any position in [start, end) is consumed.
func (u *Used) Overlaps(start, end int) bool {
	for i := start; i < end; i++ {
		if _, ok := u.positions[i]; ok {
			return true
		}
	}
	return false
}

// Mark consumes every position in [start, end).
func (u *Used) Mark(start, end int) {
	for i := start; i < end; i++ {
		u.positions[i] = struct{}{}
	}
}

// Contains reports whether a single position is consumed.
func (u *Used) Contains(pos int) bool {
	_, ok := u.positions[pos]
	return ok
}

// Index returns the rune offset of the first occurrence of needle in
// haystack at or after from, or -1.
func Index(haystack, needle []rune, from int) int {
	if len(needle) == 0 || from < 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// First returns the leftmost window of value in text, ignoring consumption.
// ok is false when value is absent or empty.
func First(text []rune, value string) (start, end int, ok bool) {
	v := []rune(value)
	pos := Index(text, v, 0)
	if pos < 0 {
		return 0, 0, false
	}
	return pos, pos + len(v), true
}

// Find locates value in text starting at from, skipping windows that
// intersect used positions by retrying just past the conflicting window.
// On success the window is marked consumed.
func Find(text []rune, value string, from int, used *Used) (start, end int, ok bool) {
	v := []rune(value)
	if len(v) == 0 {
		return 0, 0, false
	}
	pos := Index(text, v, from)
	if pos < 0 {
		return 0, 0, false
	}
	winEnd := pos + len(v)
	if used.Overlaps(pos, winEnd) {
		return Find(text, value, winEnd, used)
	}
	used.Mark(pos, winEnd)
	return pos, winEnd, true
}
