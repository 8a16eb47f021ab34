// Package moniker ranks version monikers and assigns them to content files.
package moniker

import "strings"

// Comparer orders monikers. Compare returns a positive number when a is
// newer than b, negative when older and zero when they rank equally.
type Comparer interface {
	Compare(a, b string) int
}

// VersionComparer orders monikers naturally: digit runs compare numerically
// and everything else compares case-insensitively, so net6.0 < net8.0 and
// v2 < v10.
type VersionComparer struct{}

func (VersionComparer) Compare(a, b string) int {
	ta, tb := tokenize(a), tokenize(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if c := compareToken(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ta) < len(tb):
		return -1
	case len(ta) > len(tb):
		return 1
	}
	return strings.Compare(a, b)
}

type token struct {
	text    string
	numeric bool
}

func tokenize(s string) []token {
	var out []token
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			out = append(out, token{text: s[start:i], numeric: isDigit(s[start])})
			start = i
		}
	}
	return out
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func compareToken(a, b token) int {
	if a.numeric && b.numeric {
		x := strings.TrimLeft(a.text, "0")
		y := strings.TrimLeft(b.text, "0")
		if len(x) != len(y) {
			if len(x) < len(y) {
				return -1
			}
			return 1
		}
		return strings.Compare(x, y)
	}
	if a.numeric != b.numeric {
		// Numbers sort before words: "v1" < "vnext".
		if a.numeric {
			return -1
		}
		return 1
	}
	return strings.Compare(strings.ToLower(a.text), strings.ToLower(b.text))
}

// RankedComparer uses an explicit oldest-to-newest order. Monikers missing
// from the order rank below every known moniker and compare among
// themselves with VersionComparer.
type RankedComparer struct {
	rank     map[string]int
	fallback VersionComparer
}

// NewRankedComparer returns a comparer for the given oldest-to-newest order.
func NewRankedComparer(order []string) *RankedComparer {
	rank := make(map[string]int, len(order))
	for i, m := range order {
		if _, dup := rank[m]; !dup {
			rank[m] = i
		}
	}
	return &RankedComparer{rank: rank}
}

func (c *RankedComparer) Compare(a, b string) int {
	ra, okA := c.rank[a]
	rb, okB := c.rank[b]
	switch {
	case okA && okB:
		return ra - rb
	case okA:
		return 1
	case okB:
		return -1
	}
	return c.fallback.Compare(a, b)
}

// Highest returns the highest ranked moniker of ms, or "" when ms is empty.
func Highest(c Comparer, ms []string) string {
	best := ""
	for i, m := range ms {
		if i == 0 || c.Compare(m, best) > 0 {
			best = m
		}
	}
	return best
}

// FromOrder returns a RankedComparer when order is non-empty and a
// VersionComparer otherwise.
func FromOrder(order []string) Comparer {
	if len(order) == 0 {
		return VersionComparer{}
	}
	return NewRankedComparer(order)
}
