package common

import "strings"

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// EqualsFold reports whether two strings are equal ignoring case, after
// trimming surrounding whitespace.
func EqualsFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
