// Package strings normalizes the free-form lists callers send: actor area
// headers and transition scopes.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element, drops blanks and keeps the first
// occurrence of each value. A nil input stays nil; any other input yields a
// non-nil slice.
func DedupeAndTrim[S ~[]E, E ~string](values S) S {
	if values == nil {
		return nil
	}
	out := make(S, 0, len(values))
	for _, v := range values {
		v = E(strings.TrimSpace(string(v)))
		if v == "" || contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma-separated header value and normalizes it with
// DedupeAndTrim. An empty header is an empty list.
func SplitList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{}
	}
	return DedupeAndTrim(strings.Split(header, ","))
}

func contains[E comparable](list []E, v E) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
