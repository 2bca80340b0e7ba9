// Package utils holds query-string parsing helpers shared by the HTTP
// handlers: pagination, similar-submission counts and hotspot list lengths
// all arrive as optional integers with a default and a bound.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int. Empty or unparsable input (including
// overflow) yields def. Surrounding whitespace is tolerated.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Bounded parses s like AtoiDefault and clamps the result into [lo, hi].
// hi <= 0 means no upper bound.
//
//	utils.Bounded(c.Query("page_size"), 20, 1, 100)
func Bounded(s string, def, lo, hi int) int {
	n := AtoiDefault(s, def)
	if n < lo {
		n = lo
	}
	if hi > 0 && n > hi {
		n = hi
	}
	return n
}
