// Package utils provides small helpers for turning list query parameters
// into page bounds. Nothing here knows about todos or categories.
package utils

import (
	"math"
	"strconv"
)

// AtoiDefault parses s as a base-10 int. An empty or malformed s yields def;
// surrounding whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageOffset returns the row offset of a zero-based page. ok is false when
// page or size is negative or the product does not fit in an int.
func PageOffset(page, size int) (offset int, ok bool) {
	if page < 0 || size < 0 {
		return 0, false
	}
	if size != 0 && page > math.MaxInt/size {
		return 0, false
	}
	return page * size, true
}
