package helpers

import (
	"strings"
	"unicode/utf8"
)

// CollapseWhitespace replaces every run of whitespace with a single space and
// trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns at most max characters of s. It never splits a multi-byte
// character. max <= 0 returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// CharCount is the length of s in characters rather than bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
