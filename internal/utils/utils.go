package utils

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// RelativePath returns path relative to base when path lies below it,
// otherwise path unchanged
func RelativePath(base, path string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

// FirstLine returns the first line of s without its line break
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}

// Plural returns word with an s appended unless n is one
func Plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
