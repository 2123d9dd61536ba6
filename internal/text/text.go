// Package text holds the whitespace and length helpers shared by every
// extraction stage. All lengths are counted in runes, not bytes, because the
// newsletters are mostly Hangul.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks a truncated string.
const Ellipsis = "…"

// Normalize collapses whitespace runs, including NBSP, into single spaces and
// trims both ends.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '\u00a0' {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Len returns the rune count of s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most limit runes. When a cut happens the kept
// prefix is right-trimmed and Ellipsis is appended in place of the last rune.
func Truncate(s string, limit int) string {
	if s == "" || limit <= 0 {
		return ""
	}
	if Len(s) <= limit {
		return s
	}
	runes := []rune(s)
	head := strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace)
	return head + Ellipsis
}
