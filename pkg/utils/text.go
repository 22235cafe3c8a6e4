// Package utils provides shared utilities for text, vectors, and logging.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to at most maxLen runes, with "..." appended if truncated.
// The cut backs up to the last space when one falls in the final fifth of the kept text.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxLen])
	if i := strings.LastIndexByte(cut, ' '); i > 0 && utf8.RuneCountInString(cut[:i]) >= maxLen*4/5 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
