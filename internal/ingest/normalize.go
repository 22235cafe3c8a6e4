package ingest

import (
	"strings"
	"unicode"
)

// cleanText trims s and collapses runs of whitespace (including HTML line breaks and
// non-breaking spaces) to a single space.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return strings.TrimSpace(b.String())
}
