// Package models defines core data structures for verses, retrieval results, guidance and reflections.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Chapter bounds of the corpus.
const (
	MinChapter = 1
	MaxChapter = 18
)

// Verse is a single numbered passage. It is read-only once loaded.
type Verse struct {
	Chapter         int    `json:"chapter" db:"chapter"`
	Verse           int    `json:"verse" db:"verse"`
	Label           string `json:"label,omitempty" db:"label"`
	Sanskrit        string `json:"sanskrit,omitempty" db:"sanskrit"`
	Transliteration string `json:"transliteration,omitempty" db:"transliteration"`
	WordMeanings    string `json:"word_meanings,omitempty" db:"word_meanings"`
	Translation     string `json:"translation" db:"translation"`
	Commentary      string `json:"commentary,omitempty" db:"commentary"`
}

// VerseLabel returns the display label for the verse number. Merged ranges such as
// "16-18" keep their label; otherwise the numeric verse is used.
func (v *Verse) VerseLabel() string {
	if v.Label != "" {
		return v.Label
	}
	return strconv.Itoa(v.Verse)
}

// Reference returns the citation form "{chapter}.{verse}", e.g. "2.47" or "1.16-18".
func (v *Verse) Reference() string {
	return fmt.Sprintf("%d.%s", v.Chapter, v.VerseLabel())
}

// SearchText is the text a keyword is matched against: translation, commentary and word meanings.
func (v *Verse) SearchText() string {
	return v.Translation + " " + v.Commentary + " " + v.WordMeanings
}

// Validate checks the verse identity and required fields.
func (v *Verse) Validate() error {
	if v.Chapter < MinChapter || v.Chapter > MaxChapter {
		return fmt.Errorf("verse %s: chapter out of range %d..%d", v.Reference(), MinChapter, MaxChapter)
	}
	if v.Verse < 1 {
		return fmt.Errorf("verse %s: verse number must be positive", v.Reference())
	}
	if strings.TrimSpace(v.Translation) == "" {
		return fmt.Errorf("verse %s: translation is required", v.Reference())
	}
	return nil
}

// Less orders verses by chapter, then numeric verse, then label.
func Less(a, b *Verse) bool {
	if a.Chapter != b.Chapter {
		return a.Chapter < b.Chapter
	}
	if a.Verse != b.Verse {
		return a.Verse < b.Verse
	}
	return a.VerseLabel() < b.VerseLabel()
}

// Covers reports whether verse number n falls inside this verse's label. A merged
// range "16-18" covers 16, 17 and 18.
func (v *Verse) Covers(n int) bool {
	if n == v.Verse {
		return true
	}
	i := strings.IndexAny(v.Label, "-–")
	if i <= 0 || n < v.Verse {
		return false
	}
	end, err := strconv.Atoi(strings.TrimSpace(strings.TrimLeft(v.Label[i:], "-–")))
	if err != nil {
		return false
	}
	return n <= end
}

// ParseVerseLabel returns the numeric sort key for a verse label. For a merged range
// like "16-18" the first number is used.
func ParseVerseLabel(label string) (int, error) {
	label = strings.TrimSpace(label)
	if i := strings.IndexAny(label, "-–,"); i > 0 {
		label = strings.TrimSpace(label[:i])
	}
	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, fmt.Errorf("invalid verse label %q", label)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid verse label %q", label)
	}
	return n, nil
}

// ParseReference splits a citation like "2.47" or "1.16-18" into chapter and verse label.
func ParseReference(ref string) (chapter int, label string, err error) {
	parts := strings.SplitN(strings.TrimSpace(ref), ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid reference %q", ref)
	}
	chapter, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid reference %q", ref)
	}
	if _, err := ParseVerseLabel(parts[1]); err != nil {
		return 0, "", fmt.Errorf("invalid reference %q", ref)
	}
	return chapter, parts[1], nil
}
