package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/gitaguide/internal/models"
)

const (
	// DefaultMaxResults is used when a caller passes a non-positive maxResults.
	DefaultMaxResults = 5
	// HardMaxResults bounds response size and downstream prompt length.
	HardMaxResults = 50
)

// Limits bounds how many verses a call may return.
type Limits struct {
	Default int
	Ceiling int
}

// DefaultLimits returns Default=5, Ceiling=50.
func DefaultLimits() Limits {
	return Limits{Default: DefaultMaxResults, Ceiling: HardMaxResults}
}

// Clamp maps n into 1..Ceiling, using Default for non-positive n. The ceiling never
// exceeds HardMaxResults.
func (l Limits) Clamp(n int) int {
	def, ceiling := l.Default, l.Ceiling
	if ceiling <= 0 || ceiling > HardMaxResults {
		ceiling = HardMaxResults
	}
	if def <= 0 {
		def = DefaultMaxResults
	}
	if def > ceiling {
		def = ceiling
	}
	if n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

// Matcher selects verses from a snapshot for a keyword list.
// Implementations return matches in (chapter, verse) order, at most maxResults.
type Matcher interface {
	Match(ctx context.Context, snap *Snapshot, keywords []string, maxResults int) ([]models.VerseMatch, error)
}

// ScanMatcher performs one full scan over the snapshot per call. A verse matches when
// any keyword is a case-insensitive substring of its search text.
type ScanMatcher struct{}

// NewScanMatcher returns the full-scan matcher.
func NewScanMatcher() *ScanMatcher {
	return &ScanMatcher{}
}

// Match implements Matcher.
func (m *ScanMatcher) Match(ctx context.Context, snap *Snapshot, keywords []string, maxResults int) ([]models.VerseMatch, error) {
	keywords = normalizeKeywords(keywords)
	if len(keywords) == 0 {
		return []models.VerseMatch{}, nil
	}
	if snap.Len() == 0 {
		return nil, ErrStoreUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(snap, keywords, DefaultLimits().Clamp(maxResults), nil), nil
}

// CandidateIndex narrows the verses worth verifying for a keyword list. It may return
// a superset of the true matches but never omit one.
type CandidateIndex interface {
	Candidates(ctx context.Context, keywords []string) (map[string]struct{}, error)
}

// IndexedMatcher consults a CandidateIndex and verifies each candidate with the same
// substring rule as ScanMatcher, so both return identical results. Keywords containing
// anything outside [a-z0-9] can span index terms and fall back to a full scan.
type IndexedMatcher struct {
	index CandidateIndex
}

// NewIndexedMatcher returns a matcher backed by index.
func NewIndexedMatcher(index CandidateIndex) *IndexedMatcher {
	return &IndexedMatcher{index: index}
}

// Match implements Matcher.
func (m *IndexedMatcher) Match(ctx context.Context, snap *Snapshot, keywords []string, maxResults int) ([]models.VerseMatch, error) {
	keywords = normalizeKeywords(keywords)
	if len(keywords) == 0 {
		return []models.VerseMatch{}, nil
	}
	if snap.Len() == 0 {
		return nil, ErrStoreUnavailable
	}
	if !indexable(keywords) {
		return collect(snap, keywords, DefaultLimits().Clamp(maxResults), nil), nil
	}
	candidates, err := m.index.Candidates(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword index: %v", ErrStoreUnavailable, err)
	}
	if len(candidates) == 0 {
		return []models.VerseMatch{}, nil
	}
	return collect(snap, keywords, DefaultLimits().Clamp(maxResults), candidates), nil
}

// collect walks the sorted snapshot and stops once maxResults matches are found.
// When candidates is non-nil only those references are considered.
func collect(snap *Snapshot, keywords []string, maxResults int, candidates map[string]struct{}) []models.VerseMatch {
	out := make([]models.VerseMatch, 0, maxResults)
	for i, v := range snap.verses {
		if len(out) >= maxResults {
			break
		}
		ref := v.Reference()
		if candidates != nil {
			if _, ok := candidates[ref]; !ok {
				continue
			}
		}
		matched := matchedKeywords(snap.texts[i], keywords)
		if len(matched) == 0 {
			continue
		}
		out = append(out, models.VerseMatch{
			Reference:       ref,
			Verse:           v,
			MatchedKeywords: matched,
		})
	}
	return out
}

// matchedKeywords returns the keywords found in text, in keyword order. text is already lowercased.
func matchedKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// indexable reports whether every keyword lies within a single index term.
func indexable(keywords []string) bool {
	for _, kw := range keywords {
		for _, r := range kw {
			if isSeparator(r) {
				return false
			}
		}
	}
	return true
}
