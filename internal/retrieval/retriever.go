package retrieval

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/gitaguide/internal/models"
)

// Retriever answers "which verses ground this question". It holds the current snapshot
// behind an atomic pointer; each call reads one snapshot and never observes a swap midway.
type Retriever struct {
	extractor *Extractor
	matcher   Matcher
	limits    Limits
	snapshot  atomic.Pointer[Snapshot]
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMatcher replaces the default ScanMatcher.
func WithMatcher(m Matcher) RetrieverOption {
	return func(r *Retriever) { r.matcher = m }
}

// WithLimits sets the default and ceiling for maxResults.
func WithLimits(l Limits) RetrieverOption {
	return func(r *Retriever) { r.limits = l }
}

// NewRetriever creates a retriever over snap. snap may be nil, in which case every
// retrieval with keywords fails with ErrStoreUnavailable until Swap is called.
// A nil extractor uses the default configuration.
func NewRetriever(snap *Snapshot, extractor *Extractor, opts ...RetrieverOption) *Retriever {
	if extractor == nil {
		extractor = defaultExtractor
	}
	r := &Retriever{
		extractor: extractor,
		matcher:   NewScanMatcher(),
		limits:    DefaultLimits(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if snap != nil {
		r.snapshot.Store(snap)
	}
	return r
}

// Swap installs a new snapshot and returns the previous one.
func (r *Retriever) Swap(snap *Snapshot) *Snapshot {
	return r.snapshot.Swap(snap)
}

// Snapshot returns the snapshot currently in use, or nil.
func (r *Retriever) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Limits returns the result limits.
func (r *Retriever) Limits() Limits {
	return r.limits
}

// ExtractKeywords returns the keywords RetrieveVerses would search for.
func (r *Retriever) ExtractKeywords(query string) []string {
	return r.extractor.Extract(query)
}

// RetrieveVerses extracts keywords from query and returns up to maxResults matching
// verses ordered by (chapter, verse).
//
// A whitespace-only query fails with ErrInvalidQuery. A query without usable keywords
// returns a result with no keywords and no matches. A query whose keywords match nothing
// returns a result with no matches. A missing or empty corpus fails with ErrStoreUnavailable.
func (r *Retriever) RetrieveVerses(ctx context.Context, query string, maxResults int) (*models.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	result := &models.RetrievalResult{
		Query:    query,
		Keywords: r.extractor.Extract(query),
		Matches:  []models.VerseMatch{},
	}
	if len(result.Keywords) == 0 {
		return result, nil
	}
	snap := r.snapshot.Load()
	if snap.Len() == 0 {
		return nil, ErrStoreUnavailable
	}
	matches, err := r.matcher.Match(ctx, snap, result.Keywords, r.limits.Clamp(maxResults))
	if err != nil {
		return nil, err
	}
	result.Matches = matches
	return result, nil
}
