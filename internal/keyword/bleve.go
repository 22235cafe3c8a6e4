package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/gitaguide/internal/models"
)

const (
	verseAnalyzer = "verse_text"
	textField     = "text"
)

// VerseIndex is a Bleve inverted index over verse search text keyed by reference.
type VerseIndex struct {
	index bleve.Index

	mu        sync.RWMutex
	termFreqs map[string]int // lazily built from the field dictionary
}

// NewVerseIndex creates or opens a Bleve index at path. An empty path creates an
// in-memory index. The analyzer lowercases and splits on Unicode word boundaries with
// no stop-word removal or stemming, so every substring of the text survives inside some term.
// If you change the mapping, remove the index directory and re-ingest.
func NewVerseIndex(path string) (*VerseIndex, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(verseAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = verseAnalyzer
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = verseAnalyzer

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &VerseIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &VerseIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &VerseIndex{index: index}, nil
}

// IndexVerses adds or replaces verses in one batch.
func (b *VerseIndex) IndexVerses(ctx context.Context, verses []*models.Verse) error {
	batch := b.index.NewBatch()
	for _, v := range verses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(v.Reference(), map[string]interface{}{textField: v.SearchText()}); err != nil {
			return fmt.Errorf("failed to batch verse %s: %w", v.Reference(), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	b.invalidateTerms()
	return nil
}

// ReplaceVerses indexes verses and removes every other document, so the index holds
// exactly the given corpus.
func (b *VerseIndex) ReplaceVerses(ctx context.Context, verses []*models.Verse) error {
	total, err := b.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	keep := make(map[string]struct{}, len(verses))
	for _, v := range verses {
		keep[v.Reference()] = struct{}{}
	}
	batch := b.index.NewBatch()
	if total > 0 {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(total), 0, false)
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("Bleve search failed: %w", err)
		}
		for _, hit := range results.Hits {
			if _, ok := keep[hit.ID]; !ok {
				batch.Delete(hit.ID)
			}
		}
	}
	for _, v := range verses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(v.Reference(), map[string]interface{}{textField: v.SearchText()}); err != nil {
			return fmt.Errorf("failed to batch verse %s: %w", v.Reference(), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	b.invalidateTerms()
	return nil
}

// Delete removes a verse by reference.
func (b *VerseIndex) Delete(ctx context.Context, ref string) error {
	if err := b.index.Delete(ref); err != nil {
		return err
	}
	b.invalidateTerms()
	return nil
}

// Candidates returns the references of verses with a term containing any keyword.
// Keywords must be lowercase [a-z0-9]+; each becomes a "*kw*" wildcard over the term
// dictionary and the wildcards are OR-ed.
func (b *VerseIndex) Candidates(ctx context.Context, keywords []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(keywords) == 0 {
		return out, nil
	}
	total, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if total == 0 {
		return out, nil
	}
	queries := make([]blevequery.Query, 0, len(keywords))
	for _, kw := range keywords {
		wq := bleve.NewWildcardQuery("*" + kw + "*")
		wq.SetField(textField)
		queries = append(queries, wq)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), int(total), 0, false)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	for _, hit := range results.Hits {
		out[hit.ID] = struct{}{}
	}
	return out, nil
}

// DocCount returns the number of indexed verses.
func (b *VerseIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns all distinct terms of the text field.
func (b *VerseIndex) Terms() ([]string, error) {
	freqs, err := b.termFrequencies()
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(freqs))
	for t := range freqs {
		terms = append(terms, t)
	}
	return terms, nil
}

// TermFrequency returns the number of verses containing term.
func (b *VerseIndex) TermFrequency(term string) (int, error) {
	freqs, err := b.termFrequencies()
	if err != nil {
		return 0, err
	}
	return freqs[strings.ToLower(term)], nil
}

func (b *VerseIndex) termFrequencies() (map[string]int, error) {
	b.mu.RLock()
	freqs := b.termFreqs
	b.mu.RUnlock()
	if freqs != nil {
		return freqs, nil
	}

	dict, err := b.index.FieldDict(textField)
	if err != nil {
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()
	freqs = make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read term dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Count > 0 {
			freqs[entry.Term] = int(entry.Count)
		}
	}

	b.mu.Lock()
	b.termFreqs = freqs
	b.mu.Unlock()
	return freqs, nil
}

func (b *VerseIndex) invalidateTerms() {
	b.mu.Lock()
	b.termFreqs = nil
	b.mu.Unlock()
}

// Close closes the Bleve index.
func (b *VerseIndex) Close() error {
	return b.index.Close()
}
