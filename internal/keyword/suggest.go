package keyword

import (
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/gitaguide/internal/models"
)

// Suggestion is a corpus term close to a keyword that matched nothing.
type Suggestion struct {
	Term      string  `json:"term"`
	Distance  int     `json:"distance"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
}

// Suggester proposes corpus terms for keywords that found no verse ("try different keywords").
type Suggester struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu    sync.RWMutex
	terms []string
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer than f verses.
func WithMinFrequency(f int) SuggesterOption {
	return func(s *Suggester) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps suggestions per keyword.
func WithMaxSuggestions(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSuggester creates a suggester over dict.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh reloads the term list, e.g. after re-ingestion.
func (s *Suggester) Refresh() error {
	s.mu.RLock()
	dict := s.dictionary
	s.mu.RUnlock()
	terms, err := dict.Terms()
	if err != nil {
		return err
	}
	sort.Strings(terms)
	s.mu.Lock()
	s.terms = terms
	s.mu.Unlock()
	return nil
}

// Reset replaces the dictionary and reloads the term list.
func (s *Suggester) Reset(dict TermDictionary) error {
	s.mu.Lock()
	s.dictionary = dict
	s.terms = nil
	s.mu.Unlock()
	return s.Refresh()
}

func (s *Suggester) vocabulary() []string {
	s.mu.RLock()
	terms := s.terms
	s.mu.RUnlock()
	if terms != nil {
		return terms
	}
	if err := s.Refresh(); err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms
}

// Suggest returns terms within the edit distance of keyword, best first.
// Closer terms win; among equal distances more frequent terms win, then alphabetical.
func (s *Suggester) Suggest(keyword string) []Suggestion {
	keyword = strings.ToLower(keyword)
	terms := s.vocabulary()
	s.mu.RLock()
	dict := s.dictionary
	s.mu.RUnlock()
	var out []Suggestion
	for _, term := range terms {
		if term == keyword {
			continue
		}
		diff := len(term) - len(keyword)
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		d := LevenshteinDistance(keyword, term)
		if d > s.maxDistance {
			continue
		}
		freq, err := dict.TermFrequency(term)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      term,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// SuggestKeywords returns up to n distinct replacement terms for keywords, taking the
// best suggestion of each keyword first.
func (s *Suggester) SuggestKeywords(keywords []string, n int) []string {
	if n <= 0 {
		return nil
	}
	per := make([][]Suggestion, len(keywords))
	for i, kw := range keywords {
		per[i] = s.Suggest(kw)
	}
	seen := make(map[string]struct{})
	var out []string
	for rank := 0; rank < s.maxSuggestions && len(out) < n; rank++ {
		for _, list := range per {
			if rank >= len(list) || len(out) >= n {
				continue
			}
			term := list[rank].Term
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

// Vocabulary is an in-memory TermDictionary built from verse search text, used when no
// Bleve index is configured.
type Vocabulary struct {
	freqs map[string]int
}

// NewVocabulary tokenizes the search text of verses with tokenize and counts, per term,
// the number of verses containing it.
func NewVocabulary(verses []*models.Verse, tokenize func(string) []string) *Vocabulary {
	freqs := make(map[string]int)
	for _, v := range verses {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(v.SearchText()) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			freqs[tok]++
		}
	}
	return &Vocabulary{freqs: freqs}
}

// Terms implements TermDictionary.
func (v *Vocabulary) Terms() ([]string, error) {
	terms := make([]string, 0, len(v.freqs))
	for t := range v.freqs {
		terms = append(terms, t)
	}
	return terms, nil
}

// TermFrequency implements TermDictionary.
func (v *Vocabulary) TermFrequency(term string) (int, error) {
	return v.freqs[strings.ToLower(term)], nil
}
