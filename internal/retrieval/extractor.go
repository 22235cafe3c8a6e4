// Package retrieval selects scripture verses for a free-text question: keyword
// extraction, substring matching over an immutable verse snapshot, and the
// retriever that ties them together.
package retrieval

import "strings"

const (
	// DefaultMaxKeywords caps the number of keywords taken from one query.
	DefaultMaxKeywords = 5
	// DefaultMinTokenLength is the shortest token kept; shorter tokens are dropped.
	DefaultMinTokenLength = 3
)

// DefaultStopWords is the static stop-word table: articles, auxiliary verbs, pronouns,
// prepositions, conjunctions and question words.
var DefaultStopWords = []string{
	// articles and determiners
	"a", "an", "the", "this", "that", "these", "those", "some", "any", "each", "every",
	// auxiliary and modal verbs
	"is", "am", "are", "was", "were", "be", "been", "being", "do", "does", "did", "doing",
	"have", "has", "had", "having", "can", "could", "shall", "should", "will", "would",
	"may", "might", "must",
	// pronouns
	"i", "me", "my", "mine", "myself", "we", "us", "our", "ours", "you", "your", "yours",
	"yourself", "he", "him", "his", "she", "her", "hers", "it", "its", "they", "them",
	"their", "theirs", "one", "someone", "something",
	// prepositions and conjunctions
	"to", "in", "on", "at", "by", "for", "of", "off", "from", "with", "without", "into",
	"onto", "about", "above", "below", "over", "under", "through", "during", "before",
	"after", "between", "and", "or", "but", "nor", "so", "if", "then", "than", "as",
	"not", "no", "also", "just", "very", "too",
	// question words
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	// conversational filler
	"say", "says", "tell", "please", "get", "there", "here",
}

// ExtractorConfig is the static configuration of keyword extraction.
type ExtractorConfig struct {
	StopWords      []string
	MaxKeywords    int
	MinTokenLength int
}

// DefaultExtractorConfig returns the built-in stop words with K=5 and a minimum token length of 3.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		StopWords:      DefaultStopWords,
		MaxKeywords:    DefaultMaxKeywords,
		MinTokenLength: DefaultMinTokenLength,
	}
}

// Extractor turns a free-text query into a bounded, ordered keyword list.
// It is immutable and safe for concurrent use.
type Extractor struct {
	stopWords      map[string]struct{}
	maxKeywords    int
	minTokenLength int
}

// NewExtractor builds an extractor. Zero MaxKeywords or MinTokenLength fall back to the defaults.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	e := &Extractor{
		stopWords:      make(map[string]struct{}, len(cfg.StopWords)),
		maxKeywords:    cfg.MaxKeywords,
		minTokenLength: cfg.MinTokenLength,
	}
	if e.maxKeywords <= 0 {
		e.maxKeywords = DefaultMaxKeywords
	}
	if e.minTokenLength <= 0 {
		e.minTokenLength = DefaultMinTokenLength
	}
	for _, w := range cfg.StopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			e.stopWords[w] = struct{}{}
		}
	}
	return e
}

// MaxKeywords returns the keyword cap K.
func (e *Extractor) MaxKeywords() int {
	return e.maxKeywords
}

// Extract returns up to K lowercase keywords in first-occurrence order.
// The result is never nil; it is empty when every token is a stop word or too short.
func (e *Extractor) Extract(query string) []string {
	keywords := make([]string, 0, e.maxKeywords)
	seen := make(map[string]struct{}, e.maxKeywords)
	for _, tok := range Tokenize(query) {
		if len(tok) < e.minTokenLength {
			continue
		}
		if _, stop := e.stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == e.maxKeywords {
			break
		}
	}
	return keywords
}

// Tokenize lowercases s and splits it on every rune outside [a-z0-9].
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), isSeparator)
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

var defaultExtractor = NewExtractor(DefaultExtractorConfig())

// ExtractKeywords extracts keywords with the default configuration.
func ExtractKeywords(query string) []string {
	return defaultExtractor.Extract(query)
}
