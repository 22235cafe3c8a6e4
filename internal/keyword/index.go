// Package keyword provides the verse inverted index (Bleve) and keyword spelling
// suggestions built from the corpus vocabulary.
package keyword

// TermDictionary exposes the corpus vocabulary for suggestions.
type TermDictionary interface {
	// Terms returns every distinct indexed term.
	Terms() ([]string, error)
	// TermFrequency returns the number of verses containing term.
	TermFrequency(term string) (int, error)
}
