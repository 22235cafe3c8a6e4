package models

// VerseMatch is a verse selected for a query, annotated with the keywords it matched.
type VerseMatch struct {
	Reference       string   `json:"reference"`
	Verse           *Verse   `json:"verse"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// RetrievalResult is the ordered outcome of one retrieval call.
// Matches are ordered by chapter then verse, never by relevance.
type RetrievalResult struct {
	Query    string       `json:"query"`
	Keywords []string     `json:"keywords"`
	Matches  []VerseMatch `json:"matches"`
}

// NoKeywords reports whether the query produced no usable keywords (all stop words or too short).
func (r *RetrievalResult) NoKeywords() bool {
	return len(r.Keywords) == 0
}

// Empty reports whether no verse was selected.
func (r *RetrievalResult) Empty() bool {
	return len(r.Matches) == 0
}

// Guidance is the generated answer for a question together with the verses it cites.
type Guidance struct {
	Query     string       `json:"query"`
	Answer    string       `json:"answer"`
	Model     string       `json:"model"`
	Keywords  []string     `json:"keywords"`
	Verses    []VerseMatch `json:"verses"`
	QueryTime int64        `json:"query_time_ms"`
}
