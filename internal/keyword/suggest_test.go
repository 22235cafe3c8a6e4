package keyword

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// mockTermDictionary is a mock implementation of TermDictionary for testing.
type mockTermDictionary struct {
	terms    map[string]int // term -> frequency
	termsErr error
}

func (m *mockTermDictionary) Terms() ([]string, error) {
	if m.termsErr != nil {
		return nil, m.termsErr
	}
	out := make([]string, 0, len(m.terms))
	for term := range m.terms {
		out = append(out, term)
	}
	return out, nil
}

func (m *mockTermDictionary) TermFrequency(term string) (int, error) {
	return m.terms[term], nil
}

func TestNewSuggester_Defaults(t *testing.T) {
	s := NewSuggester(&mockTermDictionary{})
	if s.maxDistance != 2 {
		t.Errorf("default maxDistance = %d, want 2", s.maxDistance)
	}
	if s.minFreq != 1 {
		t.Errorf("default minFreq = %d, want 1", s.minFreq)
	}
	if s.maxSuggestions != 3 {
		t.Errorf("default maxSuggestions = %d, want 3", s.maxSuggestions)
	}

	s = NewSuggester(&mockTermDictionary{}, WithMaxDistance(1), WithMinFrequency(4), WithMaxSuggestions(7))
	if s.maxDistance != 1 || s.minFreq != 4 || s.maxSuggestions != 7 {
		t.Errorf("options not applied: %+v", s)
	}

	// invalid values keep defaults
	s = NewSuggester(&mockTermDictionary{}, WithMaxDistance(0), WithMinFrequency(-1), WithMaxSuggestions(0))
	if s.maxDistance != 2 || s.minFreq != 1 || s.maxSuggestions != 3 {
		t.Errorf("invalid options changed defaults: %+v", s)
	}
}

func TestSuggester_Suggest(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"karma":   12,
		"dharma":  9,
		"krishna": 40,
		"fear":    6,
		"bear":    1,
		"peace":   8,
		"rare":    0,
	}}
	s := NewSuggester(dict)

	got := s.Suggest("karmma")
	if len(got) == 0 || got[0].Term != "karma" || got[0].Distance != 1 {
		t.Fatalf("Suggest(karmma) = %+v, want karma first", got)
	}

	// equal distance: higher frequency first
	got = s.Suggest("dear")
	terms := make([]string, len(got))
	for i, sg := range got {
		terms[i] = sg.Term
	}
	if !reflect.DeepEqual(terms, []string{"fear", "bear"}) {
		t.Errorf("Suggest(dear) = %v, want [fear bear]", terms)
	}

	// exact term is not its own suggestion; zero-frequency terms are skipped
	for _, sg := range s.Suggest("fear") {
		if sg.Term == "fear" || sg.Term == "rare" {
			t.Errorf("unexpected suggestion %q", sg.Term)
		}
	}

	if got := s.Suggest("xylophone"); len(got) != 0 {
		t.Errorf("Suggest(xylophone) = %+v, want none", got)
	}

	// input is case-folded
	if got := s.Suggest("KRISNA"); len(got) == 0 || got[0].Term != "krishna" {
		t.Errorf("Suggest(KRISNA) = %+v", got)
	}
}

func TestSuggester_SuggestKeywords(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"karma": 12, "dharma": 9, "fear": 6, "bear": 1, "peace": 8,
	}}
	s := NewSuggester(dict)

	got := s.SuggestKeywords([]string{"karmma", "dear", "peice"}, 4)
	want := []string{"karma", "fear", "peace", "bear"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuggestKeywords = %v, want %v", got, want)
	}

	if got := s.SuggestKeywords([]string{"karmma"}, 0); got != nil {
		t.Errorf("n=0 should return nil, got %v", got)
	}
}

func TestSuggester_DictionaryError(t *testing.T) {
	s := NewSuggester(&mockTermDictionary{termsErr: errors.New("index closed")})
	if err := s.Refresh(); err == nil {
		t.Error("expected Refresh error")
	}
	if got := s.Suggest("karma"); len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestVocabulary(t *testing.T) {
	tokenize := func(s string) []string {
		return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return !(r >= 'a' && r <= 'z')
		})
	}
	vocab := NewVocabulary(testVerses(), tokenize)

	freq, _ := vocab.TermFrequency("Fear")
	if freq != 2 {
		t.Errorf("TermFrequency(Fear) = %d, want 2", freq)
	}
	// counted once per verse even when repeated
	freq, _ = vocab.TermFrequency("prescribed")
	if freq != 1 {
		t.Errorf("TermFrequency(prescribed) = %d, want 1", freq)
	}

	s := NewSuggester(vocab)
	if got := s.Suggest("restles"); len(got) == 0 || got[0].Term != "restless" {
		t.Errorf("Suggest(restles) = %+v", got)
	}
}

func TestSuggester_Reset(t *testing.T) {
	s := NewSuggester(&mockTermDictionary{terms: map[string]int{"karma": 3}})
	if got := s.Suggest("karmo"); len(got) != 1 || got[0].Term != "karma" {
		t.Fatalf("Suggest(karmo) before reset = %+v", got)
	}
	if err := s.Reset(&mockTermDictionary{terms: map[string]int{"dharma": 2}}); err != nil {
		t.Fatal(err)
	}
	if got := s.Suggest("karmo"); len(got) != 0 {
		t.Errorf("old vocabulary should be gone, got %+v", got)
	}
	if got := s.Suggest("dharmo"); len(got) != 1 || got[0].Term != "dharma" {
		t.Errorf("Suggest(dharmo) after reset = %+v", got)
	}
}
