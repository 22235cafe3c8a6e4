package keyword

import (
	"context"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
)

func testVerses() []*models.Verse {
	return []*models.Verse{
		{Chapter: 2, Verse: 47, Translation: "You have a right to perform your prescribed duty, but not to the fruits of action.",
			Commentary: "The essence of karma yoga.", WordMeanings: "karmani - in prescribed duties"},
		{Chapter: 4, Verse: 10, Translation: "Freed from attachment, fear and anger, many have attained My being."},
		{Chapter: 6, Verse: 35, Translation: "The mind is restless, but it is restrained by practice and detachment."},
		{Chapter: 12, Verse: 15, Translation: "Free from joy, anger, fear and anxiety, he is dear to Me."},
		{Chapter: 2, Verse: 66, Translation: "How can there be happiness without peace?"},
	}
}

func newTestIndex(t *testing.T, path string) *VerseIndex {
	t.Helper()
	idx, err := NewVerseIndex(path)
	if err != nil {
		t.Fatalf("NewVerseIndex: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close()
	})
	return idx
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestVerseIndex_CandidatesSubstring(t *testing.T) {
	idx := newTestIndex(t, "")
	ctx := context.Background()
	if err := idx.IndexVerses(ctx, testVerses()); err != nil {
		t.Fatalf("IndexVerses: %v", err)
	}

	tests := []struct {
		keywords []string
		want     []string
	}{
		{[]string{"fear"}, []string{"12.15", "4.10"}},
		// "tach" is inside attachment and detachment
		{[]string{"tach"}, []string{"4.10", "6.35"}},
		// "karma" matches the "karmani" word meaning too
		{[]string{"karma"}, []string{"2.47"}},
		{[]string{"peace", "restless"}, []string{"2.66", "6.35"}},
		// stop words are not dropped by the analyzer
		{[]string{"the"}, []string{"2.47", "2.66", "6.35"}},
		{[]string{"zebra"}, []string{}},
	}
	for _, tt := range tests {
		got, err := idx.Candidates(ctx, tt.keywords)
		if err != nil {
			t.Fatalf("Candidates(%v): %v", tt.keywords, err)
		}
		if keys := sortedKeys(got); !reflect.DeepEqual(keys, tt.want) {
			t.Errorf("Candidates(%v) = %v, want %v", tt.keywords, keys, tt.want)
		}
	}
}

func TestVerseIndex_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t, "")
	got, err := idx.Candidates(context.Background(), []string{"fear"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestVerseIndex_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewVerseIndex(path)
	if err != nil {
		t.Fatalf("NewVerseIndex: %v", err)
	}
	if err := idx.IndexVerses(ctx, testVerses()); err != nil {
		t.Fatalf("IndexVerses: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := newTestIndex(t, path)
	n, err := reopened.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if n != 5 {
		t.Errorf("DocCount = %d, want 5", n)
	}
	got, err := reopened.Candidates(ctx, []string{"anxiety"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if keys := sortedKeys(got); !reflect.DeepEqual(keys, []string{"12.15"}) {
		t.Errorf("Candidates = %v", keys)
	}
}

func TestVerseIndex_DeleteAndTerms(t *testing.T) {
	idx := newTestIndex(t, "")
	ctx := context.Background()
	if err := idx.IndexVerses(ctx, testVerses()); err != nil {
		t.Fatalf("IndexVerses: %v", err)
	}

	freq, err := idx.TermFrequency("fear")
	if err != nil {
		t.Fatalf("TermFrequency: %v", err)
	}
	if freq != 2 {
		t.Errorf("TermFrequency(fear) = %d, want 2", freq)
	}

	terms, err := idx.Terms()
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	found := false
	for _, term := range terms {
		if term == "restless" {
			found = true
		}
	}
	if !found {
		t.Error("expected term \"restless\" in dictionary")
	}

	if err := idx.Delete(ctx, "12.15"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := idx.Candidates(ctx, []string{"fear"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if keys := sortedKeys(got); !reflect.DeepEqual(keys, []string{"4.10"}) {
		t.Errorf("Candidates after delete = %v", keys)
	}
}

func TestVerseIndex_ReplaceVerses(t *testing.T) {
	idx := newTestIndex(t, "")
	ctx := context.Background()
	if err := idx.IndexVerses(ctx, testVerses()); err != nil {
		t.Fatalf("IndexVerses: %v", err)
	}
	kept := testVerses()[:2]
	if err := idx.ReplaceVerses(ctx, kept); err != nil {
		t.Fatalf("ReplaceVerses: %v", err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if n != 2 {
		t.Errorf("DocCount = %d, want 2", n)
	}
	got, err := idx.Candidates(ctx, []string{"fear"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if keys := sortedKeys(got); !reflect.DeepEqual(keys, []string{"4.10"}) {
		t.Errorf("Candidates after replace = %v", keys)
	}
}

func TestIndexedMatcher_AgreesWithScan(t *testing.T) {
	idx := newTestIndex(t, "")
	ctx := context.Background()
	verses := testVerses()
	if err := idx.IndexVerses(ctx, verses); err != nil {
		t.Fatalf("IndexVerses: %v", err)
	}
	snap, err := retrieval.NewSnapshot(verses)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	scan := retrieval.NewScanMatcher()
	indexed := retrieval.NewIndexedMatcher(idx)
	for _, keywords := range [][]string{
		{"fear"},
		{"tach", "peace"},
		{"duty", "anger", "joy"},
		{"nothing"},
		{"karma yoga"},
	} {
		want, err := scan.Match(ctx, snap, keywords, 10)
		if err != nil {
			t.Fatalf("scan %v: %v", keywords, err)
		}
		got, err := indexed.Match(ctx, snap, keywords, 10)
		if err != nil {
			t.Fatalf("indexed %v: %v", keywords, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("keywords %v: indexed = %v, scan = %v", keywords, got, want)
		}
	}
}
