package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/gitaguide/internal/models"
)

// VerseStore is a read-only source of all verse records.
type VerseStore interface {
	AllVerses(ctx context.Context) ([]*models.Verse, error)
}

// Snapshot is an immutable, sorted copy of the verse corpus. A snapshot is built once
// and shared by concurrent retrieval calls without locking.
type Snapshot struct {
	verses []*models.Verse
	texts  []string // lowercased SearchText, parallel to verses
	byRef  map[string]int
}

// NewSnapshot copies verses into a sorted snapshot. An empty corpus is reported as
// ErrStoreUnavailable, as is a duplicate reference.
func NewSnapshot(verses []*models.Verse) (*Snapshot, error) {
	if len(verses) == 0 {
		return nil, fmt.Errorf("%w: no verses loaded", ErrStoreUnavailable)
	}
	s := &Snapshot{
		verses: make([]*models.Verse, 0, len(verses)),
		byRef:  make(map[string]int, len(verses)),
	}
	for _, v := range verses {
		if v == nil {
			continue
		}
		cp := *v
		s.verses = append(s.verses, &cp)
	}
	if len(s.verses) == 0 {
		return nil, fmt.Errorf("%w: no verses loaded", ErrStoreUnavailable)
	}
	sort.SliceStable(s.verses, func(i, j int) bool { return models.Less(s.verses[i], s.verses[j]) })
	s.texts = make([]string, len(s.verses))
	for i, v := range s.verses {
		ref := v.Reference()
		if _, dup := s.byRef[ref]; dup {
			return nil, fmt.Errorf("%w: duplicate verse %s", ErrStoreUnavailable, ref)
		}
		s.byRef[ref] = i
		s.texts[i] = strings.ToLower(v.SearchText())
	}
	return s, nil
}

// LoadSnapshot reads every verse from store and builds a snapshot.
// Any read failure or an empty store is wrapped as ErrStoreUnavailable.
func LoadSnapshot(ctx context.Context, store VerseStore) (*Snapshot, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrStoreUnavailable)
	}
	verses, err := store.AllVerses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return NewSnapshot(verses)
}

// AllVerses returns the snapshot's verses in (chapter, verse) order, so a snapshot can
// itself serve as a VerseStore.
func (s *Snapshot) AllVerses(ctx context.Context) ([]*models.Verse, error) {
	out := make([]*models.Verse, len(s.verses))
	copy(out, s.verses)
	return out, nil
}

// Len returns the number of verses.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.verses)
}

// Lookup returns the verse with the given reference ("2.47").
func (s *Snapshot) Lookup(ref string) (*models.Verse, bool) {
	i, ok := s.byRef[ref]
	if !ok {
		return nil, false
	}
	return s.verses[i], true
}

// Chapter returns the verses of one chapter in order.
func (s *Snapshot) Chapter(chapter int) []*models.Verse {
	start := sort.Search(len(s.verses), func(i int) bool { return s.verses[i].Chapter >= chapter })
	var out []*models.Verse
	for i := start; i < len(s.verses) && s.verses[i].Chapter == chapter; i++ {
		out = append(out, s.verses[i])
	}
	return out
}

// Chapters returns the distinct chapter numbers present, ascending.
func (s *Snapshot) Chapters() []int {
	var out []int
	for _, v := range s.verses {
		if len(out) == 0 || out[len(out)-1] != v.Chapter {
			out = append(out, v.Chapter)
		}
	}
	return out
}
