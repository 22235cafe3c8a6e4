package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperjump/gitaguide/internal/models"
)

// Selectors locate verse parts in an HTML page. Field selectors are evaluated inside
// each verse element.
type Selectors struct {
	Verse           string `yaml:"verse"`
	ChapterAttr     string `yaml:"chapter_attr"`
	VerseAttr       string `yaml:"verse_attr"`
	Sanskrit        string `yaml:"sanskrit"`
	Transliteration string `yaml:"transliteration"`
	WordMeanings    string `yaml:"word_meanings"`
	Translation     string `yaml:"translation"`
	Commentary      string `yaml:"commentary"`
}

// DefaultSelectors match pages of the form
//
//	<section data-chapter="2">
//	  <div class="verse" data-verse="47"> <p class="translation">...</p> ... </div>
//	</section>
func DefaultSelectors() Selectors {
	return Selectors{
		Verse:           ".verse",
		ChapterAttr:     "data-chapter",
		VerseAttr:       "data-verse",
		Sanskrit:        ".sanskrit",
		Transliteration: ".transliteration",
		WordMeanings:    ".word-meanings",
		Translation:     ".translation",
		Commentary:      ".commentary",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Verse == "" {
		s.Verse = d.Verse
	}
	if s.ChapterAttr == "" {
		s.ChapterAttr = d.ChapterAttr
	}
	if s.VerseAttr == "" {
		s.VerseAttr = d.VerseAttr
	}
	if s.Sanskrit == "" {
		s.Sanskrit = d.Sanskrit
	}
	if s.Transliteration == "" {
		s.Transliteration = d.Transliteration
	}
	if s.WordMeanings == "" {
		s.WordMeanings = d.WordMeanings
	}
	if s.Translation == "" {
		s.Translation = d.Translation
	}
	if s.Commentary == "" {
		s.Commentary = d.Commentary
	}
	return s
}

// ParseHTML extracts verses from an HTML page. The chapter comes from the chapter
// attribute on the verse element or its nearest ancestor carrying it.
func ParseHTML(r io.Reader, sel Selectors) ([]*models.Verse, error) {
	sel = sel.withDefaults()
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		verses   []*models.Verse
		parseErr error
	)
	chapterSel := "[" + sel.ChapterAttr + "]"
	doc.Find(sel.Verse).EachWithBreak(func(i int, s *goquery.Selection) bool {
		chapterText, ok := s.Attr(sel.ChapterAttr)
		if !ok {
			chapterText, ok = s.Closest(chapterSel).Attr(sel.ChapterAttr)
		}
		if !ok {
			parseErr = fmt.Errorf("verse element #%d: no %s attribute", i+1, sel.ChapterAttr)
			return false
		}
		chapter, err := strconv.Atoi(strings.TrimSpace(chapterText))
		if err != nil {
			parseErr = fmt.Errorf("verse element #%d: invalid chapter %q", i+1, chapterText)
			return false
		}
		label, ok := s.Attr(sel.VerseAttr)
		if !ok {
			parseErr = fmt.Errorf("verse element #%d: no %s attribute", i+1, sel.VerseAttr)
			return false
		}
		v, err := newVerse(chapter, strings.TrimSpace(label))
		if err != nil {
			parseErr = fmt.Errorf("verse element #%d: %w", i+1, err)
			return false
		}
		v.Sanskrit = fieldText(s, sel.Sanskrit)
		v.Transliteration = fieldText(s, sel.Transliteration)
		v.WordMeanings = fieldText(s, sel.WordMeanings)
		v.Translation = fieldText(s, sel.Translation)
		v.Commentary = fieldText(s, sel.Commentary)
		verses = append(verses, v)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return verses, nil
}

// fieldText joins the text of every match, one paragraph per match. A match holding
// <p> elements contributes one paragraph per <p>.
func fieldText(s *goquery.Selection, selector string) string {
	var parts []string
	add := func(_ int, f *goquery.Selection) {
		if t := cleanText(f.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	s.Find(selector).Each(func(_ int, f *goquery.Selection) {
		if ps := f.Find("p"); ps.Length() > 0 {
			ps.Each(add)
			return
		}
		add(0, f)
	})
	return strings.Join(parts, "\n\n")
}
