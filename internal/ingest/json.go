package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/gitaguide/internal/models"
)

// jsonVerse is one verse object in a JSON source. "verse" may be a number or a label
// string such as "16-18".
type jsonVerse struct {
	Chapter         int             `json:"chapter"`
	Verse           json.RawMessage `json:"verse"`
	Label           string          `json:"label"`
	Sanskrit        string          `json:"sanskrit"`
	Transliteration string          `json:"transliteration"`
	WordMeanings    string          `json:"word_meanings"`
	Translation     string          `json:"translation"`
	Commentary      string          `json:"commentary"`
}

// ParseJSON parses a JSON array of verse objects, or an object with a "verses" array.
func ParseJSON(data []byte) ([]*models.Verse, error) {
	data = bytes.TrimSpace(data)
	var raw []jsonVerse
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Verses []jsonVerse `json:"verses"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode verses: %w", err)
		}
		raw = wrapper.Verses
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode verses: %w", err)
	}

	verses := make([]*models.Verse, 0, len(raw))
	for i, r := range raw {
		label := strings.TrimSpace(r.Label)
		if label == "" {
			l, err := rawVerseLabel(r.Verse)
			if err != nil {
				return nil, fmt.Errorf("verse #%d (chapter %d): %w", i+1, r.Chapter, err)
			}
			label = l
		}
		v, err := newVerse(r.Chapter, label)
		if err != nil {
			return nil, fmt.Errorf("verse #%d (chapter %d): %w", i+1, r.Chapter, err)
		}
		v.Sanskrit = cleanText(r.Sanskrit)
		v.Transliteration = cleanText(r.Transliteration)
		v.WordMeanings = cleanText(r.WordMeanings)
		v.Translation = cleanText(r.Translation)
		v.Commentary = cleanText(r.Commentary)
		verses = append(verses, v)
	}
	return verses, nil
}

func rawVerseLabel(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing verse number")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid verse number %s", raw)
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return "", fmt.Errorf("invalid verse number %s", raw)
	}
	return strconv.Itoa(i), nil
}

// newVerse builds a verse identity from a chapter and a label; numeric labels are
// stored as the verse number only.
func newVerse(chapter int, label string) (*models.Verse, error) {
	n, err := models.ParseVerseLabel(label)
	if err != nil {
		return nil, err
	}
	v := &models.Verse{Chapter: chapter, Verse: n}
	if label != strconv.Itoa(n) {
		v.Label = label
	}
	return v, nil
}
