// Package cli provides output formatting and the HTTP client used by the gitaguide CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/vector"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewLen bounds translation and commentary previews in text output.
const previewLen = 240

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteGuidance writes a generated answer followed by the verses it cites.
func WriteGuidance(w io.Writer, g *models.Guidance, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, g)
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(g.Answer))
	fmt.Fprintf(w, "Keywords: %s | %d verse(s) | %s | %dms\n\n",
		strings.Join(g.Keywords, ", "), len(g.Verses), g.Model, g.QueryTime)
	for _, m := range g.Verses {
		writeMatch(w, m, false)
	}
	return nil
}

// WriteRetrieval writes the verses selected for a query in (chapter, verse) order.
func WriteRetrieval(w io.Writer, r *models.RetrievalResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	fmt.Fprintf(w, "\nFound %d verse(s) for keywords: %s\n\n", len(r.Matches), strings.Join(r.Keywords, ", "))
	for _, m := range r.Matches {
		writeMatch(w, m, true)
	}
	return nil
}

func writeMatch(w io.Writer, m models.VerseMatch, commentary bool) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Bhagavad Gita %s", m.Reference)
	if len(m.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(m.MatchedKeywords, ", "))
	}
	fmt.Fprintln(w)
	if m.Verse == nil {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(m.Verse.Translation, previewLen))
	if commentary && m.Verse.Commentary != "" {
		fmt.Fprintf(w, "\nCommentary: %s\n", utils.Truncate(m.Verse.Commentary, previewLen))
	}
	fmt.Fprintln(w)
}

// WriteVerse writes one verse with all of its parts.
func WriteVerse(w io.Writer, v *models.Verse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, v)
	}
	fmt.Fprintf(w, "Bhagavad Gita %s\n\n", v.Reference())
	parts := []struct{ name, text string }{
		{"Sanskrit", v.Sanskrit},
		{"Transliteration", v.Transliteration},
		{"Word meanings", v.WordMeanings},
		{"Translation", v.Translation},
		{"Commentary", v.Commentary},
	}
	for _, p := range parts {
		if p.text != "" {
			fmt.Fprintf(w, "%s:\n%s\n\n", p.name, p.text)
		}
	}
	return nil
}

// WriteNoMatch explains why a question found no verse and lists alternative keywords.
func WriteNoMatch(w io.Writer, keywords, suggestions []string) {
	if len(keywords) == 0 {
		fmt.Fprintln(w, "Your question has no searchable keywords. Try naming what troubles you, e.g. \"fear of failure\".")
	} else {
		fmt.Fprintf(w, "No verses matched the keywords: %s\n", strings.Join(keywords, ", "))
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(w, "Try: %s\n", strings.Join(suggestions, ", "))
	}
}

// WriteKeywords writes the keywords extracted from query.
func WriteKeywords(w io.Writer, query string, keywords []string, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"query": query, "keywords": keywords})
	}
	if len(keywords) == 0 {
		fmt.Fprintln(w, "(no keywords)")
		return nil
	}
	for _, k := range keywords {
		fmt.Fprintln(w, k)
	}
	return nil
}

// WriteRelated writes the verses most similar to ref.
func WriteRelated(w io.Writer, ref string, neighbors []vector.Neighbor, verses map[string]*models.Verse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"reference": ref, "related": neighbors})
	}
	fmt.Fprintf(w, "Verses related to %s:\n\n", ref)
	for i, n := range neighbors {
		fmt.Fprintf(w, "%2d. %-10s %.4f", i+1, n.Reference, n.Score)
		if v, ok := verses[n.Reference]; ok {
			fmt.Fprintf(w, "  %s", utils.Truncate(v.Translation, 80))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteIngestReport writes the outcome of an ingest run.
func WriteIngestReport(w io.Writer, r *ingest.Report, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	if r.Unchanged {
		fmt.Fprintf(w, "Sources unchanged (%d file(s), %d verses)\n", r.Sources, r.Verses)
		return nil
	}
	fmt.Fprintf(w, "Ingested %d verses in %d chapter(s) from %d file(s) in %s\n",
		r.Verses, r.Chapters, r.Sources, r.Duration.Round(time.Millisecond))
	return nil
}

// WriteStatus writes a status map as aligned "key: value" lines, nested maps indented.
func WriteStatus(w io.Writer, status map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, status)
	}
	writeStatusMap(w, status, "")
	return nil
}

func writeStatusMap(w io.Writer, m map[string]interface{}, indent string) {
	for _, k := range sortedKeys(m) {
		switch v := m[k].(type) {
		case map[string]interface{}:
			fmt.Fprintf(w, "%s%s:\n", indent, k)
			writeStatusMap(w, v, indent+"  ")
		case float64:
			if v == float64(int64(v)) {
				fmt.Fprintf(w, "%s%-20s %d\n", indent, k+":", int64(v))
			} else {
				fmt.Fprintf(w, "%s%-20s %g\n", indent, k+":", v)
			}
		default:
			fmt.Fprintf(w, "%s%-20s %v\n", indent, k+":", v)
		}
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
