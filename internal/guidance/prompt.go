package guidance

import (
	"fmt"
	"strings"

	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// DefaultCommentaryMax bounds each verse's commentary in the prompt, in runes.
const DefaultCommentaryMax = 600

const instructions = `You are a calm, compassionate guide grounded in the Bhagavad Gita.
Answer the question using only the verses above. Cite every verse you rely on by its
reference in square brackets, for example [2.47]. If the verses do not address the
question, say so briefly instead of inventing teachings. Keep the answer under 250 words.`

// BuildPrompt formats each verse as a labeled block (reference, translation, truncated
// commentary), then appends the question and the fixed instructions.
func BuildPrompt(query string, matches []models.VerseMatch, commentaryMax int) string {
	if commentaryMax <= 0 {
		commentaryMax = DefaultCommentaryMax
	}
	var b strings.Builder
	b.WriteString("Relevant verses:\n\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "[%s]\n", m.Reference)
		fmt.Fprintf(&b, "Translation: %s\n", strings.TrimSpace(m.Verse.Translation))
		if c := strings.TrimSpace(m.Verse.Commentary); c != "" {
			fmt.Fprintf(&b, "Commentary: %s\n", utils.Truncate(c, commentaryMax))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(query))
	b.WriteString(instructions)
	b.WriteString("\n")
	return b.String()
}
