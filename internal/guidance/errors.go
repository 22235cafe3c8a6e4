package guidance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatches means the question could not be grounded in any verse.
	ErrNoMatches = errors.New("no verses matched the question")
	// ErrEmptyKeywordSet means every word of the question was a stop word or too short.
	ErrEmptyKeywordSet = errors.New("question has no searchable keywords")
	// ErrGenerationFailed wraps generator failures.
	ErrGenerationFailed = errors.New("guidance generation failed")
)

// NoMatchError reports an ungrounded question with the keywords tried and alternative
// keywords drawn from the corpus vocabulary. It matches ErrNoMatches, and also
// ErrEmptyKeywordSet when no keywords were extracted.
type NoMatchError struct {
	Keywords    []string
	Suggestions []string
}

func (e *NoMatchError) Error() string {
	var b strings.Builder
	if len(e.Keywords) == 0 {
		b.WriteString(ErrEmptyKeywordSet.Error())
	} else {
		fmt.Fprintf(&b, "%s (keywords: %s)", ErrNoMatches.Error(), strings.Join(e.Keywords, ", "))
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "; try: %s", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

// Is implements errors.Is matching.
func (e *NoMatchError) Is(target error) bool {
	if target == ErrNoMatches {
		return true
	}
	return target == ErrEmptyKeywordSet && len(e.Keywords) == 0
}
