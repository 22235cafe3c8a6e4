// Package guidance grounds a question in retrieved verses and asks a generator for an
// answer that cites them.
package guidance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/keyword"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Retriever is the verse retrieval the composer depends on.
type Retriever interface {
	RetrieveVerses(ctx context.Context, query string, maxResults int) (*models.RetrievalResult, error)
	Limits() retrieval.Limits
}

// maxSuggestions bounds the alternative keywords attached to a NoMatchError.
const maxSuggestions = 5

// Composer runs validate, retrieve, prompt and generate.
type Composer struct {
	retriever     Retriever
	generator     Generator
	suggester     *keyword.Suggester
	commentaryMax int
	logger        *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithSuggester attaches keyword suggestions to no-match errors.
func WithSuggester(s *keyword.Suggester) Option {
	return func(c *Composer) { c.suggester = s }
}

// WithCommentaryMax sets the per-verse commentary limit in the prompt.
func WithCommentaryMax(n int) Option {
	return func(c *Composer) { c.commentaryMax = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer. generator may be nil when only Search is used.
func NewComposer(r Retriever, g Generator, opts ...Option) *Composer {
	c := &Composer{
		retriever:     r,
		generator:     g,
		commentaryMax: DefaultCommentaryMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Search validates q and retrieves verses. A query without keywords or without matches
// fails with a *NoMatchError.
func (c *Composer) Search(ctx context.Context, q *models.GuidanceQuery) (*models.RetrievalResult, error) {
	limits := c.retriever.Limits()
	if err := q.Validate(limits.Default, limits.Ceiling); err != nil {
		return nil, retrieval.ErrInvalidQuery
	}
	result, err := c.retriever.RetrieveVerses(ctx, q.Query, q.MaxResults)
	if err != nil {
		return nil, err
	}
	if result.NoKeywords() || result.Empty() {
		return result, c.noMatch(result.Keywords)
	}
	return result, nil
}

// Compose answers q. The generator is not called when no verse matched.
func (c *Composer) Compose(ctx context.Context, q *models.GuidanceQuery) (*models.Guidance, error) {
	start := time.Now()
	result, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if c.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", ErrGenerationFailed)
	}

	prompt := BuildPrompt(q.Query, result.Matches, c.commentaryMax)
	c.logger.Debug("generating guidance",
		zap.Strings("keywords", result.Keywords),
		zap.Int("verses", len(result.Matches)),
		zap.Int("prompt_len", len(prompt)),
		zap.String("model", c.generator.Name()),
	)
	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("generation failed", zap.String("model", c.generator.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &models.Guidance{
		Query:     q.Query,
		Answer:    answer,
		Model:     c.generator.Name(),
		Keywords:  result.Keywords,
		Verses:    result.Matches,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

func (c *Composer) noMatch(keywords []string) error {
	e := &NoMatchError{Keywords: keywords}
	if c.suggester != nil && len(keywords) > 0 {
		e.Suggestions = c.suggester.SuggestKeywords(keywords, maxSuggestions)
	}
	return e
}

// GeneratorName returns the configured model name, or "" without a generator.
func (c *Composer) GeneratorName() string {
	if c.generator == nil {
		return ""
	}
	return c.generator.Name()
}
