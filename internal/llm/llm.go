// Package llm provides the text generators that turn a grounded prompt into guidance:
// Gemini through the GenAI SDK and a local Ollama server over HTTP.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies provider and model, e.g. "gemini:gemini-2.0-flash".
	Name() string
}

// Config selects and tunes a generator.
type Config struct {
	Provider        string // gemini, ollama
	Timeout         time.Duration
	Temperature     float64 // negative selects DefaultTemperature
	MaxOutputTokens int

	GeminiModel     string
	GeminiAPIKeyEnv string
	GeminiBaseURL   string // optional API endpoint override

	OllamaBaseURL string
	OllamaModel   string
}

// Defaults.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 1024
	DefaultGeminiModel     = "gemini-2.0-flash"
	DefaultGeminiKeyEnv    = "GEMINI_API_KEY"
	DefaultOllamaURL       = "http://localhost:11434"
	DefaultOllamaModel     = "llama3.2"
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
	if c.GeminiAPIKeyEnv == "" {
		c.GeminiAPIKeyEnv = DefaultGeminiKeyEnv
	}
	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = DefaultOllamaURL
	}
	if c.OllamaModel == "" {
		c.OllamaModel = DefaultOllamaModel
	}
	return c
}

// New creates the generator named by cfg.Provider. The Gemini API key is read from the
// environment variable named by GeminiAPIKeyEnv.
func New(ctx context.Context, cfg Config) (Generator, error) {
	cfg = cfg.withDefaults()
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return NewGeminiGenerator(ctx, os.Getenv(cfg.GeminiAPIKeyEnv), cfg)
	case "ollama":
		return NewOllamaGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: gemini, ollama)", cfg.Provider)
	}
}
