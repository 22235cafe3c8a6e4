// Package embedding turns verse text into vectors for the offline "related verses"
// index. Providers: deterministic mock, Ollama and Gemini, with an LRU cache in front.
package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies provider and model, e.g. "ollama:nomic-embed-text".
	Name() string
	Close() error
}

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string // mock, ollama, gemini
	Dimensions int
	CacheSize  int
	Model      string
	BaseURL    string
	APIKeyEnv  string
}

// New creates the configured embedder, wrapped in a cache when CacheSize > 0.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	case "ollama":
		e = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case "gemini":
		envName := cfg.APIKeyEnv
		if envName == "" {
			envName = "GEMINI_API_KEY"
		}
		e, err = NewGeminiEmbedder(context.Background(), os.Getenv(envName), cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, ollama, gemini)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
