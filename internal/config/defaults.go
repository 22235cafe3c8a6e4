package config

import (
	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/llm"
	"github.com/hyperjump/gitaguide/internal/retrieval"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/gitaguide/data/db/gita.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/gitaguide/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/gitaguide/data/indices/vectors.bin"
	}
	if cfg.Retrieval.MaxKeywords == 0 {
		cfg.Retrieval.MaxKeywords = retrieval.DefaultMaxKeywords
	}
	if cfg.Retrieval.MinTokenLength == 0 {
		cfg.Retrieval.MinTokenLength = retrieval.DefaultMinTokenLength
	}
	if cfg.Retrieval.DefaultMaxResults == 0 {
		cfg.Retrieval.DefaultMaxResults = retrieval.DefaultMaxResults
	}
	if cfg.Retrieval.HardMaxResults == 0 || cfg.Retrieval.HardMaxResults > retrieval.HardMaxResults {
		cfg.Retrieval.HardMaxResults = retrieval.HardMaxResults
	}
	if cfg.Retrieval.Matcher == "" {
		cfg.Retrieval.Matcher = "scan"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = int(llm.DefaultTimeout.Seconds())
	}
	if cfg.LLM.Temperature == nil {
		t := llm.DefaultTemperature
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = llm.DefaultMaxOutputTokens
	}
	if cfg.LLM.CommentaryMaxChars == 0 {
		cfg.LLM.CommentaryMaxChars = 600
	}
	if cfg.LLM.Gemini.Model == "" {
		cfg.LLM.Gemini.Model = llm.DefaultGeminiModel
	}
	if cfg.LLM.Gemini.APIKeyEnv == "" {
		cfg.LLM.Gemini.APIKeyEnv = llm.DefaultGeminiKeyEnv
	}
	if cfg.LLM.Ollama.BaseURL == "" {
		cfg.LLM.Ollama.BaseURL = llm.DefaultOllamaURL
	}
	if cfg.LLM.Ollama.Model == "" {
		cfg.LLM.Ollama.Model = llm.DefaultOllamaModel
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.HTML == (ingest.Selectors{}) {
		cfg.Ingest.HTML = ingest.DefaultSelectors()
	}
}
