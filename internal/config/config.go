// Package config provides configuration loading and structs for the gitaguide server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/gitaguide/internal/embedding"
	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/llm"
	"github.com/hyperjump/gitaguide/internal/retrieval"
)

// DefaultPath is where the CLI looks for its config file.
const DefaultPath = "/usr/local/etc/gitaguide/config.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// RetrievalConfig tunes keyword extraction and verse matching.
type RetrievalConfig struct {
	MaxKeywords       int      `yaml:"max_keywords"`
	MinTokenLength    int      `yaml:"min_token_length"`
	StopWords         []string `yaml:"stop_words"`
	DefaultMaxResults int      `yaml:"default_max_results"`
	HardMaxResults    int      `yaml:"hard_max_results"`
	Matcher           string   `yaml:"matcher"` // scan or indexed
}

// LLMConfig selects the generator used for guidance.
type LLMConfig struct {
	Provider           string       `yaml:"provider"`
	TimeoutSeconds     int          `yaml:"timeout_seconds"`
	Temperature        *float64     `yaml:"temperature"`
	MaxOutputTokens    int          `yaml:"max_output_tokens"`
	CommentaryMaxChars int          `yaml:"commentary_max_chars"`
	Gemini             GeminiConfig `yaml:"gemini"`
	Ollama             OllamaConfig `yaml:"ollama"`
}

// GeminiConfig holds Gemini settings. The API key itself is read from the
// environment variable named by APIKeyEnv.
type GeminiConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbeddingConfig holds verse embedding settings for the offline tools.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// IngestConfig lists verse sources and how to read them.
type IngestConfig struct {
	Sources     []string         `yaml:"sources"`
	Watch       bool             `yaml:"watch"`
	Concurrency int              `yaml:"concurrency"`
	HTML        ingest.Selectors `yaml:"html"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	for i := range cfg.Ingest.Sources {
		cfg.Ingest.Sources[i] = expandPath(cfg.Ingest.Sources[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ResolvePath returns the config file to load. When path is the default and it
// does not exist, a config.yaml in the working directory is used instead.
func ResolvePath(path string) string {
	if path != DefaultPath {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		if abs, err := filepath.Abs("config.yaml"); err == nil {
			return abs
		}
	}
	return path
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. ":memory:" is kept as is.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// ExtractorConfig returns the keyword extraction settings.
func (c *Config) ExtractorConfig() retrieval.ExtractorConfig {
	ec := retrieval.DefaultExtractorConfig()
	if len(c.Retrieval.StopWords) > 0 {
		ec.StopWords = c.Retrieval.StopWords
	}
	ec.MaxKeywords = c.Retrieval.MaxKeywords
	ec.MinTokenLength = c.Retrieval.MinTokenLength
	return ec
}

// Limits returns the result limits for retrieval.
func (c *Config) Limits() retrieval.Limits {
	return retrieval.Limits{
		Default: c.Retrieval.DefaultMaxResults,
		Ceiling: c.Retrieval.HardMaxResults,
	}
}

// LLMOptions returns the generator settings.
func (c *Config) LLMOptions() llm.Config {
	temp := -1.0
	if c.LLM.Temperature != nil {
		temp = *c.LLM.Temperature
	}
	return llm.Config{
		Provider:        c.LLM.Provider,
		Timeout:         time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		Temperature:     temp,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		GeminiModel:     c.LLM.Gemini.Model,
		GeminiAPIKeyEnv: c.LLM.Gemini.APIKeyEnv,
		GeminiBaseURL:   c.LLM.Gemini.BaseURL,
		OllamaBaseURL:   c.LLM.Ollama.BaseURL,
		OllamaModel:     c.LLM.Ollama.Model,
	}
}

// EmbeddingOptions returns the embedder settings.
func (c *Config) EmbeddingOptions() embedding.Config {
	return embedding.Config{
		Provider:   c.Embedding.Provider,
		Dimensions: c.Embedding.Dimensions,
		CacheSize:  c.Embedding.CacheSize,
		Model:      c.Embedding.Model,
		BaseURL:    c.Embedding.BaseURL,
		APIKeyEnv:  c.Embedding.APIKeyEnv,
	}
}
