// Package config loads runtime settings from defaults, an optional YAML file,
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the OpenAI-compatible embedding and chat endpoints.
type OpenAIConfig struct {
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	EmbeddingModel     string        `yaml:"embedding_model"`
	EmbeddingDimension int           `yaml:"embedding_dimension"`
	ChatModel          string        `yaml:"chat_model"`
	ChatTemperature    float64       `yaml:"chat_temperature"`
	ChatMaxTokens      int           `yaml:"chat_max_tokens"`
	GenerationTimeout  time.Duration `yaml:"generation_timeout"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	MaxRunes     int `yaml:"max_runes"`
	OverlapRunes int `yaml:"overlap_runes"`
}

// RetrievalConfig configures corpus loading and lookup.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	EmbedBatchSize   int `yaml:"embed_batch_size"`
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

// QdrantConfig configures the optional corpus mirror.
type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// ServerConfig configures the network surfaces.
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // "http" or "stdio"
	// MaxUploadBytes caps the size of a single uploaded document.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Config is the root configuration.
type Config struct {
	OpenAI      OpenAIConfig    `yaml:"openai"`
	Chunking    ChunkingConfig  `yaml:"chunking"`
	Retrieval   RetrievalConfig `yaml:"retrieval"`
	Qdrant      QdrantConfig    `yaml:"qdrant"`
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
	GitHubToken string          `yaml:"github_token"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 0, // derived from the model or the first vector
			ChatModel:          "gpt-4o-mini",
			ChatTemperature:    0.5,
			ChatMaxTokens:      2000,
			GenerationTimeout:  60 * time.Second,
		},
		Chunking: ChunkingConfig{
			MaxRunes:     1000,
			OverlapRunes: 0,
		},
		Retrieval: RetrievalConfig{
			TopK:             4,
			EmbedBatchSize:   32,
			EmbedConcurrency: 4,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "docchat_corpus",
		},
		Server: ServerConfig{
			Port:           "8080",
			Mode:           "http",
			MaxUploadBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty or the file does not exist), and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.OpenAI.EmbeddingModel)
	c.OpenAI.EmbeddingDimension = getEnvInt("EMBEDDING_DIMENSION", c.OpenAI.EmbeddingDimension)
	c.OpenAI.ChatModel = getEnv("CHAT_MODEL", c.OpenAI.ChatModel)
	c.OpenAI.ChatTemperature = getEnvFloat("CHAT_TEMPERATURE", c.OpenAI.ChatTemperature)
	c.OpenAI.ChatMaxTokens = getEnvInt("CHAT_MAX_TOKENS", c.OpenAI.ChatMaxTokens)
	c.OpenAI.GenerationTimeout = getEnvDuration("GENERATION_TIMEOUT", c.OpenAI.GenerationTimeout)

	c.Chunking.MaxRunes = getEnvInt("CHUNK_MAX_RUNES", c.Chunking.MaxRunes)
	c.Chunking.OverlapRunes = getEnvInt("CHUNK_OVERLAP_RUNES", c.Chunking.OverlapRunes)

	c.Retrieval.TopK = getEnvInt("RETRIEVAL_TOP_K", c.Retrieval.TopK)
	c.Retrieval.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", c.Retrieval.EmbedBatchSize)
	c.Retrieval.EmbedConcurrency = getEnvInt("EMBED_CONCURRENCY", c.Retrieval.EmbedConcurrency)

	c.Qdrant.Enabled = getEnvBool("QDRANT_ENABLED", c.Qdrant.Enabled)
	c.Qdrant.Host = getEnv("QDRANT_HOST", c.Qdrant.Host)
	c.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Qdrant.Port)
	c.Qdrant.Collection = getEnv("QDRANT_COLLECTION", c.Qdrant.Collection)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("SERVER_MODE", c.Server.Mode)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
}

// Validate checks value ranges. Either an API key or a base URL is required;
// a local OpenAI-compatible server needs only the latter.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY or OPENAI_BASE_URL must be set")
	}
	if c.OpenAI.EmbeddingDimension < 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be >= 0, got %d", c.OpenAI.EmbeddingDimension)
	}
	if c.OpenAI.ChatTemperature < 0 || c.OpenAI.ChatTemperature > 2 {
		return fmt.Errorf("CHAT_TEMPERATURE must be 0-2, got %f", c.OpenAI.ChatTemperature)
	}
	if c.OpenAI.ChatMaxTokens <= 0 {
		return fmt.Errorf("CHAT_MAX_TOKENS must be positive, got %d", c.OpenAI.ChatMaxTokens)
	}
	if c.OpenAI.GenerationTimeout < 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be >= 0, got %s", c.OpenAI.GenerationTimeout)
	}
	if c.Chunking.MaxRunes <= 0 {
		return fmt.Errorf("CHUNK_MAX_RUNES must be positive, got %d", c.Chunking.MaxRunes)
	}
	if c.Chunking.OverlapRunes < 0 || c.Chunking.OverlapRunes >= c.Chunking.MaxRunes {
		return fmt.Errorf("CHUNK_OVERLAP_RUNES must be in [0, %d), got %d", c.Chunking.MaxRunes, c.Chunking.OverlapRunes)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.EmbedBatchSize <= 0 || c.Retrieval.EmbedConcurrency <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE and EMBED_CONCURRENCY must be positive")
	}
	if c.Qdrant.Enabled && (c.Qdrant.Host == "" || c.Qdrant.Port <= 0) {
		return fmt.Errorf("QDRANT_HOST and QDRANT_PORT are required when QDRANT_ENABLED is set")
	}
	switch c.Server.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("SERVER_MODE must be http or stdio, got %q", c.Server.Mode)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
