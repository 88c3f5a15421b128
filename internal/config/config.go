// Package config provides configuration loading for the PDF summarization pipeline.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Summary   SummaryConfig   `yaml:"summary"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PipelineConfig holds batch scheduling settings.
type PipelineConfig struct {
	InputDir            string        `yaml:"input_dir"`
	OutputDir           string        `yaml:"output_dir"` // empty: write summaries next to the PDFs
	BatchSize           int           `yaml:"batch_size"`
	SortInputs          bool          `yaml:"sort_inputs"`
	MaxInputChars       int           `yaml:"max_input_chars"`
	KeywordTopN         int           `yaml:"keyword_top_n"`
	WorkerTimeout       time.Duration `yaml:"worker_timeout"` // 0 disables
	ConcurrentSummaries bool          `yaml:"concurrent_summaries"`
}

// SummaryConfig holds summarizer settings.
type SummaryConfig struct {
	Backend   string `yaml:"backend"` // extractive or llm
	MinLength int    `yaml:"min_length"`
	Short     int    `yaml:"short"`
	Medium    int    `yaml:"medium"`
	Long      int    `yaml:"long"`
}

// KeywordsConfig holds keyword extraction settings.
type KeywordsConfig struct {
	Strategy   string `yaml:"strategy"` // tfidf or embedding
	CorpusPath string `yaml:"corpus_path"`
}

// ExtractorConfig selects the PDF text backend.
type ExtractorConfig struct {
	Backend string `yaml:"backend"` // fitz or pdf
}

// StoreConfig holds metadata store settings.
type StoreConfig struct {
	Driver   string         `yaml:"driver"` // mongo, sqlite, postgres or memory
	Mongo    MongoConfig    `yaml:"mongo"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CacheConfig holds summary cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // none, memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LLMConfig holds chat-completion settings for the llm summary backend.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingConfig holds embedding model settings for the embedding keyword strategy.
type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// MemoryConfig holds the resident memory guard.
type MemoryConfig struct {
	MaxRSSMB int `yaml:"max_rss_mb"` // 0 disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Console    bool   `yaml:"console"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for local batch runs.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BatchSize:           2,
			SortInputs:          true,
			MaxInputChars:       2000,
			KeywordTopN:         5,
			ConcurrentSummaries: true,
		},
		Summary: SummaryConfig{
			Backend:   "extractive",
			MinLength: 30,
			Short:     50,
			Medium:    100,
			Long:      200,
		},
		Keywords: KeywordsConfig{
			Strategy: "tfidf",
		},
		Extractor: ExtractorConfig{
			Backend: "fitz",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017/",
				Database:   "pdf_database",
				Collection: "pdf_metadata",
				Timeout:    10 * time.Second,
			},
			SQLite: SQLiteConfig{
				Path: "pdf_metadata.db",
			},
			Postgres: PostgresConfig{
				MaxOpenConns: 10,
			},
		},
		Cache: CacheConfig{
			Driver: "none",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		LLM: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: 60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Dimension: 768,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "pipeline.log",
			MaxSizeMB:  5,
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.Pipeline.BatchSize)
	}

	if c.Pipeline.MaxInputChars < 1 {
		return fmt.Errorf("max_input_chars must be positive, got %d", c.Pipeline.MaxInputChars)
	}

	if c.Pipeline.KeywordTopN < 1 {
		return fmt.Errorf("keyword_top_n must be positive, got %d", c.Pipeline.KeywordTopN)
	}

	if c.Pipeline.WorkerTimeout < 0 {
		return fmt.Errorf("worker_timeout cannot be negative")
	}

	s := c.Summary
	if s.MinLength < 0 || s.MinLength > s.Short || s.Short >= s.Medium || s.Medium >= s.Long {
		return fmt.Errorf("summary lengths must satisfy min_length <= short < medium < long (got %d, %d, %d, %d)",
			s.MinLength, s.Short, s.Medium, s.Long)
	}

	switch s.Backend {
	case "extractive":
	case "llm":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm summary backend requires an API key (set OPENROUTER_API_KEY)")
		}
	default:
		return fmt.Errorf("invalid summary backend: %s", s.Backend)
	}

	switch c.Keywords.Strategy {
	case "tfidf":
	case "embedding":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding keyword strategy requires an API key (set OPENROUTER_API_KEY)")
		}
	default:
		return fmt.Errorf("invalid keyword strategy: %s", c.Keywords.Strategy)
	}

	if c.Extractor.Backend != "fitz" && c.Extractor.Backend != "pdf" {
		return fmt.Errorf("invalid extractor backend: %s", c.Extractor.Backend)
	}

	switch c.Store.Driver {
	case "mongo", "sqlite", "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("postgres store requires a DSN")
		}
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	if c.Cache.Driver != "none" && c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Memory.MaxRSSMB < 0 {
		return fmt.Errorf("max_rss_mb cannot be negative")
	}

	return nil
}

// SummaryBudgets returns the length budget for each summary size.
func (c *Config) SummaryBudgets() map[domain.SummaryLength]domain.LengthBudget {
	return map[domain.SummaryLength]domain.LengthBudget{
		domain.SummaryShort:  {MinLength: c.Summary.MinLength, MaxLength: c.Summary.Short},
		domain.SummaryMedium: {MinLength: c.Summary.MinLength, MaxLength: c.Summary.Medium},
		domain.SummaryLong:   {MinLength: c.Summary.MinLength, MaxLength: c.Summary.Long},
	}
}

// StoreDSN returns the connection string for the configured SQL driver.
func (c *Config) StoreDSN() string {
	if c.Store.Driver == "sqlite" {
		return c.Store.SQLite.Path
	}
	return c.Store.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = v
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Store.Driver = "mongo"
		cfg.Store.Mongo.URI = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Store.Driver = "sqlite"
			cfg.Store.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Store.Driver = "postgres"
			cfg.Store.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.BatchSize = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
