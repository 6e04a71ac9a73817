package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Config holds all configuration for the shopchat service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// LLMConfig selects and configures the completion/embedding provider.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"` // openai or gemini
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "openai":
		if strings.TrimSpace(l.OpenAI.APIKey) == "" {
			return fmt.Errorf("%w: llm.openai.api_key required", rag.ErrConfiguration)
		}
	case "gemini":
		if strings.TrimSpace(l.Gemini.APIKey) == "" {
			return fmt.Errorf("%w: llm.gemini.api_key required", rag.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: llm.provider must be openai or gemini, got %q", rag.ErrConfiguration, l.Provider)
	}
	return nil
}

// RAGConfig carries the retrieval tuning values; defaults are set in
// LoadConfig.
type RAGConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
	TopK                int     `mapstructure:"top_k"`
	MinScore            float64 `mapstructure:"min_score"`
	HistoryWindow       int     `mapstructure:"history_window"`
	PromptBudget        int     `mapstructure:"prompt_budget"`
	SuggestionCount     int     `mapstructure:"suggestion_count"`
	KeywordFallback     bool    `mapstructure:"keyword_fallback"`
	IndexBackend        string  `mapstructure:"index_backend"` // postgres or memory
	SnapshotPath        string  `mapstructure:"snapshot_path"` // memory backend only
}

func (r RAGConfig) Validate() error {
	if r.ChunkSize <= 0 {
		return fmt.Errorf("%w: rag.chunk_size must be positive", rag.ErrConfiguration)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("%w: rag.chunk_overlap must be in [0, chunk_size)", rag.ErrConfiguration)
	}
	if r.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: rag.embedding_dimensions must be positive", rag.ErrConfiguration)
	}
	if r.TopK <= 0 {
		return fmt.Errorf("%w: rag.top_k must be positive", rag.ErrConfiguration)
	}
	if r.MinScore < 0 || r.MinScore >= 1 {
		return fmt.Errorf("%w: rag.min_score must be in [0,1)", rag.ErrConfiguration)
	}
	if r.PromptBudget <= len(promptFloor) {
		return fmt.Errorf("%w: rag.prompt_budget too small to hold the instruction preamble", rag.ErrConfiguration)
	}
	switch r.IndexBackend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("%w: rag.index_backend must be postgres or memory, got %q", rag.ErrConfiguration, r.IndexBackend)
	}
	return nil
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN builds the connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("%w: storage.postgres.host/dbname required when url is not provided", rag.ErrConfiguration)
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings. Redis is optional: without
// it sessions fall back to the in-memory store and the scheduler runs
// without a distributed lock.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// SchedulerConfig controls the periodic background reindex.
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// promptFloor is the immutable head of every prompt; the budget must at
// least fit it plus a question.
const promptFloor = `You are a shopping assistant that answers strictly from the "Product information" below.`

// LoadConfig reads the JSON config file (and SHOPCHAT_* env overrides) and
// validates it. Configuration errors are fatal at startup, never per-query.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.session_ttl", "30m")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.completion_model", "gpt-4o-mini")
	v.SetDefault("llm.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.openai.temperature", 0.2)
	v.SetDefault("llm.openai.max_tokens", 1024)
	v.SetDefault("llm.openai.timeout", "30s")
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.gemini.completion_model", "gemini-1.5-flash")
	v.SetDefault("llm.gemini.embedding_model", "text-embedding-004")
	v.SetDefault("llm.gemini.timeout", "30s")
	v.SetDefault("rag.chunk_size", 500)
	v.SetDefault("rag.chunk_overlap", 50)
	v.SetDefault("rag.embedding_dimensions", 1536)
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.min_score", 0.35)
	v.SetDefault("rag.history_window", 3)
	v.SetDefault("rag.prompt_budget", 6000)
	v.SetDefault("rag.suggestion_count", 2)
	v.SetDefault("rag.keyword_fallback", true)
	v.SetDefault("rag.index_backend", "postgres")
	v.SetDefault("scheduler.cron_spec", "@daily")
	v.SetDefault("telemetry.enabled", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SHOPCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Env-only configuration is fine; a missing file is not fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RAG.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
