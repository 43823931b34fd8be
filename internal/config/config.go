package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Remote sequence-tagging model service
	TaggerURL     string
	TaggerTimeout time.Duration

	// LLM classifier (OpenAI-compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Which backend produces tags for records without entities:
	// "remote" (tagging model service) or "llm".
	TagSource string

	// Worker pool
	WorkerCount      int
	MaxQueueSize     int
	MaxConcurrentTag int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Batch output
	OutputDir string

	// Optional Redis result cache; disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ADDRNORM_API_KEY"),

		TaggerURL:     envOr("TAGGER_URL", "http://localhost:7869"),
		TaggerTimeout: envDuration("TAGGER_TIMEOUT", 30*time.Second),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOr("OPENAI_API_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   envOr("OPENAI_API_MODEL", "gpt-4o-mini"),

		TagSource: envOr("TAG_SOURCE", "remote"),

		WorkerCount:      envInt("WORKER_COUNT", 4),
		MaxQueueSize:     envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentTag: envInt("MAX_CONCURRENT_TAG", 8),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		OutputDir: envOr("OUTPUT_DIR", "./result"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", 10*time.Minute),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentTag <= 0 {
		cfg.MaxConcurrentTag = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ADDRNORM_API_KEY is required")
	}
	switch c.TagSource {
	case "remote":
		if c.TaggerURL == "" {
			return fmt.Errorf("TAGGER_URL is required when TAG_SOURCE=remote")
		}
	case "llm":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TAG_SOURCE=llm")
		}
	default:
		return fmt.Errorf("TAG_SOURCE must be \"remote\" or \"llm\", got %q", c.TagSource)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
