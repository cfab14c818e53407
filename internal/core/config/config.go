package config

import (
	"github.com/happyBayes/goods-gallery/internal/core/domain"
	redisclient "github.com/happyBayes/goods-gallery/internal/infra/redis"
	"github.com/happyBayes/goods-gallery/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Generation GenerationConfig   `yaml:"generation"`
	Draft      DraftConfig        `yaml:"draft"`
	Storage    StorageConfig      `yaml:"storage"`
	Database   postgres.Config    `yaml:"database"`
	Redis      redisclient.Config `yaml:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// GenerationConfig holds settings for the AI design generation flow.
type GenerationConfig struct {
	Model             string          `yaml:"model"`
	APIKey            string          `yaml:"api_key"`
	DefaultStyle      domain.Style    `yaml:"default_style"`
	MaxPromptChars    int             `yaml:"max_prompt_chars"`
	MinPromptChars    int             `yaml:"min_prompt_chars"`
	MaxReferenceBytes int             `yaml:"max_reference_bytes"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	Retry             RetryConfig     `yaml:"retry"`
}

// RateLimitConfig bounds generation calls per sliding window.
type RateLimitConfig struct {
	MaxRequests int `yaml:"max_requests"`
	WindowMs    int `yaml:"window_ms"`
}

// RetryConfig bounds retries around the external generation call.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	BaseDelayMs      int `yaml:"base_delay_ms"`
	AttemptTimeoutMs int `yaml:"attempt_timeout_ms"`
}

// DraftConfig holds draft persistence settings.
type DraftConfig struct {
	Driver   string `yaml:"driver"` // memory, redis
	TTLHours int    `yaml:"ttl_hours"`
	MaxBytes int    `yaml:"max_bytes"`
}

// StorageConfig selects the design repository backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, postgres
}
