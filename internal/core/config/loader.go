package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if !cfg.Generation.DefaultStyle.Valid() {
		return nil, fmt.Errorf("unknown default style %q", cfg.Generation.DefaultStyle)
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	gen := &cfg.Generation
	if gen.Model == "" {
		gen.Model = "gemini-2.5-flash-image"
	}
	if gen.DefaultStyle == "" {
		gen.DefaultStyle = domain.StyleModern
	}
	if gen.MaxPromptChars == 0 {
		gen.MaxPromptChars = 500
	}
	if gen.MinPromptChars == 0 {
		gen.MinPromptChars = 1
	}
	if gen.MaxReferenceBytes == 0 {
		gen.MaxReferenceBytes = 10 << 20 // 10 MiB
	}
	if gen.RateLimit.MaxRequests == 0 {
		gen.RateLimit.MaxRequests = 10
	}
	if gen.RateLimit.WindowMs == 0 {
		gen.RateLimit.WindowMs = 60_000
	}
	if gen.Retry.MaxAttempts == 0 {
		gen.Retry.MaxAttempts = 3
	}
	if gen.Retry.BaseDelayMs == 0 {
		gen.Retry.BaseDelayMs = 1_000
	}
	if gen.Retry.AttemptTimeoutMs == 0 {
		gen.Retry.AttemptTimeoutMs = 30_000
	}

	if cfg.Draft.Driver == "" {
		cfg.Draft.Driver = "memory"
	}
	if cfg.Draft.TTLHours == 0 {
		cfg.Draft.TTLHours = 24
	}
	if cfg.Draft.MaxBytes == 0 {
		cfg.Draft.MaxBytes = 5 << 20 // 5 MiB
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
}
