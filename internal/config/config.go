// Package config provides environment-driven configuration for the server
// and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultMaxRetries bounds automatic regeneration attempts per cycle.
// Each attempt is a full AI call.
const DefaultMaxRetries = 3

// DefaultMaxConcurrentGenerations caps generation cycles running at once
// across the whole server.
const DefaultMaxConcurrentGenerations = 4

// Config holds process configuration loaded from the environment.
type Config struct {
	Port                     int
	DatabaseURL              string
	GeminiAPIKey             string
	MaxRetries               int
	MaxConcurrentGenerations int
	Env                      string // "development" or "production"
}

// Load reads configuration from environment variables, applying defaults
// for optional values. DATABASE_URL and GEMINI_API_KEY are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                     8080,
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		MaxRetries:               DefaultMaxRetries,
		MaxConcurrentGenerations: DefaultMaxConcurrentGenerations,
		Env:                      "development",
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("GENERATION_MAX_RETRIES"); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GENERATION_MAX_RETRIES: %v", err)
		}
		cfg.MaxRetries = retries
	}

	if v := os.Getenv("GENERATION_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GENERATION_MAX_CONCURRENT: %v", err)
		}
		cfg.MaxConcurrentGenerations = n
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required but not set")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: GENERATION_MAX_RETRIES must be non-negative, got %d", c.MaxRetries)
	}
	if c.MaxConcurrentGenerations < 1 {
		return fmt.Errorf("config error: GENERATION_MAX_CONCURRENT must be at least 1, got %d", c.MaxConcurrentGenerations)
	}
	return nil
}
