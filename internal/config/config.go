// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// OpenAIAPIKey may be empty; the gateway reports a configuration error
	// per request instead of failing startup, so the rest of the app stays
	// usable without a key.
	OpenAIAPIKey string
	OpenAIModel  string

	// RequestTimeout bounds a single persona's gateway call, including the
	// gateway's internal rate-limit retries.
	RequestTimeout time.Duration

	// MaxRetries is the number of additional attempts after a rate-limited
	// first attempt. InitialBackoff doubles on each retry.
	MaxRetries     int
	InitialBackoff time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/council.db"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvInt("GATEWAY_MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("GATEWAY_INITIAL_BACKOFF", time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OpenAIModel == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("GATEWAY_MAX_RETRIES must be >= 0")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("GATEWAY_INITIAL_BACKOFF must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
