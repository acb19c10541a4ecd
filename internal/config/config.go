// Package config holds client configuration sourced from defaults,
// an optional .env file, and STUDIZ_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration.
type Config struct {
	// BaseURL is the tutor backend root, scheme included.
	// Default: "http://localhost:8000".
	BaseURL string

	// StudentID identifies this learner to the backend. Default: "default".
	StudentID string

	// Subject selects the knowledge graph to study. Default: "biology".
	Subject string

	// Timeout bounds a single REST request. Streaming requests are bounded
	// by their context instead. Default: 30s.
	Timeout time.Duration

	// TopK is the number of passages retrieved per question. Default: 5.
	TopK int

	// UseKGExpansion asks the backend to expand questions with graph
	// neighbors before retrieval. Default: true.
	UseKGExpansion bool

	// DBPath overrides the local cache database location. Empty selects
	// the platform default under the user data directory.
	DBPath string

	// LogLevel is one of "debug", "info", "warn", "error". Default: "warn".
	LogLevel string

	// LogFile receives structured logs. Empty disables logging; the
	// terminal UI owns stdout, so logs never go there.
	LogFile string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000",
		StudentID:      "default",
		Subject:        "biology",
		Timeout:        30 * time.Second,
		TopK:           5,
		UseKGExpansion: true,
		LogLevel:       "warn",
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or unparsable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("STUDIZ_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("STUDIZ_STUDENT_ID"); v != "" {
		cfg.StudentID = v
	}
	if v := os.Getenv("STUDIZ_SUBJECT"); v != "" {
		cfg.Subject = v
	}
	if v := os.Getenv("STUDIZ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("STUDIZ_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TopK = n
		}
	}
	if v := os.Getenv("STUDIZ_KG_EXPANSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseKGExpansion = b
		}
	}
	if v := os.Getenv("STUDIZ_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("STUDIZ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STUDIZ_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}

// Validate checks the configuration for values the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("STUDIZ_BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.StudentID == "" {
		return fmt.Errorf("STUDIZ_STUDENT_ID must not be empty")
	}
	if c.Subject == "" {
		return fmt.Errorf("STUDIZ_SUBJECT must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("STUDIZ_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.TopK < 1 {
		return fmt.Errorf("STUDIZ_TOP_K must be at least 1, got %d", c.TopK)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	return nil
}
