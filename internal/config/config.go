// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error sentinels.
package config

import (
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"loglevel"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr" validate:"required"`

	// ClassifierBackend selects "logistic" or "remote".
	ClassifierBackend string `koanf:"classifier_backend" validate:"oneof=logistic remote"`

	// ModelPath points at the logistic artifact.
	ModelPath string `koanf:"model_path" validate:"required_if=ClassifierBackend logistic"`

	// RemoteURL is the model sidecar base URL.
	RemoteURL        string `koanf:"remote_url" validate:"required_if=ClassifierBackend remote"`
	RemoteTimeoutMS  int    `koanf:"remote_timeout_ms" validate:"gte=1"`
	RemoteMaxRetries int    `koanf:"remote_max_retries" validate:"gte=0,lte=10"`
	RemoteRateLimit  int    `koanf:"remote_rate_limit" validate:"gte=0"`

	// CacheTTLSeconds is the prediction cache TTL; 0 disables caching.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" validate:"gte=0"`

	// JournalPath is the bbolt file; empty keeps the journal in memory.
	JournalPath     string `koanf:"journal_path"`
	JournalSize     int    `koanf:"journal_size" validate:"gte=1"`
	MaxJournalLimit int    `koanf:"max_journal_limit" validate:"gte=1"`

	// RateLimitRPS limits POST /predict per process; 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=1"`

	// CORSAllowedOrigins is a comma separated origin list, "*" for any.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8000",
		ClassifierBackend:  "logistic",
		ModelPath:          "models/ipl_logistic.yaml",
		RemoteTimeoutMS:    2000,
		RemoteMaxRetries:   2,
		RemoteRateLimit:    50,
		CacheTTLSeconds:    30,
		JournalSize:        1000,
		MaxJournalLimit:    100,
		RateLimitBurst:     20,
		CORSAllowedOrigins: "*",
	}
}

// RemoteTimeout returns the per-attempt sidecar timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// CacheTTL returns the prediction cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// AllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
