// Package config provides environment-driven configuration for the similarity
// service and the YAML workflow file of the mapping pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds the similarity service configuration.
type Config struct {
	// DatabaseURL is optional. When set, exported records can be looked up.
	DatabaseURL  Secret
	DBMaxConns   int32
	Port         string
	ListenHost   string
	CORSOrigins  []string
	LogLevel     string
	LogFormat    string
	MaxBodyBytes int64
	PathWorkers  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "8090"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "8"))
	if err != nil || maxConns < 2 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 2 and 200")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // bounded above

	maxBody, err := strconv.ParseInt(envOrDefault("MAX_BODY_BYTES", "67108864"), 10, 64)
	if err != nil || maxBody < 1024 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be an integer of at least 1024")
	}
	cfg.MaxBodyBytes = maxBody

	workers, err := strconv.Atoi(envOrDefault("PATH_WORKERS", "4"))
	if err != nil || workers < 1 || workers > 64 {
		return nil, fmt.Errorf("PATH_WORKERS must be an integer between 1 and 64")
	}
	cfg.PathWorkers = workers

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
