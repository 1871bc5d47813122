/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Episode list caps applied when a playlist view is materialized.
// Searches bypass them; see the playlist package.
const (
	DefaultSmartEpisodeLimit  = 500
	DefaultManualEpisodeLimit = 100
	DefaultAutoDownloadLimit  = 10
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Playlist engine limits
	SmartEpisodeLimit  int
	ManualEpisodeLimit int

	// Folder support depends on the subscription entitlement of the
	// account this instance serves; there is no entitlement service in
	// the engine, so the flag is configured per deployment.
	FoldersEnabled bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("SKALD_DB_DSN", ""),
		MetricsBind: getEnv("SKALD_METRICS_BIND", "127.0.0.1:9000"),

		SmartEpisodeLimit:  getEnvInt("SKALD_SMART_EPISODE_LIMIT", DefaultSmartEpisodeLimit),
		ManualEpisodeLimit: getEnvInt("SKALD_MANUAL_EPISODE_LIMIT", DefaultManualEpisodeLimit),
		FoldersEnabled:     getEnvBool("SKALD_FOLDERS_ENABLED", true),

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 1.0),

		RedisAddr:     getEnv("SKALD_REDIS_ADDR", ""),
		RedisPassword: getEnv("SKALD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SKALD_REDIS_DB", 0),
		InstanceID:    getEnv("SKALD_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SKALD_DB_DSN must be provided")
	}

	if cfg.SmartEpisodeLimit <= 0 || cfg.ManualEpisodeLimit <= 0 {
		return nil, fmt.Errorf("episode limits must be positive")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use SKALD_ENV",
		"DB_DSN":          "use SKALD_DB_DSN",
		"TRACING_ENABLED": "use SKALD_TRACING_ENABLED",
		"OTLP_ENDPOINT":   "use SKALD_OTLP_ENDPOINT",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
