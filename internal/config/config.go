// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
// The target service address is fixed and deliberately absent here.
type Config struct {
	InputPath string
	HistoryDB string
	LogLevel  slog.Level
}

// HasHistory returns true when an import history database has been configured.
func (c *Config) HasHistory() bool {
	return c.HistoryDB != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: POSTIMPORT_INPUT_PATH (posts.csv),
// POSTIMPORT_HISTORY_DB (unset, history disabled), POSTIMPORT_LOG_LEVEL (info).
func Load() (*Config, error) {
	inputPath := "posts.csv"
	if v, ok := os.LookupEnv("POSTIMPORT_INPUT_PATH"); ok && v != "" {
		inputPath = v
	}

	historyDB := strings.TrimSpace(os.Getenv("POSTIMPORT_HISTORY_DB"))

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("POSTIMPORT_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("POSTIMPORT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		InputPath: inputPath,
		HistoryDB: historyDB,
		LogLevel:  logLevel,
	}, nil
}
