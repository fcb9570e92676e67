package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// DBPath is the SQLite database location; ":memory:" is accepted for
	// throwaway runs.
	DBPath string

	// PageSize is the default search page size.
	PageSize int
}

// Load builds the configuration from defaults, an optional .env file in
// the working directory, and the process environment (highest priority).
func Load() (*Config, error) {
	// A missing .env file is not an error; it is simply skipped.
	_ = godotenv.Load()

	cfg := &Config{PageSize: DefaultPageSize}

	if path := os.Getenv("CASETREE_DB"); path != "" {
		cfg.DBPath = path
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, DefaultDBDir, DefaultDBFile)
	}

	if raw := os.Getenv("CASETREE_PAGE_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("CASETREE_PAGE_SIZE must be a positive integer, got %q", raw)
		}
		cfg.PageSize = size
	}

	return cfg, nil
}
