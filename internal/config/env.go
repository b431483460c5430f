package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvProxyURL = "AMCQ_PROXY_URL"
	EnvLogLevel = "AMCQ_LOG_LEVEL"
	EnvDBPath   = "AMCQ_DB_PATH"
	EnvAttempts = "AMCQ_MAX_ATTEMPTS"
)

// LoadDotEnv loads variables from a .env file when present. Variables already
// set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg FileConfig) FileConfig {
	if v := strings.TrimSpace(os.Getenv(EnvProxyURL)); v != "" {
		cfg.Proxy.BaseURL = &v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = &v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAttempts)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Proxy.MaxAttempts = &n
		}
	}
	return cfg
}

// DBPath returns the database path, honoring the environment override.
func DBPath() string {
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		return v
	}
	return DefaultDBPath()
}
