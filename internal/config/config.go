// Package config provides configuration for the review engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the engine configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	InternalPort int

	// Database
	DatabaseURL string

	// Collaborators
	AnalysisURL     string
	AnalysisAPIKey  string
	AnalysisBackend string // "remote" or "simulated"; simulated must be explicit
	DocStoreURL     string
	PlaybookURL     string
	PlaybookDir     string

	// Timeouts
	AnalysisTimeout time.Duration
	ReplayTimeout   time.Duration

	// Cost regression threshold as a fraction (0.05 = 5%)
	CostRegressionPct float64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		InternalPort:      getEnvInt("INTERNAL_PORT", 8081),
		DatabaseURL:       getEnv("DATABASE_URL", "file:reviewd.db?cache=shared&mode=rwc"),
		AnalysisURL:       getEnv("ANALYSIS_URL", "http://localhost:8100"),
		AnalysisAPIKey:    getEnv("ANALYSIS_API_KEY", ""),
		AnalysisBackend:   getEnv("ANALYSIS_BACKEND", "remote"),
		DocStoreURL:       getEnv("DOCSTORE_URL", "http://localhost:8110"),
		PlaybookURL:       getEnv("PLAYBOOK_URL", ""),
		PlaybookDir:       getEnv("PLAYBOOK_DIR", "playbooks"),
		AnalysisTimeout:   time.Duration(getEnvInt("ANALYSIS_TIMEOUT_MS", 300000)) * time.Millisecond,
		ReplayTimeout:     time.Duration(getEnvInt("REPLAY_TIMEOUT_MS", 300000)) * time.Millisecond,
		CostRegressionPct: getEnvFloat("COST_REGRESSION_PCT", 0.05),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
