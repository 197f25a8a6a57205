package constants

import (
	"os"
	"path/filepath"
)

const (
	// Environment variables
	EnvAPIKey    = "THREADRUN_API_KEY"
	EnvAPIKeyAlt = "THREADRUN_KEY"
	EnvBaseURL   = "THREADRUN_BASE_URL"
	EnvCacheDir  = "THREADRUN_CACHE_DIR"
	EnvTimeout   = "THREADRUN_TIMEOUT"

	// Default values
	DefaultBaseURL   = "https://api.threadrun.ai"
	DefaultAPIPrefix = "/api/v1"

	// DefaultTimeoutSeconds bounds ordinary request/response calls.
	DefaultTimeoutSeconds = 60
	// DefaultRunTimeoutSeconds bounds a full streamed agent run.
	DefaultRunTimeoutSeconds = 600

	DefaultEnvironmentName = "default"

	HistoryDatabaseFileName = "threadrun_history.db"
	ConfigFileName          = "config.yaml"

	Version = "0.1.0"
)

// GetCacheDirectory returns the local cache directory path.
func GetCacheDirectory() string {
	if envPath := os.Getenv(EnvCacheDir); envPath != "" {
		return envPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".threadrun"
	}

	return filepath.Join(homeDir, ".threadrun")
}

// GetHistoryDatabasePath returns the full path to the run history database.
func GetHistoryDatabasePath() string {
	return filepath.Join(GetCacheDirectory(), HistoryDatabaseFileName)
}

// GetConfigFilePath returns the full path to the CLI config file.
func GetConfigFilePath() string {
	return filepath.Join(GetCacheDirectory(), ConfigFileName)
}
