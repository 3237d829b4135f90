package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvPort      = "ENTITYD_PORT"
	EnvScope     = "ENTITYD_SCOPE"
	EnvBasePath  = "ENTITYD_BASE_PATH"
	EnvLogLevel  = "ENTITYD_LOG_LEVEL"
	EnvLogFormat = "ENTITYD_LOG_FORMAT"
	EnvConfig    = "ENTITYD_CONFIG"
	EnvURL       = "ENTITYD_URL"
)

// ApplyEnv overrides configuration values with ENTITYD_* environment
// variables that are set, then revalidates the result.
func ApplyEnv(cfg *Config) error {
	// ENTITYD_PORT
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}

	// ENTITYD_SCOPE
	if v := os.Getenv(EnvScope); v != "" {
		cfg.Store.Scope = v
	}

	// ENTITYD_BASE_PATH
	if v, ok := os.LookupEnv(EnvBasePath); ok {
		cfg.Server.BasePath = v
	}

	// ENTITYD_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	// ENTITYD_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}

	return cfg.Validate()
}

// ConfigPathFromEnv returns the config file named by ENTITYD_CONFIG, if any.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}
