// Package config loads server configuration from environment variables.
//
// Required variables:
//   - CONFIG_PATH: path to the flags/variants configuration file
//     (JSON or YAML).
//
// Optional variables:
//   - HTTP_ADDR: listen address for the HTTP server (default ":8080").
//   - LOG_LEVEL: minimum log level ("debug", "info", "warn", "error";
//     default "info").
//   - WATCH_CONFIG: "true" to hot-reload the configuration file on change
//     (default "false").
//   - MAX_JSON_BODY_SIZE: max HTTP JSON request body size in bytes
//     (default "1048576", must be > 0 if set).
//   - SHUTDOWN_TIMEOUT: graceful shutdown deadline
//     (default "10s", must be > 0 if set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr              = ":8080"
	defaultMaxJSONBodySize int64 = 1 << 20 // 1MB
	defaultShutdownTimeout       = 10 * time.Second
)

// Config holds the runtime configuration for the variantz server.
type Config struct {
	ConfigPath      string
	HTTPAddr        string
	LogLevel        string
	WatchConfig     bool
	MaxJSONBodySize int64
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where appropriate. It returns an error if required variables are missing
// or if optional values fail validation.
func Load() (Config, error) {
	configPath := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if configPath == "" {
		return Config{}, errors.New("CONFIG_PATH is required")
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	watchConfig := false
	if value := strings.TrimSpace(os.Getenv("WATCH_CONFIG")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse WATCH_CONFIG: %w", err)
		}
		watchConfig = parsed
	}

	maxJSONBodySize := defaultMaxJSONBodySize
	if value := strings.TrimSpace(os.Getenv("MAX_JSON_BODY_SIZE")); value != "" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 1 {
			return Config{}, errors.New("MAX_JSON_BODY_SIZE must be a positive integer (bytes)")
		}
		maxJSONBodySize = n
	}

	shutdownTimeout := defaultShutdownTimeout
	if value := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("SHUTDOWN_TIMEOUT must be > 0")
		}
		shutdownTimeout = parsed
	}

	return Config{
		ConfigPath:      configPath,
		HTTPAddr:        httpAddr,
		LogLevel:        strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		WatchConfig:     watchConfig,
		MaxJSONBodySize: maxJSONBodySize,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}
