// Package config reads process-wide settings from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"docskew/internal/logger"

	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel        zerolog.Level
	JSONLogs        bool
	Workers         int
	Threads         int
	Addr            string
	ShutdownTimeout time.Duration
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the shape of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		LogLevel:        zerolog.InfoLevel,
		Workers:         runtime.NumCPU(),
		Threads:         1,
		Addr:            ":8080",
		ShutdownTimeout: 30 * time.Second,
	}

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = logger.ParseLevel(v)
	} else if get("DEBUG") == "1" {
		cfg.LogLevel = zerolog.DebugLevel
	}

	if v := get("DOCSKEW_JSON_LOGS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DOCSKEW_JSON_LOGS: %w", err)
		}
		cfg.JSONLogs = b
	}

	if v := get("DOCSKEW_WORKERS"); v != "" {
		n, err := positiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("DOCSKEW_WORKERS: %w", err)
		}
		cfg.Workers = n
	}

	if v := get("DOCSKEW_THREADS"); v != "" {
		n, err := positiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("DOCSKEW_THREADS: %w", err)
		}
		cfg.Threads = n
	}

	if v := get("DOCSKEW_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := get("DOCSKEW_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("DOCSKEW_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}

// Logger builds the logger selected by the configuration.
func (c Config) Logger() logger.Logger {
	if c.JSONLogs {
		return logger.NewZerolog(os.Stderr, c.LogLevel)
	}
	return logger.NewConsoleLogger(c.LogLevel)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}
