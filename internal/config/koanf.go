// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "BAS_CONFIG"

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins. The home-directory entry mirrors the
// historical ~/.bas.yml location.
func DefaultConfigPaths() []string {
	paths := []string{
		"config.yaml",
		"config.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".bas.yml"))
	}
	paths = append(paths, "/etc/bas/config.yaml", "/etc/bas/config.yml")
	return paths
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: EnvProduction,
			Timezone:    "",
		},
		Database: DatabaseConfig{
			Path:      "/data/bas.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Security: SecurityConfig{
			Admins:            nil,
			RateLimitReqs:     100,
			RateLimitWindow:   10 * time.Second,
			RateLimitDisabled: false,
		},
		Report: ReportConfig{
			Cron:             "30 23 * * 6", // Saturday 23:30
			ComputeOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration from the default search paths.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile loads configuration with layered sources:
//  1. Built-in defaults
//  2. YAML config file at path (skipped when path is empty)
//  3. Environment variables (highest priority)
//
// The result is validated before being returned.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// A single admin may be supplied via environment variables; it is
	// appended to any file-configured admins.
	if u, p := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"); u != "" && p != "" {
		cfg.Security.Admins = append(cfg.Security.Admins, Admin{Username: u, Password: p})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first config file present, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names to koanf config paths.
// Only listed variables are honored; everything else in the environment is
// ignored so unrelated vars cannot perturb the config.
var envMappings = map[string]string{
	"HTTP_HOST":           "server.host",
	"HTTP_PORT":           "server.port",
	"HTTP_TIMEOUT":        "server.timeout",
	"ENVIRONMENT":         "server.environment",
	"TIMEZONE":            "server.timezone",
	"DUCKDB_PATH":         "database.path",
	"DUCKDB_MAX_MEMORY":   "database.max_memory",
	"DUCKDB_THREADS":      "database.threads",
	"RATE_LIMIT_REQS":     "security.rate_limit_reqs",
	"RATE_LIMIT_WINDOW":   "security.rate_limit_window",
	"RATE_LIMIT_DISABLED": "security.rate_limit_disabled",
	"REPORT_CRON":         "report.cron",
	"REPORT_ON_STARTUP":   "report.compute_on_startup",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
	"LOG_CALLER":          "logging.caller",
}

// envTransform maps environment variable names to koanf paths.
// Unknown variables are dropped by returning "".
func envTransform(key string) string {
	if path, ok := envMappings[strings.ToUpper(key)]; ok {
		return path
	}
	return ""
}
