// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package config provides configuration management for BAS.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, YAML config file, built-in
// defaults. Loaded snapshots are immutable; hot reload swaps a new
// snapshot atomically (see Manager).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment values recognized in ServerConfig.Environment.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Report   ReportConfig   `koanf:"report"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host" validate:"required"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=1s"`
	Environment string        `koanf:"environment" validate:"oneof=development test production"`

	// Timezone is the IANA location used for day and week boundaries.
	// Empty means the system's local time zone.
	Timezone string `koanf:"timezone"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"`
}

// Admin is one set of credentials accepted by HTTP Basic Auth.
// Password may be plaintext or a pre-computed bcrypt hash.
type Admin struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

// SecurityConfig holds admin credentials and rate-limit settings.
type SecurityConfig struct {
	Admins []Admin `koanf:"admins" validate:"dive"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// ReportConfig controls the weekly report computation schedule.
type ReportConfig struct {
	// Cron is a standard 5-field cron expression evaluated in the
	// server's time zone. Default: Saturday 23:30.
	Cron string `koanf:"cron" validate:"required"`

	// ComputeOnStartup triggers one report computation as the process
	// becomes ready.
	ComputeOnStartup bool `koanf:"compute_on_startup"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
// Rate limiting and the ingestion date-override gate key off this.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// Location resolves the configured time zone. Empty config means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// Validate checks the configuration for consistency. It is called by Load
// and again on every hot reload; an invalid snapshot is never published.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
