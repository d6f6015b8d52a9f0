// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Report.Cron != "30 23 * * 6" {
		t.Errorf("default cron = %q, want Saturday 23:30", cfg.Report.Cron)
	}
	if !cfg.Report.ComputeOnStartup {
		t.Error("compute_on_startup should default to true")
	}
	if !cfg.IsProduction() {
		t.Error("environment should default to production")
	}
	if cfg.Security.RateLimitWindow != 10*time.Second {
		t.Errorf("rate limit window = %v, want 10s", cfg.Security.RateLimitWindow)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 10000
  environment: test
  timezone: UTC
security:
  admins:
    - username: admin
      password: hunter22
report:
  cron: "0 4 * * 1"
  compute_on_startup: false
logging:
  level: debug
  format: console
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 10000 {
		t.Errorf("port = %d, want 10000", cfg.Server.Port)
	}
	if cfg.IsProduction() {
		t.Error("environment test should not be production")
	}
	if len(cfg.Security.Admins) != 1 || cfg.Security.Admins[0].Username != "admin" {
		t.Errorf("admins = %+v", cfg.Security.Admins)
	}
	if cfg.Report.Cron != "0 4 * * 1" {
		t.Errorf("cron = %q", cfg.Report.Cron)
	}
	if cfg.Report.ComputeOnStartup {
		t.Error("compute_on_startup should be false")
	}
	// Host untouched by the file keeps its default.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", cfg.Server.Host)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc != time.UTC {
		t.Errorf("location = %v, want UTC", loc)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 10000\n")

	t.Setenv("HTTP_PORT", "20000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Port != 20000 {
		t.Errorf("port = %d, env should win over file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("log level = %q, want error", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"bad environment", "server:\n  environment: staging\n"},
		{"bad timezone", "server:\n  timezone: Mars/Olympus\n"},
		{"admin without password", "security:\n  admins:\n    - username: admin\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			if _, err := LoadFile(path); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestEnvTransformIgnoresUnknownVars(t *testing.T) {
	if got := envTransform("PATH"); got != "" {
		t.Errorf("PATH should be ignored, got %q", got)
	}
	if got := envTransform("http_port"); got != "server.port" {
		t.Errorf("mapping should be case-insensitive, got %q", got)
	}
}

func TestManagerReloadSwapsSnapshot(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 10000\n")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	first := mgr.Current()
	if first.Server.Port != 10000 {
		t.Fatalf("initial port = %d", first.Server.Port)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 10001\n"), 0o600); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := mgr.Current().Server.Port; got != 10001 {
		t.Errorf("port after reload = %d, want 10001", got)
	}
}

func TestManagerReloadKeepsSnapshotOnInvalidFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 10000\n")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o600); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := mgr.Reload(); err == nil {
		t.Fatal("Reload should fail on invalid config")
	}
	if got := mgr.Current().Server.Port; got != 10000 {
		t.Errorf("port after failed reload = %d, want previous 10000", got)
	}
}
