// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package config

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/knadh/koanf/providers/file"

	"github.com/beakerbrowser/bas/internal/logging"
)

// Manager owns the current configuration snapshot and supports hot reload.
//
// Snapshots are immutable: a reload parses and validates the file fully,
// then swaps the pointer atomically. Readers always observe either the old
// or the new snapshot, never a partially-applied one. An invalid file keeps
// the previous snapshot in place.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
}

// NewManager loads the config at path (or the default search paths when
// path is empty) and returns a manager holding it as the first snapshot.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		path = findConfigFile()
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.current.Store(cfg)
	return m, nil
}

// Current returns the active configuration snapshot.
func (m *Manager) Current() *Config {
	return m.current.Load()
}

// Path returns the config file path backing this manager ("" when running
// on defaults and environment only).
func (m *Manager) Path() string {
	return m.path
}

// Reload re-reads the config file, validates it, and swaps the snapshot.
// On failure the previous snapshot stays active and the error is returned.
func (m *Manager) Reload() error {
	cfg, err := LoadFile(m.path)
	if err != nil {
		return fmt.Errorf("config reload rejected: %w", err)
	}
	m.current.Store(cfg)
	logging.Info().Str("path", m.path).Msg("Configuration reloaded")
	return nil
}

// Watch blocks until ctx is done, reloading the snapshot whenever the
// config file changes on disk. Failed reloads are logged and the previous
// snapshot is kept. Watch returns immediately when no file backs the
// manager.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	fp := file.Provider(m.path)
	err := fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			logging.Error().Err(err).Str("path", m.path).Msg("Config watch error")
			return
		}
		if err := m.Reload(); err != nil {
			logging.Error().Err(err).Str("path", m.path).Msg("Keeping previous configuration")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", m.path, err)
	}
	defer func() {
		if err := fp.Unwatch(); err != nil {
			logging.Warn().Err(err).Msg("Failed to stop config watcher")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}
