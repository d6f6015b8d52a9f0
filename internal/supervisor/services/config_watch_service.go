// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package services

import (
	"context"

	"github.com/beakerbrowser/bas/internal/config"
)

// ConfigWatchService hot-reloads the config file while the process runs.
// Admin credential changes apply to the next request; server and database
// settings still need a restart.
type ConfigWatchService struct {
	manager *config.Manager
}

// NewConfigWatchService wraps the config manager's watcher.
func NewConfigWatchService(manager *config.Manager) *ConfigWatchService {
	return &ConfigWatchService{manager: manager}
}

// Serve implements suture.Service; it blocks watching the config file
// until ctx is done.
func (c *ConfigWatchService) Serve(ctx context.Context) error {
	return c.manager.Watch(ctx)
}

func (c *ConfigWatchService) String() string {
	return "config-watcher"
}
