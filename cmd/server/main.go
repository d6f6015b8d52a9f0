// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package main is the entry point for the Beaker Analytics Server (BAS).
//
// BAS collects anonymous daily heartbeat pings from Beaker Browser
// installations and turns them into weekly retention reports: active
// users, version/OS breakdowns, and first-ping cohorts tracked week over
// week.
//
// # Application Architecture
//
// The server initializes components in this order:
//
//  1. Configuration: layered load from defaults, YAML file, and
//     environment variables (Koanf v2), hot-reloaded while running
//  2. Logging: zerolog, JSON or console format
//  3. Database: embedded DuckDB with the ping log and report tables
//  4. Analytics: the ping ingestor and the weekly report computer
//  5. Supervisor tree: HTTP server, cron scheduler, config watcher
//
// # Configuration
//
// The config file is searched at ./config.yaml, ~/.bas.yml, and
// /etc/bas/config.yaml, overridable with BAS_CONFIG. Common environment
// overrides: HTTP_PORT, DUCKDB_PATH, LOG_LEVEL, ENVIRONMENT, REPORT_CRON,
// ADMIN_USERNAME, ADMIN_PASSWORD.
//
// # Report Schedule
//
// Reports are recomputed on a cron schedule (default: Saturday 23:30 in
// the configured time zone) and once at startup when
// report.compute_on_startup is set. Recomputing a week replaces its
// stored report atomically.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the listener stops
// accepting connections, in-flight requests get 10 seconds to finish, and
// the database is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beakerbrowser/bas/internal/analytics"
	"github.com/beakerbrowser/bas/internal/api"
	"github.com/beakerbrowser/bas/internal/config"
	"github.com/beakerbrowser/bas/internal/database"
	"github.com/beakerbrowser/bas/internal/logging"
	"github.com/beakerbrowser/bas/internal/scheduler"
	"github.com/beakerbrowser/bas/internal/supervisor"
	"github.com/beakerbrowser/bas/internal/supervisor/services"
)

func main() {
	cfgManager, err := config.NewManager(os.Getenv(config.ConfigPathEnvVar))
	if err != nil {
		// Config errors surface through the default logger; the
		// configured one is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg := cfgManager.Current()

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("config_path", cfgManager.Path()).
		Msg("Starting BAS")

	loc, err := cfg.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to resolve time zone")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ingestor := analytics.NewIngestor(db, loc, cfg.IsProduction())
	reporter := analytics.NewReporter(db, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Report.ComputeOnStartup {
		if id, err := reporter.Compute(ctx, time.Now()); err != nil {
			logging.Error().Err(err).Msg("Startup report computation failed")
		} else {
			logging.Info().Str("report_id", id).Msg("Startup report computed")
		}
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(cfgManager, db, ingestor, reporter).Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	reportJob, err := scheduler.NewJob("weekly-report", cfg.Report.Cron, loc, func(ctx context.Context) error {
		_, err := reporter.Compute(ctx, time.Now())
		return err
	})
	if err != nil {
		logging.Fatal().Err(err).Str("cron", cfg.Report.Cron).Msg("Invalid report schedule")
	}
	tree.AddJobService(reportJob)
	logging.Info().Str("cron", cfg.Report.Cron).Str("timezone", loc.String()).Msg("Report scheduler added")

	if cfgManager.Path() != "" {
		tree.AddJobService(services.NewConfigWatchService(cfgManager))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Stopped")
}
