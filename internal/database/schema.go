// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// schema.go - event store schema management.
//
// Tables:
//   - pings: the append-only heartbeat log (one row per user per day)
//   - reports: one row per computed weekly report
//   - report_stats: (beakerVersion, os) buckets per report, ordered by seq
//   - report_cohorts: retention cohorts per report
//
// report_stats and report_cohorts reference their owning report by id and
// are deleted and fully regenerated with it on every recomputation.
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// createTables creates the store tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS pings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TIMESTAMP NOT NULL,
			is_first_ping BOOLEAN NOT NULL,
			beaker_version TEXT NOT NULL DEFAULT '',
			os TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pings_user_date ON pings(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_pings_date ON pings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_pings_first ON pings(is_first_ping, date)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			compute_date TIMESTAMP NOT NULL,
			active_user_count INTEGER NOT NULL,
			total_user_count INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS report_stats (
			report_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			beaker_version TEXT NOT NULL,
			os TEXT NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_stats_report ON report_stats(report_id)`,

		`CREATE TABLE IF NOT EXISTS report_cohorts (
			report_id TEXT NOT NULL,
			start_week TEXT NOT NULL,
			total_count INTEGER NOT NULL,
			still_active_count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_cohorts_report ON report_cohorts(report_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
