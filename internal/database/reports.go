// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beakerbrowser/bas/internal/models"
)

// DeleteReport removes the report artifact (report row, stats, cohorts)
// for the given id. Part of the reset-then-repopulate sequence; always
// invoked inside the same transaction as the reinsert.
func (t *Tx) DeleteReport(ctx context.Context, id string) error {
	statements := []string{
		`DELETE FROM reports WHERE id = ?`,
		`DELETE FROM report_stats WHERE report_id = ?`,
		`DELETE FROM report_cohorts WHERE report_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := t.tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete report %s: %w", id, err)
		}
	}
	return nil
}

// InsertReport writes one report row.
func (t *Tx) InsertReport(ctx context.Context, r *models.Report) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO reports (id, compute_date, active_user_count, total_user_count)
		 VALUES (?, ?, ?, ?)`,
		r.ID, r.ComputeDate, r.ActiveUserCount, r.TotalUserCount)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// InsertReportStats writes the stat buckets for a report. The slice order
// is persisted via seq and reproduced by GetReport.
func (t *Tx) InsertReportStats(ctx context.Context, reportID string, stats []models.ReportStat) error {
	for i, s := range stats {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO report_stats (report_id, seq, beaker_version, os, count)
			 VALUES (?, ?, ?, ?, ?)`,
			reportID, i, s.Beaker, s.OS, s.Count)
		if err != nil {
			return fmt.Errorf("failed to insert report stat: %w", err)
		}
	}
	return nil
}

// InsertReportCohorts writes the retention cohorts for a report.
func (t *Tx) InsertReportCohorts(ctx context.Context, reportID string, cohorts []models.ReportCohort) error {
	for _, c := range cohorts {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO report_cohorts (report_id, start_week, total_count, still_active_count)
			 VALUES (?, ?, ?, ?)`,
			reportID, c.StartWeek, c.TotalCount, c.StillActiveCount)
		if err != nil {
			return fmt.Errorf("failed to insert report cohort: %w", err)
		}
	}
	return nil
}

// ListReports returns the id and compute date of every stored report,
// newest week first. Ordering by id keeps the listing stable when an old
// week is recomputed after a newer one; the zero-padded week ids sort
// chronologically.
func (db *DB) ListReports(ctx context.Context) ([]models.ReportSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, compute_date FROM reports ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	summaries := []models.ReportSummary{}
	for rows.Next() {
		var s models.ReportSummary
		if err := rows.Scan(&s.ID, &s.ComputeDate); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return summaries, nil
}

// GetReport loads one report with its stats (insertion order) and cohorts
// (start week ascending). All three reads run inside one transaction so a
// recompute committing mid-read cannot yield a response mixing rows from
// two report generations. Returns ErrReportNotFound for unknown ids.
func (db *DB) GetReport(ctx context.Context, id string) (*models.FullReport, error) {
	report := &models.FullReport{ID: id, Stats: []models.ReportStat{}, Cohorts: []models.ReportCohort{}}
	err := db.WithTx(ctx, func(t *Tx) error {
		err := t.tx.QueryRowContext(ctx,
			`SELECT compute_date, active_user_count, total_user_count FROM reports WHERE id = ?`, id).
			Scan(&report.ComputeDate, &report.ActiveUserCount, &report.TotalUserCount)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load report %s: %w", id, err)
		}

		stats, err := t.tx.QueryContext(ctx,
			`SELECT beaker_version, os, count FROM report_stats WHERE report_id = ? ORDER BY seq`, id)
		if err != nil {
			return fmt.Errorf("failed to load report stats: %w", err)
		}
		defer stats.Close()
		for stats.Next() {
			var s models.ReportStat
			if err := stats.Scan(&s.Beaker, &s.OS, &s.Count); err != nil {
				return fmt.Errorf("failed to scan report stat: %w", err)
			}
			report.Stats = append(report.Stats, s)
		}
		if err := stats.Err(); err != nil {
			return fmt.Errorf("failed to iterate report stats: %w", err)
		}

		cohorts, err := t.tx.QueryContext(ctx,
			`SELECT start_week, total_count, still_active_count
			 FROM report_cohorts WHERE report_id = ? ORDER BY start_week`, id)
		if err != nil {
			return fmt.Errorf("failed to load report cohorts: %w", err)
		}
		defer cohorts.Close()
		for cohorts.Next() {
			var c models.ReportCohort
			if err := cohorts.Scan(&c.StartWeek, &c.TotalCount, &c.StillActiveCount); err != nil {
				return fmt.Errorf("failed to scan report cohort: %w", err)
			}
			report.Cohorts = append(report.Cohorts, c)
		}
		if err := cohorts.Err(); err != nil {
			return fmt.Errorf("failed to iterate report cohorts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
