// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/beakerbrowser/bas/internal/database"
	"github.com/beakerbrowser/bas/internal/logging"
	"github.com/beakerbrowser/bas/internal/metrics"
	"github.com/beakerbrowser/bas/internal/models"
)

// Reporter computes weekly retention reports. A report describes the week
// containing its target date: who was active, on which Beaker version and
// OS, and how each historical first-ping cohort has retained into that
// week.
type Reporter struct {
	db  *database.DB
	loc *time.Location
	now func() time.Time

	// Serializes computations. Recomputing the same week concurrently
	// would interleave its delete and insert phases.
	mu sync.Mutex
}

// NewReporter builds a Reporter evaluating calendar weeks in loc.
func NewReporter(db *database.DB, loc *time.Location) *Reporter {
	return &Reporter{db: db, loc: loc, now: time.Now}
}

// Compute builds (or rebuilds) the report for the week containing target
// and returns its ID. The computation is idempotent: recomputing a week
// over an unchanged ping log reproduces the same report apart from its
// compute date. All reads and writes happen in one transaction, so readers
// never observe a half-built report.
func (r *Reporter) Compute(ctx context.Context, target time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thisWeek := WeekStart(target, r.loc)
	reportID := WeekID(target, r.loc)
	started := r.now()

	logging.Info().Str("report_id", reportID).Time("week_start", thisWeek).Msg("Computing weekly report")

	var report models.Report
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := tx.DeleteReport(ctx, reportID); err != nil {
			return err
		}

		active, err := tx.ActiveUsersSince(ctx, thisWeek)
		if err != nil {
			return err
		}
		activeSet := make(map[string]struct{}, len(active))
		for _, u := range active {
			activeSet[u.UserID] = struct{}{}
		}

		totalUsers, err := tx.DistinctUserCount(ctx)
		if err != nil {
			return err
		}

		cohorts, err := r.buildCohorts(ctx, tx, thisWeek, activeSet)
		if err != nil {
			return err
		}

		report = models.Report{
			ID:              reportID,
			ComputeDate:     r.now(),
			ActiveUserCount: len(active),
			TotalUserCount:  totalUsers,
		}
		if err := tx.InsertReport(ctx, &report); err != nil {
			return err
		}
		if err := tx.InsertReportStats(ctx, reportID, buildStats(active)); err != nil {
			return err
		}
		return tx.InsertReportCohorts(ctx, reportID, cohorts)
	})
	if err != nil {
		return "", fmt.Errorf("compute report %s: %w", reportID, err)
	}

	metrics.ReportsComputedTotal.Inc()
	metrics.ReportComputeDuration.Observe(time.Since(started).Seconds())
	logging.Info().
		Str("report_id", reportID).
		Int("active_users", report.ActiveUserCount).
		Int("total_users", report.TotalUserCount).
		Dur("elapsed", time.Since(started)).
		Msg("Computed weekly report")
	return reportID, nil
}

// buildCohorts walks every week from the earliest recorded ping up to (and
// excluding) the report's week, measuring how many users first appeared in
// that week and how many of them are active in the report's week. Weeks
// with no first pings still get a zero row, so the series has no gaps.
func (r *Reporter) buildCohorts(ctx context.Context, tx *database.Tx, thisWeek time.Time, activeSet map[string]struct{}) ([]models.ReportCohort, error) {
	earliest, ok, err := tx.EarliestPingDate(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var cohorts []models.ReportCohort
	for w := WeekStart(earliest, r.loc); w.Before(thisWeek); w = w.AddDate(0, 0, 7) {
		users, err := tx.FirstPingUsers(ctx, w, w.AddDate(0, 0, 7))
		if err != nil {
			return nil, err
		}
		still := 0
		for _, u := range users {
			if _, active := activeSet[u]; active {
				still++
			}
		}
		cohorts = append(cohorts, models.ReportCohort{
			StartWeek:        WeekID(w, r.loc),
			TotalCount:       len(users),
			StillActiveCount: still,
		})
	}
	return cohorts, nil
}

// buildStats buckets the week's active users by (beaker_version, os) and
// orders the buckets biggest first, ties broken by version then OS so the
// output is stable across recomputations.
func buildStats(active []database.ActiveUser) []models.ReportStat {
	type bucket struct {
		beaker string
		os     string
	}
	counts := make(map[bucket]int)
	for _, u := range active {
		counts[bucket{u.BeakerVersion, u.OS}]++
	}

	stats := make([]models.ReportStat, 0, len(counts))
	for b, n := range counts {
		stats = append(stats, models.ReportStat{Beaker: b.beaker, OS: b.os, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		if stats[i].Beaker != stats[j].Beaker {
			return stats[i].Beaker < stats[j].Beaker
		}
		return stats[i].OS < stats[j].OS
	})
	return stats
}
