// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beakerbrowser/bas/internal/config"
	"github.com/beakerbrowser/bas/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func insertPing(t *testing.T, db *DB, p models.Ping) {
	t.Helper()
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertPing(context.Background(), &p)
	})
	if err != nil {
		t.Fatalf("InsertPing(%s) failed: %v", p.ID, err)
	}
}

func TestHealth(t *testing.T) {
	db := newTestDB(t)
	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertPing(ctx, &models.Ping{
			ID:     "01TESTPING",
			UserID: "abc123",
			Date:   time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC),
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx returned %v, want sentinel error", err)
	}

	count, err := db.CountPingsByUser(ctx, "abc123")
	if err != nil {
		t.Fatalf("CountPingsByUser failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Rolled-back insert is visible: %d pings", count)
	}
}

func TestEarliestPingDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, ok, err := tx.EarliestPingDate(ctx)
		if err != nil {
			return err
		}
		if ok {
			t.Error("EarliestPingDate reported a date for an empty log")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	early := time.Date(2025, 10, 13, 10, 0, 0, 0, time.UTC)
	insertPing(t, db, models.Ping{ID: "01A", UserID: "abc123", Date: early.AddDate(0, 0, 5)})
	insertPing(t, db, models.Ping{ID: "01B", UserID: "def456", Date: early})

	err = db.WithTx(ctx, func(tx *Tx) error {
		date, ok, err := tx.EarliestPingDate(ctx)
		if err != nil {
			return err
		}
		if !ok || !date.Equal(early) {
			t.Errorf("EarliestPingDate = %v (ok=%v), want %v", date, ok, early)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
}

func TestActiveUsersSincePicksLatestPing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	since := time.Date(2025, 11, 16, 0, 0, 0, 0, time.UTC)

	// Older ping outside the window must not count.
	insertPing(t, db, models.Ping{ID: "01A", UserID: "aa", Date: since.AddDate(0, 0, -3), BeakerVersion: "0.7.9", OS: "win10"})
	// Two pings in the window: the later one defines the snapshot.
	insertPing(t, db, models.Ping{ID: "01B", UserID: "bb", Date: since.AddDate(0, 0, 1), BeakerVersion: "0.7.10", OS: "win10"})
	insertPing(t, db, models.Ping{ID: "01C", UserID: "bb", Date: since.AddDate(0, 0, 2), BeakerVersion: "0.8.0", OS: "macos"})
	insertPing(t, db, models.Ping{ID: "01D", UserID: "cc", Date: since, BeakerVersion: "0.8.0", OS: "linux"})

	err := db.WithTx(ctx, func(tx *Tx) error {
		users, err := tx.ActiveUsersSince(ctx, since)
		if err != nil {
			return err
		}
		want := []ActiveUser{
			{UserID: "bb", BeakerVersion: "0.8.0", OS: "macos"},
			{UserID: "cc", BeakerVersion: "0.8.0", OS: "linux"},
		}
		if len(users) != len(want) {
			t.Fatalf("Got %d active users, want %d: %+v", len(users), len(want), users)
		}
		for i := range want {
			if users[i] != want[i] {
				t.Errorf("ActiveUsersSince[%d] = %+v, want %+v", i, users[i], want[i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
}

func TestFirstPingUsersWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	from := time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	insertPing(t, db, models.Ping{ID: "01A", UserID: "aa", Date: from, IsFirstPing: true})
	insertPing(t, db, models.Ping{ID: "01B", UserID: "bb", Date: from.AddDate(0, 0, 3), IsFirstPing: true})
	// Not a first ping: excluded.
	insertPing(t, db, models.Ping{ID: "01C", UserID: "cc", Date: from.AddDate(0, 0, 4)})
	// First ping exactly on the exclusive upper bound: excluded.
	insertPing(t, db, models.Ping{ID: "01D", UserID: "dd", Date: to, IsFirstPing: true})

	err := db.WithTx(ctx, func(tx *Tx) error {
		users, err := tx.FirstPingUsers(ctx, from, to)
		if err != nil {
			return err
		}
		if len(users) != 2 {
			t.Fatalf("Got %d first-ping users, want 2: %v", len(users), users)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
}

func TestReportRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stats := []models.ReportStat{
		{Beaker: "0.8.0", OS: "win10", Count: 3},
		{Beaker: "0.7.10", OS: "win10", Count: 1},
	}
	cohorts := []models.ReportCohort{
		{StartWeek: "2025week42", TotalCount: 5, StillActiveCount: 3},
		{StartWeek: "2025week46", TotalCount: 2, StillActiveCount: 1},
	}
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertReport(ctx, &models.Report{
			ID:              "2025week47",
			ComputeDate:     time.Date(2025, 11, 19, 12, 0, 0, 0, time.UTC),
			ActiveUserCount: 4,
			TotalUserCount:  7,
		}); err != nil {
			return err
		}
		if err := tx.InsertReportStats(ctx, "2025week47", stats); err != nil {
			return err
		}
		return tx.InsertReportCohorts(ctx, "2025week47", cohorts)
	})
	if err != nil {
		t.Fatalf("Failed to store report: %v", err)
	}

	got, err := db.GetReport(ctx, "2025week47")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.ActiveUserCount != 4 || got.TotalUserCount != 7 {
		t.Errorf("Counts = %d/%d, want 4/7", got.ActiveUserCount, got.TotalUserCount)
	}
	for i := range stats {
		if got.Stats[i] != stats[i] {
			t.Errorf("Stats[%d] = %+v, want %+v", i, got.Stats[i], stats[i])
		}
	}
	for i := range cohorts {
		if got.Cohorts[i] != cohorts[i] {
			t.Errorf("Cohorts[%d] = %+v, want %+v", i, got.Cohorts[i], cohorts[i])
		}
	}
}

func TestDeleteReportRemovesAllRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertReport(ctx, &models.Report{ID: "2025week47", ComputeDate: time.Now()}); err != nil {
			return err
		}
		if err := tx.InsertReportStats(ctx, "2025week47", []models.ReportStat{{Beaker: "0.8.0", OS: "win10", Count: 1}}); err != nil {
			return err
		}
		return tx.InsertReportCohorts(ctx, "2025week47", []models.ReportCohort{{StartWeek: "2025week42", TotalCount: 1}})
	})
	if err != nil {
		t.Fatalf("Failed to store report: %v", err)
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		return tx.DeleteReport(ctx, "2025week47")
	})
	if err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}

	if _, err := db.GetReport(ctx, "2025week47"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("GetReport after delete returned %v, want ErrReportNotFound", err)
	}
	reports, err := db.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("Got %d reports after delete, want 0", len(reports))
	}
}

func TestListReportsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// week45 was recomputed last; the listing orders by week id, not by
	// compute date, so a late recompute does not reshuffle it.
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	err := db.WithTx(ctx, func(tx *Tx) error {
		for i, id := range []string{"2025week46", "2025week47", "2025week45"} {
			if err := tx.InsertReport(ctx, &models.Report{ID: id, ComputeDate: base.AddDate(0, 0, 7*i)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to store reports: %v", err)
	}

	reports, err := db.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	want := []string{"2025week47", "2025week46", "2025week45"}
	for i, id := range want {
		if reports[i].ID != id {
			t.Errorf("ListReports[%d] = %s, want %s", i, reports[i].ID, id)
		}
	}
}
