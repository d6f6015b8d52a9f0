// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/beakerbrowser/bas/internal/models"
)

// ActiveUser is the per-user row of a week's activity snapshot: the most
// recent ping of one user within the window.
type ActiveUser struct {
	UserID        string
	BeakerVersion string
	OS            string
}

// DeleteUserPingsFrom removes all of a user's pings dated at or after
// from. The ingestor uses it with the start of the current day to collapse
// same-day duplicates before inserting the replacement row.
func (t *Tx) DeleteUserPingsFrom(ctx context.Context, userID string, from time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM pings WHERE user_id = ? AND date >= ?`, userID, from)
	if err != nil {
		return fmt.Errorf("failed to delete pings for user: %w", err)
	}
	return nil
}

// UserHasPings reports whether any ping row exists for the user, on any
// date.
func (t *Tx) UserHasPings(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pings WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing pings: %w", err)
	}
	return exists, nil
}

// InsertPing appends one ping row.
func (t *Tx) InsertPing(ctx context.Context, p *models.Ping) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO pings (id, user_id, date, is_first_ping, beaker_version, os, ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Date, p.IsFirstPing, p.BeakerVersion, p.OS, p.IP)
	if err != nil {
		return fmt.Errorf("failed to insert ping: %w", err)
	}
	return nil
}

// EarliestPingDate returns the date of the first ping ever recorded.
// ok is false when the log is empty.
func (t *Tx) EarliestPingDate(ctx context.Context) (date time.Time, ok bool, err error) {
	var nt sql.NullTime
	if err := t.tx.QueryRowContext(ctx, `SELECT MIN(date) FROM pings`).Scan(&nt); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query earliest ping: %w", err)
	}
	if !nt.Valid {
		return time.Time{}, false, nil
	}
	return nt.Time, true, nil
}

// ActiveUsersSince returns the most recent ping per distinct user with
// date >= since: the activity snapshot for a report week. Rows come back
// ordered by user id for deterministic iteration.
func (t *Tx) ActiveUsersSince(ctx context.Context, since time.Time) ([]ActiveUser, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT user_id, beaker_version, os
		FROM pings
		WHERE date >= ?
		QUALIFY row_number() OVER (PARTITION BY user_id ORDER BY date DESC, id DESC) = 1
		ORDER BY user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var users []ActiveUser
	for rows.Next() {
		var u ActiveUser
		if err := rows.Scan(&u.UserID, &u.BeakerVersion, &u.OS); err != nil {
			return nil, fmt.Errorf("failed to scan active user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active users: %w", err)
	}
	return users, nil
}

// FirstPingUsers returns the distinct users whose first-ever ping falls
// within [from, to): the membership of one cohort.
func (t *Tx) FirstPingUsers(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM pings
		WHERE is_first_ping AND date >= ? AND date < ?
		ORDER BY user_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cohort user: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cohort users: %w", err)
	}
	return users, nil
}

// DistinctUserCount counts every user that has ever pinged.
func (t *Tx) DistinctUserCount(ctx context.Context) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM pings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct users: %w", err)
	}
	return count, nil
}

// CountPingsByUser returns the number of stored ping rows for one user.
func (db *DB) CountPingsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM pings WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pings: %w", err)
	}
	return count, nil
}

// UserPings returns all stored pings for one user ordered by date. Test
// and diagnostics helper; the report path never loads raw rows this way.
func (db *DB) UserPings(ctx context.Context, userID string) ([]models.Ping, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, date, is_first_ping, beaker_version, os, ip
		FROM pings WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pings: %w", err)
	}
	defer rows.Close()

	var pings []models.Ping
	for rows.Next() {
		var p models.Ping
		if err := rows.Scan(&p.ID, &p.UserID, &p.Date, &p.IsFirstPing, &p.BeakerVersion, &p.OS, &p.IP); err != nil {
			return nil, fmt.Errorf("failed to scan ping: %w", err)
		}
		pings = append(pings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pings: %w", err)
	}
	return pings, nil
}
