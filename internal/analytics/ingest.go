// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package analytics

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"
	"regexp"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/beakerbrowser/bas/internal/database"
	"github.com/beakerbrowser/bas/internal/logging"
	"github.com/beakerbrowser/bas/internal/metrics"
	"github.com/beakerbrowser/bas/internal/models"
)

// userIDPattern matches the anonymous client identifiers Beaker generates:
// lowercase hex, any length. Anything else is dropped without a trace so
// probes cannot distinguish accepted from ignored pings.
var userIDPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// lockStripes bounds the per-user mutex table. Contention is only ever
// between pings for the same user, so a modest stripe count is plenty.
const lockStripes = 64

// PingRequest is a single heartbeat from a Beaker client. Date is only
// honored outside production, for deterministic testing.
type PingRequest struct {
	UserID        string
	IP            string
	BeakerVersion string
	OS            string
	Date          *time.Time
}

// Ingestor records heartbeat pings, keeping at most one ping per user per
// calendar day and stamping the first ping a user ever sends.
type Ingestor struct {
	db         *database.DB
	loc        *time.Location
	production bool
	now        func() time.Time

	locks [lockStripes]sync.Mutex

	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy
}

// NewIngestor builds an Ingestor evaluating calendar days in loc. In
// production mode client-supplied dates are ignored.
func NewIngestor(db *database.DB, loc *time.Location, production bool) *Ingestor {
	return &Ingestor{
		db:         db,
		loc:        loc,
		production: production,
		now:        time.Now,
		idEntropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// ValidUserID reports whether id is a well-formed anonymous user ID.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Ingest records one heartbeat. Malformed user IDs are skipped silently;
// the caller should still answer the client as if the ping were accepted.
//
// For a valid ping the user's existing rows for the ping's calendar day
// are replaced, so the newest ping of a day wins, and is_first_ping is set
// exactly once per user, on the first ping ever stored for them. The
// replace-check-insert sequence runs in one transaction under a per-user
// lock, so concurrent pings for the same user serialize.
func (in *Ingestor) Ingest(ctx context.Context, req PingRequest) error {
	if !ValidUserID(req.UserID) {
		metrics.PingsRejectedTotal.Inc()
		logging.Debug().Str("user_id", req.UserID).Msg("Skipping ping with malformed user ID")
		return nil
	}

	date := in.now()
	if !in.production && req.Date != nil {
		date = *req.Date
	}
	today := DayStart(date, in.loc)

	mu := &in.locks[stripeFor(req.UserID)]
	mu.Lock()
	defer mu.Unlock()

	id, err := in.newPingID(date)
	if err != nil {
		return fmt.Errorf("generate ping id: %w", err)
	}

	err = in.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := tx.DeleteUserPingsFrom(ctx, req.UserID, today); err != nil {
			return err
		}
		hasPings, err := tx.UserHasPings(ctx, req.UserID)
		if err != nil {
			return err
		}
		return tx.InsertPing(ctx, &models.Ping{
			ID:            id,
			UserID:        req.UserID,
			Date:          date,
			IsFirstPing:   !hasPings,
			BeakerVersion: req.BeakerVersion,
			OS:            req.OS,
			IP:            req.IP,
		})
	})
	if err != nil {
		return fmt.Errorf("record ping: %w", err)
	}

	metrics.PingsIngestedTotal.Inc()
	logging.Debug().
		Str("user_id", req.UserID).
		Str("beaker_version", req.BeakerVersion).
		Str("os", req.OS).
		Time("date", date).
		Msg("Recorded ping")
	return nil
}

func (in *Ingestor) newPingID(t time.Time) (string, error) {
	in.idMu.Lock()
	defer in.idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), in.idEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func stripeFor(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32() % lockStripes
}
