// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beakerbrowser/bas/internal/analytics"
	"github.com/beakerbrowser/bas/internal/database"
	"github.com/beakerbrowser/bas/internal/logging"
)

// handleAddPing records a heartbeat. The response is 204 whether or not
// the ping was stored; clients get no signal to distinguish a malformed
// user ID from an accepted ping. Only storage failures surface as errors.
func (s *Server) handleAddPing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := analytics.PingRequest{
		UserID:        q.Get("userId"),
		BeakerVersion: q.Get("beakerVersion"),
		OS:            q.Get("os"),
		IP:            q.Get("ip"),
	}
	if req.IP == "" {
		req.IP = remoteIP(r)
	}
	if raw := q.Get("date"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			date := time.UnixMilli(ms)
			req.Date = &date
		}
	}

	if err := s.ingestor.Ingest(r.Context(), req); err != nil {
		logging.Err(err).Msg("Failed to record ping")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.db.ListReports(r.Context())
	if err != nil {
		logging.Err(err).Msg("Failed to list reports")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportId")
	report, err := s.db.GetReport(r.Context(), id)
	if errors.Is(err, database.ErrReportNotFound) {
		writeError(w, r, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		logging.Err(err).Str("report_id", id).Msg("Failed to load report")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleComputeReport triggers a report computation for the current week.
// Outside production a ?date= override selects another week, mirroring
// the ping date override.
func (s *Server) handleComputeReport(w http.ResponseWriter, r *http.Request) {
	target := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" && !s.cfg.Current().IsProduction() {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid date, want RFC 3339")
			return
		}
		target = date
	}

	id, err := s.reporter.Compute(r.Context(), target)
	if err != nil {
		logging.Err(err).Msg("Failed to compute report")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleCountPings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if !analytics.ValidUserID(userID) {
		writeError(w, r, http.StatusBadRequest, "invalid userId")
		return
	}

	count, err := s.db.CountPingsByUser(r.Context(), userID)
	if err != nil {
		logging.Err(err).Str("user_id", userID).Msg("Failed to count pings")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userId": userID, "count": count})
}

func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Health(r.Context()); err != nil {
		logging.Err(err).Msg("Readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
