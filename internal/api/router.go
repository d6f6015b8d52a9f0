// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package api wires the HTTP surface: the public /ping intake, the
// admin-facing report reads, and the operational endpoints (health,
// metrics, manual compute).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beakerbrowser/bas/internal/analytics"
	"github.com/beakerbrowser/bas/internal/auth"
	"github.com/beakerbrowser/bas/internal/config"
	"github.com/beakerbrowser/bas/internal/database"
	"github.com/beakerbrowser/bas/internal/middleware"
)

// pingRateWindow limits clients to one stored ping per day at the HTTP
// layer; the ingestor's per-day replacement makes extras harmless, this
// just sheds them early.
const pingRateWindow = 24 * time.Hour

// Server holds the handler dependencies.
type Server struct {
	cfg      *config.Manager
	db       *database.DB
	ingestor *analytics.Ingestor
	reporter *analytics.Reporter
	authmgr  *auth.BasicAuthManager
}

// NewServer builds the API server over its collaborators. Admin
// credentials are read through cfg on every request so config reloads
// apply immediately; rate limits and CORS are fixed at construction.
func NewServer(cfg *config.Manager, db *database.DB, ingestor *analytics.Ingestor, reporter *analytics.Reporter) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		ingestor: ingestor,
		reporter: reporter,
		authmgr: auth.NewBasicAuthManager(func() []config.Admin {
			return cfg.Current().Security.Admins
		}),
	}
}

// Routes assembles the router.
func (s *Server) Routes() http.Handler {
	snapshot := s.cfg.Current()

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		MaxAge:         300,
	}))
	r.Use(chimw.Timeout(snapshot.Server.Timeout))

	rateLimited := snapshot.IsProduction() && !snapshot.Security.RateLimitDisabled
	if rateLimited {
		r.Use(httprate.LimitByIP(snapshot.Security.RateLimitReqs, snapshot.Security.RateLimitWindow))
	}

	r.Group(func(r chi.Router) {
		if rateLimited {
			r.Use(httprate.LimitByIP(1, pingRateWindow))
		}
		r.Post("/ping", s.handleAddPing)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authmgr.Middleware)
		r.Get("/", s.handleListReports)
		r.Get("/report/{reportId}", s.handleGetReport)
		r.Post("/admin/compute", s.handleComputeReport)
		r.Get("/admin/pings/count", s.handleCountPings)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", s.handleHealthLive)
		r.Get("/ready", s.handleHealthReady)
	})

	return r
}
