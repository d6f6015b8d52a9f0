// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package metrics exposes the server's Prometheus instrumentation. All
// collectors are registered on the default registry at init and served by
// the API's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PingsIngestedTotal counts heartbeat pings accepted and stored.
	PingsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bas_pings_ingested_total",
		Help: "Total number of heartbeat pings stored",
	})

	// PingsRejectedTotal counts pings dropped for malformed user IDs.
	PingsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bas_pings_rejected_total",
		Help: "Total number of pings dropped for malformed user IDs",
	})

	// ReportsComputedTotal counts weekly report computations, scheduled
	// and manual alike.
	ReportsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bas_reports_computed_total",
		Help: "Total number of weekly report computations",
	})

	// ReportComputeDuration observes how long report computations take.
	ReportComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bas_report_compute_duration_seconds",
		Help:    "Duration of weekly report computations in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bas_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration observes API request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bas_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// HTTPRequestsInFlight gauges requests currently being served.
	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bas_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served",
	})
)
