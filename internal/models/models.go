// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package models defines the data structures shared between the store, the
// analytics core, and the HTTP layer.
package models

import "time"

// Ping is one heartbeat observation from a client installation.
//
// At most one row exists per (UserID, calendar day); a newer ping on the
// same day replaces the older one. IsFirstPing is set exactly once, when
// the user's first-ever row is created, and never recomputed.
type Ping struct {
	// ID is a ULID: monotonically increasing and globally unique, so it
	// doubles as a natural sort key.
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Date          time.Time `json:"date"`
	IsFirstPing   bool      `json:"isFirstPing"`
	BeakerVersion string    `json:"beakerVersion"`
	OS            string    `json:"os"`
	IP            string    `json:"ip"`
}

// Report is the aggregate computed for one calendar week. Its ID is
// derived from the week ("<year>week<2-digit-week>"), so recomputation
// for the same week replaces the prior artifact wholesale.
type Report struct {
	ID              string    `json:"id"`
	ComputeDate     time.Time `json:"computeDate"`
	ActiveUserCount int       `json:"activeUserCount"`
	TotalUserCount  int       `json:"totalUserCount"`
}

// ReportStat is one (beakerVersion, os) bucket of the report week's
// active-user snapshot.
type ReportStat struct {
	Beaker string `json:"beaker"`
	OS     string `json:"os"`
	Count  int    `json:"count"`
}

// ReportCohort is the retention record for one historical week: how many
// users had their first-ever ping in that week, and how many of those are
// still active in the report's week.
type ReportCohort struct {
	StartWeek        string `json:"startWeek"`
	TotalCount       int    `json:"totalCount"`
	StillActiveCount int    `json:"stillActiveCount"`
}

// ReportSummary is the listing projection of a stored report.
type ReportSummary struct {
	ID          string    `json:"id"`
	ComputeDate time.Time `json:"computeDate"`
}

// FullReport is the complete read projection of a stored report. Cohorts
// are ordered by StartWeek ascending; stats keep their insertion order.
type FullReport struct {
	ID              string         `json:"id"`
	ComputeDate     time.Time      `json:"computeDate"`
	ActiveUserCount int            `json:"activeUserCount"`
	TotalUserCount  int            `json:"totalUserCount"`
	Stats           []ReportStat   `json:"stats"`
	Cohorts         []ReportCohort `json:"cohorts"`
}
