// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package analytics is the core of BAS: ping ingestion (deduplication and
// first-ping detection) and the weekly retention-report computation. It
// orchestrates the event store but owns no storage of its own.
package analytics

import (
	"fmt"
	"time"
)

// Calendar conventions, inherited from the original reporting pipeline:
// days and weeks are evaluated in the server's configured location, weeks
// start on Sunday, and week 1 of a year is the week containing January 1.

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns midnight of the Sunday starting t's calendar week in
// loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := DayStart(t, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekID derives the deterministic report/cohort identity for the week
// containing t: "<year>week<2-digit-week>". The year is the calendar year
// of the week's start day, so a week spanning a year boundary keeps the
// old year's identity (e.g. "2025week53" for the week of 2025-12-28).
func WeekID(t time.Time, loc *time.Location) string {
	ws := WeekStart(t, loc)
	jan1 := time.Date(ws.Year(), time.January, 1, 0, 0, 0, 0, loc)
	week := 1
	// Walk week by week rather than dividing elapsed hours; DST weeks
	// are not 168 hours long.
	for w := WeekStart(jan1, loc); w.Before(ws); w = w.AddDate(0, 0, 7) {
		week++
	}
	return fmt.Sprintf("%dweek%02d", ws.Year(), week)
}
