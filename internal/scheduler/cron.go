// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package scheduler runs the weekly report computation on a cron
// schedule. The parser covers the standard 5-field syntax; no seconds
// field, no @-shortcuts.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
type Schedule struct {
	minutes     fieldSet
	hours       fieldSet
	daysOfMonth fieldSet
	months      fieldSet
	daysOfWeek  fieldSet
}

type fieldSet struct {
	values   map[int]struct{}
	wildcard bool
}

func (f fieldSet) contains(v int) bool {
	if f.wildcard {
		return true
	}
	_, ok := f.values[v]
	return ok
}

// Parse parses a cron expression. Supported per field: "*", single
// values, ranges ("1-5"), lists ("1,3,5"), and steps ("*/15", "0-30/5").
// Day-of-week accepts 0-7 with both 0 and 7 meaning Sunday.
func Parse(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(fields))
	}

	s := &Schedule{}
	specs := []struct {
		dst      *fieldSet
		name     string
		min, max int
	}{
		{&s.minutes, "minute", 0, 59},
		{&s.hours, "hour", 0, 23},
		{&s.daysOfMonth, "day-of-month", 1, 31},
		{&s.months, "month", 1, 12},
		{&s.daysOfWeek, "day-of-week", 0, 7},
	}
	for i, spec := range specs {
		fs, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %q: %w", spec.name, fields[i], err)
		}
		*spec.dst = fs
	}

	// Fold day-of-week 7 onto 0 so Sunday matches either spelling.
	if _, ok := s.daysOfWeek.values[7]; ok {
		delete(s.daysOfWeek.values, 7)
		s.daysOfWeek.values[0] = struct{}{}
	}
	return s, nil
}

// Next returns the first time strictly after t that matches the schedule,
// evaluated in loc. The search is bounded; a valid schedule always fires
// within four years.
func (s *Schedule) Next(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc).Truncate(time.Minute).Add(time.Minute)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)

	limit := t.AddDate(4, 0, 0)
	for ; t.Before(limit); t = t.Add(time.Minute) {
		if s.matches(t) {
			return t
		}
	}
	return time.Time{}
}

func (s *Schedule) matches(t time.Time) bool {
	if !s.minutes.contains(t.Minute()) || !s.hours.contains(t.Hour()) || !s.months.contains(int(t.Month())) {
		return false
	}

	// Standard cron: when both day fields are restricted, either may
	// match; a wildcard field defers to the other.
	domMatch := s.daysOfMonth.contains(t.Day())
	dowMatch := s.daysOfWeek.contains(int(t.Weekday()))
	switch {
	case s.daysOfMonth.wildcard:
		return dowMatch
	case s.daysOfWeek.wildcard:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

func parseField(field string, min, max int) (fieldSet, error) {
	if field == "*" {
		return fieldSet{wildcard: true}, nil
	}

	fs := fieldSet{values: make(map[int]struct{})}
	for _, part := range strings.Split(field, ",") {
		if err := parsePart(part, min, max, fs.values); err != nil {
			return fieldSet{}, err
		}
	}
	return fs, nil
}

func parsePart(part string, min, max int, out map[int]struct{}) error {
	step := 1
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		var err error
		step, err = strconv.Atoi(part[idx+1:])
		if err != nil || step <= 0 {
			return fmt.Errorf("bad step %q", part[idx+1:])
		}
		part = part[:idx]
	}

	start, end := min, max
	switch {
	case part == "*":
		// full range
	case strings.Contains(part, "-"):
		lo, hi, found := strings.Cut(part, "-")
		var err error
		if start, err = strconv.Atoi(lo); err != nil {
			return fmt.Errorf("bad range start %q", lo)
		}
		if end, err = strconv.Atoi(hi); err != nil || !found {
			return fmt.Errorf("bad range end %q", hi)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("bad value %q", part)
		}
		start = v
		if step == 1 {
			end = v
		}
	}

	if start > end || start < min || end > max {
		return fmt.Errorf("range %d-%d out of bounds %d-%d", start, end, min, max)
	}
	for v := start; v <= end; v += step {
		out[v] = struct{}{}
	}
	return nil
}
