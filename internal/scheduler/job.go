// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package scheduler

import (
	"context"
	"time"

	"github.com/beakerbrowser/bas/internal/logging"
)

// Job runs a function on a cron schedule. Serve satisfies the suture
// service contract: it blocks until ctx is canceled and survives failing
// runs, logging them and waiting for the next tick.
type Job struct {
	name     string
	schedule *Schedule
	loc      *time.Location
	run      func(ctx context.Context) error
}

// NewJob parses expr and builds a job executing run at its ticks in loc.
func NewJob(name, expr string, loc *time.Location, run func(ctx context.Context) error) (*Job, error) {
	schedule, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Job{name: name, schedule: schedule, loc: loc, run: run}, nil
}

// Serve runs the schedule loop until ctx is done.
func (j *Job) Serve(ctx context.Context) error {
	for {
		next := j.schedule.Next(time.Now(), j.loc)
		logging.Info().Str("job", j.name).Time("next_run", next).Msg("Scheduled next run")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		started := time.Now()
		if err := j.run(ctx); err != nil {
			logging.Err(err).Str("job", j.name).Msg("Scheduled run failed")
			continue
		}
		logging.Info().Str("job", j.name).Dur("elapsed", time.Since(started)).Msg("Scheduled run finished")
	}
}

func (j *Job) String() string {
	return "scheduler:" + j.name
}
