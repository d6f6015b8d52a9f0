// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

package database

import "errors"

// ErrReportNotFound indicates GetReport was asked for an id that no
// computed report carries. Callers map it to HTTP 404; it is never a
// storage failure.
var ErrReportNotFound = errors.New("report not found")
