// BAS - Beaker Analytics Server
// Copyright 2026 Beaker Browser contributors
// SPDX-License-Identifier: MIT
// https://github.com/beakerbrowser/bas

// Package auth implements HTTP Basic authentication for the admin-facing
// report endpoints. Credentials come from the config file's admins list
// and follow config hot reloads.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/beakerbrowser/bas/internal/config"
	"github.com/beakerbrowser/bas/internal/logging"
)

const realm = `Basic realm="bas", charset="UTF-8"`

// AdminsProvider returns the current admin credential set. Backed by the
// config manager so reloads take effect without restarting.
type AdminsProvider func() []config.Admin

// BasicAuthManager verifies admin credentials for protected routes.
type BasicAuthManager struct {
	admins AdminsProvider
}

// NewBasicAuthManager builds a manager over the given credential source.
func NewBasicAuthManager(admins AdminsProvider) *BasicAuthManager {
	return &BasicAuthManager{admins: admins}
}

// Verify reports whether username/password match a configured admin.
// Passwords in the config may be stored either as bcrypt hashes or in
// plaintext; both are compared without leaking timing on the match.
func (m *BasicAuthManager) Verify(username, password string) bool {
	ok := false
	for _, admin := range m.admins() {
		userMatch := subtle.ConstantTimeCompare([]byte(admin.Username), []byte(username)) == 1
		passMatch := passwordMatches(admin.Password, password)
		// Evaluate every entry so the loop's timing does not depend on
		// which admin (if any) matched.
		if userMatch && passMatch {
			ok = true
		}
	}
	return ok
}

// Middleware guards a route subtree with Basic auth. Unauthenticated and
// rejected requests get a 401 with a challenge.
func (m *BasicAuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !m.Verify(username, password) {
			logging.Debug().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rejected admin request")
			w.Header().Set("WWW-Authenticate", realm)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func passwordMatches(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
