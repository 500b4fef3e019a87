// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// RequireAPIKey rejects requests that do not carry
// "Authorization: Bearer <key>". When key is empty the protected routes are
// disabled and answer 503.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, http.StatusServiceUnavailable, "api key not configured")
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, bearerPrefix)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				slog.Warn("api key rejected",
					"path", r.URL.Path,
					"remote", remoteHost(r),
					"request_id", RequestIDFromCtx(r.Context()),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="sharemeow"`)
				writeError(w, http.StatusUnauthorized, "invalid or missing api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
