/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/subtle"
	"net/http"
	"path"
	"strings"
)

// EventsPath is the websocket route that may carry its token in the query string.
const EventsPath = "/liveSeller/events"

// Middleware validates the shared secret key header.
func Middleware(secretKey string) func(http.Handler) http.Handler {
	return MiddlewareWithJWT(secretKey, nil)
}

// MiddlewareWithJWT accepts either the platform secret in the "key" header
// or a JWT Bearer token. If jwtSecret is nil, only the secret key is checked.
func MiddlewareWithJWT(secretKey string, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Service-to-service callers send the platform key
			if key := r.Header.Get("key"); key != "" {
				if secretKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secretKey)) != 1 {
					unauthorized(w)
					return
				}
				ctx := WithClaims(r.Context(), &Claims{UserID: "service", Roles: []string{RoleService}})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if jwtSecret != nil {
				token := extractToken(r)
				if token != "" {
					claims, err := Parse(jwtSecret, token)
					if err == nil && claims != nil {
						ctx := WithClaims(r.Context(), claims)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			unauthorized(w)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"status":false,"message":"unauthorized"}`))
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Browser WebSocket clients cannot set arbitrary Authorization headers.
	// Allow query-token auth only for the events WebSocket upgrade endpoint.
	if isWebSocketUpgrade(r) && path.Clean(r.URL.Path) == EventsPath {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token
		}
	}
	return ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket")
}
