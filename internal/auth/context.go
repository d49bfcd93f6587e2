/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import "context"

type ctxKey struct{}

// WithClaims returns a copy of ctx carrying the caller's claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	return claims, ok && claims != nil
}

// Actor names the caller for log lines: the seller id when present, otherwise the user id.
func Actor(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	switch {
	case !ok:
		return "anonymous"
	case claims.SellerID != "":
		return "seller:" + claims.SellerID
	default:
		return claims.UserID
	}
}
