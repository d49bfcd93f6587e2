/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims extends standard registered claims with roles and the seller the
// user operates, if any.
type Claims struct {
	UserID   string   `json:"uid"`
	Roles    []string `json:"roles"`
	SellerID string   `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// Role names carried in claims.
const (
	RoleAdmin   = "admin"
	RoleSeller  = "seller"
	RoleService = "service"
)

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Issue creates JWT token string.
func Issue(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Subject:   claims.UserID,
		Issuer:    "trendycart",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse validates token string. Only HS256 tokens are accepted.
func Parse(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
