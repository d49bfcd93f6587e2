/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package license resolves which live-selling tier a seller is entitled to.
// Auction sessions require the extended tier.
package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// Known tiers.
const (
	TierNone     = ""
	TierRegular  = "regular"
	TierExtended = "extended"
)

var (
	// ErrLicenseRequired indicates the seller's tier does not cover the request.
	ErrLicenseRequired = errors.New("license tier required")

	// ErrLicenseCheckFailed indicates the license service could not be consulted.
	ErrLicenseCheckFailed = errors.New("license check failed")
)

var tierRank = map[string]int{
	TierRegular:  1,
	TierExtended: 2,
}

// Rank orders tiers; unknown tiers rank zero.
func Rank(tier string) int {
	return tierRank[strings.ToLower(strings.TrimSpace(tier))]
}

// Satisfies reports whether tier meets required.
func Satisfies(tier, required string) bool {
	if Rank(required) == 0 {
		return true
	}
	return Rank(tier) >= Rank(required)
}

// Checker looks up a seller's active tier.
type Checker interface {
	Tier(ctx context.Context, sellerID string) (string, error)
}

// Verify fetches the seller's tier and fails if it is below required.
func Verify(ctx context.Context, checker Checker, sellerID, required string) error {
	if checker == nil {
		return fmt.Errorf("%w: no license checker configured", ErrLicenseCheckFailed)
	}
	tier, err := checker.Tier(ctx, sellerID)
	if err != nil {
		if errors.Is(err, ErrLicenseCheckFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrLicenseCheckFailed, err)
	}
	if !Satisfies(tier, required) {
		return fmt.Errorf("%w: %s tier needed", ErrLicenseRequired, required)
	}
	return nil
}

// StaticChecker returns a fixed tier, optionally overridden per seller.
type StaticChecker struct {
	mu        sync.RWMutex
	Default   string
	overrides map[string]string
}

// NewStaticChecker creates a checker that reports defaultTier for everyone.
func NewStaticChecker(defaultTier string) *StaticChecker {
	return &StaticChecker{Default: defaultTier, overrides: make(map[string]string)}
}

// Set overrides the tier for one seller.
func (s *StaticChecker) Set(sellerID, tier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[sellerID] = tier
}

// Tier implements Checker.
func (s *StaticChecker) Tier(_ context.Context, sellerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tier, ok := s.overrides[sellerID]; ok {
		return tier, nil
	}
	return s.Default, nil
}

// HTTPChecker queries a remote license service at
// GET {BaseURL}/sellers/{id}/license.
type HTTPChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

type licenseResponse struct {
	Active bool   `json:"active"`
	Tier   string `json:"tier"`
}

// NewHTTPChecker creates a remote checker.
func NewHTTPChecker(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: telemetry.InstrumentedTransport(http.DefaultTransport),
		},
		logger: logger.With().Str("component", "license").Logger(),
	}
}

// Tier implements Checker. A 404 or inactive license yields TierNone.
func (c *HTTPChecker) Tier(ctx context.Context, sellerID string) (string, error) {
	endpoint := c.baseURL + "/sellers/" + url.PathEscape(sellerID) + "/license"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TierNone, fmt.Errorf("%w: build request: %v", ErrLicenseCheckFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("seller_id", sellerID).Msg("license lookup failed")
		return TierNone, fmt.Errorf("%w: %v", ErrLicenseCheckFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return TierNone, nil
	case resp.StatusCode >= 300:
		return TierNone, fmt.Errorf("%w: license service returned %d", ErrLicenseCheckFailed, resp.StatusCode)
	}

	var body licenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TierNone, fmt.Errorf("%w: decode response: %v", ErrLicenseCheckFailed, err)
	}
	if !body.Active {
		return TierNone, nil
	}
	return strings.ToLower(strings.TrimSpace(body.Tier)), nil
}
