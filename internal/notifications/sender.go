/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// Sender delivers one message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) error
}

// PushPayload is the body posted to the push gateway.
type PushPayload struct {
	Tokens       []string          `json:"tokens"`
	Notification PushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// PushNotification is the visible part of a push.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushGatewaySender posts signed JSON to an FCM relay.
type PushGatewaySender struct {
	url    string
	secret string
	client *http.Client
}

// NewPushGatewaySender creates a gateway sender.
func NewPushGatewaySender(url, secret string) *PushGatewaySender {
	return &PushGatewaySender{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: telemetry.InstrumentedTransport(http.DefaultTransport),
		},
	}
}

// Send implements Sender.
func (s *PushGatewaySender) Send(ctx context.Context, tokens []string, msg Message) error {
	payload := PushPayload{
		Tokens:       tokens,
		Notification: PushNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
		Timestamp:    time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TrendyCart-Push/1.0")
	if s.secret != "" {
		req.Header.Set("X-TrendyCart-Signature", Sign(body, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the HMAC-SHA256 signature header value for payload.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// LogSender writes notifications to the log. Used when no gateway is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notifications").Logger()}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, tokens []string, msg Message) error {
	s.logger.Info().
		Str("seller_id", msg.SellerID).
		Str("title", msg.Title).
		Int("tokens", len(tokens)).
		Msg("push notification (log only)")
	return nil
}
