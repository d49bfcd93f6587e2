/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/auth"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/eventbus"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/listing"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/live"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	live      *live.Service
	listing   *listing.Aggregator
	bus       *events.Bus
	secretKey string
	jwtSecret []byte
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, liveSvc *live.Service, aggregator *listing.Aggregator, bus *events.Bus, secretKey string, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		live:      liveSvc,
		listing:   aggregator,
		bus:       bus,
		secretKey: secretKey,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all HTTP routes on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/liveSeller", func(r chi.Router) {
		r.Use(a.authMiddleware())

		r.Post("/", a.handleGoLive)
		r.Patch("/updateSelectedProducts", a.handleUpdateSelection)
		r.Patch("/setSellerOfflineAndResetProducts", a.handleGoOffline)
		r.Patch("/endLive", a.handleEndLive)
		r.Patch("/auctionResult", a.handleAuctionResult)
		r.Patch("/retrieveLiveAnalytics", a.handleLiveAnalytics)
		r.Get("/liveSellerList", a.handleLiveSellerList)
		r.Get("/getSelectedProducts", a.handleSelectedProducts)
		r.Get("/events", a.handleEvents)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": false, "message": "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "ok"})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.LiveEventTypes
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	// Reads are only needed to notice the client going away.
	ctx = conn.CloseRead(ctx)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload, ok := <-sub:
					if !ok {
						continue
					}
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Debug().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	clean := make(events.Payload, len(payload))
	for k, v := range payload {
		if k == eventbus.OriginKey {
			continue
		}
		clean[k] = v
	}
	data := map[string]any{
		"type":    eventType,
		"payload": clean,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.secretKey, a.jwtSecret)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
