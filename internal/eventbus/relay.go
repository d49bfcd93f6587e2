/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays selected in-process events between instances over
// NATS or Redis so that every node's websocket feed sees every transition.
package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
)

// OriginKey marks payloads that arrived from another node.
const OriginKey = "_origin"

// Transport moves opaque messages between nodes.
type Transport interface {
	Publish(ctx context.Context, subject string, data []byte) error
	// Subscribe delivers every message whose subject starts with prefix.
	Subscribe(prefix string, handler func(data []byte)) error
	Close() error
}

// Relay forwards local events to the transport and remote events to the local bus.
type Relay struct {
	bus       *events.Bus
	transport Transport
	prefix    string
	nodeID    string
	types     map[events.EventType]bool
	logger    zerolog.Logger

	wg sync.WaitGroup
}

// NewRelay creates a relay for the given event types.
func NewRelay(bus *events.Bus, transport Transport, prefix, nodeID string, types []events.EventType, logger zerolog.Logger) *Relay {
	allowed := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return &Relay{
		bus:       bus,
		transport: transport,
		prefix:    strings.TrimSuffix(prefix, "."),
		nodeID:    nodeID,
		types:     allowed,
		logger:    logger.With().Str("component", "eventbus").Str("node_id", nodeID).Logger(),
	}
}

// Subject returns the transport subject for eventType.
func (r *Relay) Subject(eventType events.EventType) string {
	return r.prefix + "." + string(eventType)
}

// Run relays until ctx is cancelled, then closes the transport.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.transport.Subscribe(r.prefix+".", r.receive); err != nil {
		return fmt.Errorf("subscribe relay: %w", err)
	}

	subs := make(map[events.EventType]events.Subscriber, len(r.types))
	for eventType := range r.types {
		sub := r.bus.Subscribe(eventType)
		subs[eventType] = sub
		r.wg.Add(1)
		go r.forward(ctx, eventType, sub)
	}

	r.logger.Info().Int("event_types", len(subs)).Str("prefix", r.prefix).Msg("event relay started")

	<-ctx.Done()
	for eventType, sub := range subs {
		r.bus.Unsubscribe(eventType, sub)
	}
	r.wg.Wait()

	if err := r.transport.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("close relay transport")
	}
	r.logger.Info().Msg("event relay stopped")
	return nil
}

func (r *Relay) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer r.wg.Done()
	for payload := range sub {
		if _, relayed := payload[OriginKey]; relayed {
			continue
		}

		data, err := marshalEnvelope(eventType, payload, r.nodeID)
		if err != nil {
			r.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event")
			continue
		}

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		err = r.transport.Publish(pubCtx, r.Subject(eventType), data)
		cancel()
		if err != nil {
			r.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to relay event")
		}
	}
}

func (r *Relay) receive(data []byte) {
	msg, err := unmarshalEnvelope(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to decode relayed event")
		return
	}
	if msg.NodeID == r.nodeID || !r.types[msg.EventType] {
		return
	}

	payload := msg.Payload
	if payload == nil {
		payload = events.Payload{}
	}
	payload[OriginKey] = msg.NodeID
	r.bus.Publish(msg.EventType, payload)

	r.logger.Debug().
		Str("event_type", string(msg.EventType)).
		Str("source_node", msg.NodeID).
		Msg("delivered relayed event")
}
