/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
)

// envelope is the wire format shared by every transport.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalEnvelope(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalEnvelope(data []byte) (*envelope, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if msg.EventType == "" {
		return nil, fmt.Errorf("unmarshal event envelope: missing event type")
	}
	return &msg, nil
}

// NodeID builds a process identifier from the hostname and a random suffix.
func NodeID(instanceID string) string {
	if instanceID != "" {
		return instanceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
