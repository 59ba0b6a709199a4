package domain

import (
	"encoding/json"
	"time"
)

// EventType enumerates the fire-and-forget notifications the engine emits.
type EventType string

const (
	EventPoolCreated  EventType = "pool-created"
	EventBetPlaced    EventType = "bet-placed"
	EventPoolClosed   EventType = "pool-closed"
	EventViral        EventType = "viral-event"
	EventPoolResolved EventType = "pool-resolved"
	EventPhaseChanged EventType = "phase-changed"
)

// EventChannel returns the bus channel an event type is published on. All
// engine channels share the "ch:" prefix so the websocket hub can subscribe
// with a single "ch:*" pattern.
func EventChannel(t EventType) string {
	return "ch:" + string(t)
}

// Event is one entry in the append-only event log. Seq is assigned by the
// event store and increases monotonically, which is what makes settlement
// decisions replayable for audit.
type Event struct {
	Seq       int64          `json:"seq"`
	Type      EventType      `json:"type"`
	PoolID    string         `json:"pool_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Encode serializes the event as the JSON payload published on the bus.
func (e Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}
