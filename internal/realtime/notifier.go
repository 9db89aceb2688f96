// Package realtime pushes server events to connected WebSocket clients.
//
// Producers depend on the Notifier interface only; the Hub is handed to them at
// construction time instead of being attached to every request.
package realtime

import (
	"context"
	"time"
)

// Event types published by this service.
const (
	EventDocumentUploaded = "document.uploaded"
)

// Event is the JSON frame delivered to clients.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ string, payload any) Event {
	return Event{Type: typ, Payload: payload, At: time.Now().UTC()}
}

// Notifier publishes events. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Event) error { return nil }
