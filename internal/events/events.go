// Package events publishes presence transitions to an external feed. The
// feed is best-effort observability: publish failures are logged by callers
// and never affect the connection lifecycle.
package events

import (
	"context"
	"time"
)

// Event types emitted on the presence feed.
const (
	TypeConnected    = "connected"
	TypeDisconnected = "disconnected"
	TypeSwept        = "swept"
)

// Event is one presence transition.
type Event struct {
	ClientID  string    `json:"client_id,omitempty"`
	Type      string    `json:"type"`
	Username  string    `json:"username,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits presence events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher discards every event. Used when no feed is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt Event) error { return nil }
func (NopPublisher) Close() error                                 { return nil }
