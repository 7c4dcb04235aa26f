// Package presence persists per-connection presence records: who is online,
// since when, and when they were last active. Records are never deleted,
// only marked offline, so the store doubles as an audit trail of past
// connections.
package presence

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("presence record not found")
	ErrStoreClosed = errors.New("presence store closed")
)

// Record is the durable presence row for one connection.
type Record struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	ConnectedAt    time.Time  `json:"connected_at"`
	LastActive     time.Time  `json:"last_active"`
	Online         bool       `json:"online"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Store is the abstract interface for presence persistence. Implementations
// serialize their own per-record updates; all operations are safe under
// at-least-once retry.
type Store interface {
	// Upsert creates or refreshes a record, marking it online. ConnectedAt
	// is set only when the record is first created.
	Upsert(ctx context.Context, id, username string) error
	// MarkOffline flips a record offline with DisconnectedAt set to now.
	// Marking an absent or already-offline record is a no-op.
	MarkOffline(ctx context.Context, id string) error
	// TouchActivity bumps LastActive without changing the online flag.
	TouchActivity(ctx context.Context, id string) error
	// Rename updates the username and returns the new name, or ErrNotFound.
	Rename(ctx context.Context, id, username string) (string, error)
	ListOnline(ctx context.Context) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	// SweepStale marks offline every online record whose LastActive is older
	// than the cutoff and returns the number affected.
	SweepStale(ctx context.Context, cutoff time.Duration) (int, error)
	Close() error
}
