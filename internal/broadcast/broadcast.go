// Package broadcast pushes the server clock to every live session once per
// interval, evicting sessions whose transport has died.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/internal/registry"
	"github.com/tickstream/tickstream/pkg/presence"
	"github.com/tickstream/tickstream/pkg/protocol"
)

const DefaultInterval = time.Second

type Broadcaster struct {
	registry *registry.Registry
	store    presence.Store
	feed     events.Publisher
	interval time.Duration
	logger   *slog.Logger
}

func New(reg *registry.Registry, store presence.Store, feed events.Publisher, interval time.Duration, logger *slog.Logger) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if feed == nil {
		feed = events.NopPublisher{}
	}
	return &Broadcaster{
		registry: reg,
		store:    store,
		feed:     feed,
		interval: interval,
		logger:   logger,
	}
}

// Run executes the broadcast loop until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("broadcast loop started", "interval", b.interval.String())
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("broadcast loop stopped")
			return
		case <-ticker.C:
			b.tick(ctx, time.Now().Format(protocol.TimeFormat))
		}
	}
}

// tick pushes the given clock value to every session whose last-sent value
// differs, then evicts the sessions whose transport failed. Detection and
// eviction are separate passes so the registry is never mutated while being
// iterated and store writes are batched after the pushes.
func (b *Broadcaster) tick(ctx context.Context, now string) {
	entries := b.registry.Snapshot()
	if len(entries) == 0 {
		return
	}

	payload, err := json.Marshal(protocol.NewTimeUpdate(now))
	if err != nil {
		b.logger.Error("marshal time update failed", "error", err)
		return
	}

	var dead []string
	for _, entry := range entries {
		if entry.LastTimeSent == now {
			continue
		}
		if err := entry.Transport.Send(payload); err != nil {
			dead = append(dead, entry.ID)
			continue
		}
		b.registry.UpdateLastSent(entry.ID, now)
		if err := b.store.TouchActivity(ctx, entry.ID); err != nil {
			// Broadcast receipt counts as liveness, but a missing or failing
			// store record must not disturb the push loop.
			b.logger.Warn("touch activity failed", "client_id", entry.ID, "error", err)
		}
	}

	for _, id := range dead {
		b.registry.Remove(id)
		if err := b.store.MarkOffline(ctx, id); err != nil {
			b.logger.Warn("mark offline failed", "client_id", id, "error", err)
		}
		if err := b.feed.Publish(ctx, events.Event{
			ClientID:  id,
			Type:      events.TypeDisconnected,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			b.logger.Warn("presence event publish failed", "client_id", id, "error", err)
		}
		b.logger.Info("session evicted during broadcast", "client_id", id)
	}
}
