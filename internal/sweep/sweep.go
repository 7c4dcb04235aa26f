// Package sweep periodically reconciles the presence store, marking offline
// every record that claims to be online but has been inactive past a
// threshold. The sweeper never touches the live session registry: presence
// is store-of-record truth, the registry is a best-effort liveness cache.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/pkg/presence"
)

const (
	DefaultInterval  = 60 * time.Second
	DefaultThreshold = 5 * time.Minute
)

type Sweeper struct {
	store     presence.Store
	feed      events.Publisher
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

func New(store presence.Store, feed events.Publisher, interval, threshold time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if feed == nil {
		feed = events.NopPublisher{}
	}
	return &Sweeper{
		store:     store,
		feed:      feed,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run executes the sweep loop until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("inactivity sweep started",
		"interval", s.interval.String(),
		"threshold", s.threshold.String(),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("inactivity sweep stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one reconciliation pass. Store failures yield an empty tick.
func (s *Sweeper) sweep(ctx context.Context) int {
	online, err := s.store.ListOnline(ctx)
	if err != nil {
		s.logger.Error("list online failed", "error", err)
		return 0
	}

	now := time.Now().UTC()
	for _, rec := range online {
		s.logger.Debug("online record",
			"client_id", rec.ID,
			"username", rec.Username,
			"inactive_for", now.Sub(rec.LastActive).String(),
		)
	}

	count, err := s.store.SweepStale(ctx, s.threshold)
	if err != nil {
		s.logger.Error("sweep stale failed", "error", err)
		return 0
	}
	if count == 0 {
		return 0
	}

	s.logger.Info("stale sessions marked offline", "count", count)
	if err := s.feed.Publish(ctx, events.Event{
		Type:      events.TypeSwept,
		Count:     count,
		Timestamp: now,
	}); err != nil {
		s.logger.Warn("presence event publish failed", "error", err)
	}
	return count
}
