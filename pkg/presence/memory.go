package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store. It is the default
// backend and the one used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) Upsert(ctx context.Context, id, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	now := time.Now().UTC()
	rec, exists := m.records[id]
	if !exists {
		m.records[id] = &Record{
			ID:          id,
			Username:    username,
			ConnectedAt: now,
			LastActive:  now,
			Online:      true,
		}
		return nil
	}
	rec.Username = username
	rec.LastActive = now
	rec.Online = true
	rec.DisconnectedAt = nil
	return nil
}

func (m *MemoryStore) MarkOffline(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	rec, exists := m.records[id]
	if !exists || !rec.Online {
		return nil
	}
	now := time.Now().UTC()
	rec.Online = false
	rec.DisconnectedAt = &now
	return nil
}

func (m *MemoryStore) TouchActivity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	rec, exists := m.records[id]
	if !exists {
		return ErrNotFound
	}
	rec.LastActive = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Rename(ctx context.Context, id, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrStoreClosed
	}
	rec, exists := m.records[id]
	if !exists {
		return "", ErrNotFound
	}
	rec.Username = username
	return username, nil
}

func (m *MemoryStore) ListOnline(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []Record
	for _, rec := range m.records {
		if rec.Online {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *MemoryStore) SweepStale(ctx context.Context, cutoff time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	now := time.Now().UTC()
	deadline := now.Add(-cutoff)
	swept := 0
	for _, rec := range m.records {
		if rec.Online && rec.LastActive.Before(deadline) {
			disconnected := now
			rec.Online = false
			rec.DisconnectedAt = &disconnected
			swept++
		}
	}
	return swept, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
