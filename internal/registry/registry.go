// Package registry tracks live sessions in memory. It is the only structure
// mutated by both connection handlers and the broadcast loop, so every
// operation goes through a single mutex held only for the duration of the
// map access, never across network or store I/O.
package registry

import (
	"errors"
	"sync"
)

var ErrDuplicateSession = errors.New("session id already registered")

// Transport is the outbound half of one client connection. Send must be safe
// to call from multiple goroutines and must fail fast once the underlying
// connection is dead.
type Transport interface {
	Send(payload []byte) error
	Close() error
}

type session struct {
	transport    Transport
	lastTimeSent string
}

// Entry is one element of a point-in-time registry snapshot.
type Entry struct {
	ID           string
	Transport    Transport
	LastTimeSent string
}

// Registry maps session ids to live transports.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Register inserts a new session. A duplicate id is an invariant violation
// given per-connection id generation and is reported as an error rather than
// silently overwriting the existing transport.
func (r *Registry) Register(id string, transport Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return ErrDuplicateSession
	}
	r.sessions[id] = &session{transport: transport}
	return nil
}

func (r *Registry) Lookup(id string) (Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.transport, true
}

// UpdateLastSent records the last clock value pushed to a session. Updating
// an absent id is a silent no-op: the session may already have been evicted.
func (r *Registry) UpdateLastSent(id, timestamp string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.lastTimeSent = timestamp
	}
}

// Remove deletes a session. Removing an absent id is a benign no-op, so
// cleanup paths may run more than once.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Snapshot returns a consistent point-in-time copy of all sessions.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, 0, len(r.sessions))
	for id, s := range r.sessions {
		entries = append(entries, Entry{
			ID:           id,
			Transport:    s.transport,
			LastTimeSent: s.lastTimeSent,
		})
	}
	return entries
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
