package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tickstream/tickstream/internal/registry"
	"github.com/tickstream/tickstream/pkg/presence"
	"github.com/tickstream/tickstream/pkg/protocol"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
	fail bool
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("transport dead")
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickPushesTime(t *testing.T) {
	reg := registry.New()
	store := presence.NewMemoryStore()
	ctx := context.Background()

	tr := &fakeTransport{}
	reg.Register("c1", tr)
	store.Upsert(ctx, "c1", "user_c1")

	b := New(reg, store, nil, time.Second, testLogger())
	b.tick(ctx, "2026-08-31 12:00:00")

	if tr.sendCount() != 1 {
		t.Fatalf("expected 1 push, got %d", tr.sendCount())
	}
	var msg protocol.TimeUpdate
	if err := json.Unmarshal(tr.sent[0], &msg); err != nil {
		t.Fatalf("push is not valid JSON: %v", err)
	}
	if msg.Type != protocol.TypeTimeUpdate || msg.Time != "2026-08-31 12:00:00" {
		t.Fatalf("unexpected push: %+v", msg)
	}
}

func TestTickDeduplicatesUnchangedTime(t *testing.T) {
	reg := registry.New()
	store := presence.NewMemoryStore()
	ctx := context.Background()

	tr := &fakeTransport{}
	reg.Register("c1", tr)
	store.Upsert(ctx, "c1", "user_c1")

	b := New(reg, store, nil, time.Second, testLogger())
	b.tick(ctx, "2026-08-31 12:00:00")
	b.tick(ctx, "2026-08-31 12:00:00")

	if tr.sendCount() != 1 {
		t.Fatalf("expected 1 push for unchanged time, got %d", tr.sendCount())
	}

	b.tick(ctx, "2026-08-31 12:00:01")
	if tr.sendCount() != 2 {
		t.Fatalf("expected 2 pushes after clock advanced, got %d", tr.sendCount())
	}
}

func TestTickEvictsDeadTransport(t *testing.T) {
	reg := registry.New()
	store := presence.NewMemoryStore()
	ctx := context.Background()

	dead := &fakeTransport{fail: true}
	alive := &fakeTransport{}
	reg.Register("dead", dead)
	reg.Register("alive", alive)
	store.Upsert(ctx, "dead", "dead-user")
	store.Upsert(ctx, "alive", "alive-user")

	b := New(reg, store, nil, time.Second, testLogger())
	b.tick(ctx, "2026-08-31 12:00:00")

	snap := reg.Snapshot()
	if len(snap) != 1 || snap[0].ID != "alive" {
		t.Fatalf("expected only the live session to remain, got %+v", snap)
	}

	all, _ := store.ListAll(ctx)
	for _, rec := range all {
		if rec.ID == "dead" {
			if rec.Online {
				t.Error("evicted session's record should be offline")
			}
			if rec.DisconnectedAt == nil {
				t.Error("evicted session's record must have DisconnectedAt")
			}
		}
		if rec.ID == "alive" && !rec.Online {
			t.Error("live session's record must stay online")
		}
	}
}

func TestTickRefreshesActivityOnPush(t *testing.T) {
	reg := registry.New()
	store := presence.NewMemoryStore()
	ctx := context.Background()

	tr := &fakeTransport{}
	reg.Register("c1", tr)
	store.Upsert(ctx, "c1", "user_c1")
	before, _ := store.ListAll(ctx)

	time.Sleep(5 * time.Millisecond)
	b := New(reg, store, nil, time.Second, testLogger())
	b.tick(ctx, "2026-08-31 12:00:00")

	after, _ := store.ListAll(ctx)
	if !after[0].LastActive.After(before[0].LastActive) {
		t.Fatal("successful push must refresh LastActive")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := registry.New()
	store := presence.NewMemoryStore()

	b := New(reg, store, nil, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast loop did not stop after cancellation")
	}
}
