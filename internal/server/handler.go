package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/pkg/fib"
	"github.com/tickstream/tickstream/pkg/protocol"
)

// handleConnection drives one connection through its lifecycle:
// accepted -> welcomed -> active -> closed.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	clientID := uuid.New().String()
	username := "user_" + clientID[:8]
	transport := newWSTransport(conn)

	// Register and persist before any further I/O. A duplicate id means the
	// generation invariant broke; isolate the fault to this connection.
	if err := s.registry.Register(clientID, transport); err != nil {
		s.logger.Error("session registration failed", "client_id", clientID, "error", err)
		conn.Close()
		return
	}

	// Cleanup is unconditional and idempotent, and must run even when the
	// welcome phase is never reached.
	defer func() {
		s.registry.Remove(clientID)
		if err := s.store.MarkOffline(context.Background(), clientID); err != nil {
			s.logger.Warn("mark offline failed", "client_id", clientID, "error", err)
		}
		if err := s.feed.Publish(context.Background(), events.Event{
			ClientID:  clientID,
			Type:      events.TypeDisconnected,
			Username:  username,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			s.logger.Warn("presence event publish failed", "client_id", clientID, "error", err)
		}
		transport.Close()
		s.logger.Info("client disconnected", "client_id", clientID)
	}()

	if err := s.store.Upsert(ctx, clientID, username); err != nil {
		// Presence persistence is a soft failure: the connection still works.
		s.logger.Warn("presence upsert failed", "client_id", clientID, "error", err)
	}
	if err := s.feed.Publish(ctx, events.Event{
		ClientID:  clientID,
		Type:      events.TypeConnected,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("presence event publish failed", "client_id", clientID, "error", err)
	}

	s.logger.Info("client connected", "client_id", clientID, "remote_addr", r.RemoteAddr)

	if err := s.welcome(clientID, transport); err != nil {
		s.logger.Warn("welcome failed", "client_id", clientID, "error", err)
		return
	}

	s.receiveLoop(ctx, clientID, transport, conn)
}

// welcome sends the greeting and the initial clock snapshot.
func (s *Server) welcome(clientID string, transport *wsTransport) error {
	greeting := protocol.NewWelcome(
		fmt.Sprintf("Welcome to the tickstream server! Your ID is %s", clientID),
		clientID,
	)
	if err := s.send(transport, greeting); err != nil {
		return err
	}

	now := time.Now().Format(protocol.TimeFormat)
	if err := s.send(transport, protocol.NewTimeUpdate(now)); err != nil {
		return err
	}
	s.registry.UpdateLastSent(clientID, now)
	return nil
}

// receiveLoop processes inbound frames in arrival order until the transport
// closes or errors.
func (s *Server) receiveLoop(ctx context.Context, clientID string, transport *wsTransport, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("ws read error", "client_id", clientID, "error", err)
			}
			return
		}

		req, err := protocol.DecodeRequest(payload)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				s.sendError(clientID, transport, "invalid message format")
			} else {
				s.sendError(clientID, transport, err.Error())
			}
			continue
		}

		// Any successfully parsed message counts as activity.
		if err := s.store.TouchActivity(ctx, clientID); err != nil {
			s.logger.Warn("touch activity failed", "client_id", clientID, "error", err)
		}

		s.dispatch(ctx, clientID, transport, req)
	}
}

func (s *Server) dispatch(ctx context.Context, clientID string, transport *wsTransport, req protocol.Request) {
	switch req.Kind {
	case protocol.KindFibonacci:
		s.handleFibonacci(clientID, transport, req.N)
	case protocol.KindUpdateUsername:
		s.handleUpdateUsername(ctx, clientID, transport, req.Username)
	case protocol.KindListUsers:
		s.handleListUsers(ctx, clientID, transport)
	case protocol.KindUnknown:
		// Best-effort semantics: unknown request kinds get no response.
	}
}

func (s *Server) handleFibonacci(clientID string, transport *wsTransport, n int) {
	result, err := fib.Compute(n)
	if err != nil {
		s.sendError(clientID, transport, fmt.Sprintf("fibonacci error: %v", err))
		return
	}
	s.logger.Debug("fibonacci computed", "client_id", clientID, "n", n, "result", result)
	s.sendReply(clientID, transport, protocol.NewFibonacciResult(n, result))
}

func (s *Server) handleUpdateUsername(ctx context.Context, clientID string, transport *wsTransport, username string) {
	name, err := s.store.Rename(ctx, clientID, username)
	if err != nil {
		// The session has desynchronized from the store; report and carry on.
		s.logger.Warn("rename failed", "client_id", clientID, "error", err)
		s.sendError(clientID, transport, "failed to update username")
		return
	}
	s.logger.Info("username updated", "client_id", clientID, "username", name)
	s.sendReply(clientID, transport, protocol.NewUsernameUpdated(name))
}

func (s *Server) handleListUsers(ctx context.Context, clientID string, transport *wsTransport) {
	records, err := s.store.ListOnline(ctx)
	if err != nil {
		s.logger.Warn("list online failed", "client_id", clientID, "error", err)
		records = nil
	}

	now := time.Now().UTC()
	users := make([]protocol.UserEntry, 0, len(records))
	for _, rec := range records {
		onlineTime := "unknown"
		if !rec.ConnectedAt.IsZero() {
			onlineTime = protocol.FormatOnlineTime(now.Sub(rec.ConnectedAt))
		}
		users = append(users, protocol.UserEntry{
			Username:   rec.Username,
			OnlineTime: onlineTime,
		})
	}
	s.sendReply(clientID, transport, protocol.NewUsersList(users))
}

func (s *Server) send(transport *wsTransport, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return transport.Send(data)
}

func (s *Server) sendReply(clientID string, transport *wsTransport, v any) {
	if err := s.send(transport, v); err != nil {
		s.logger.Warn("ws write failed", "client_id", clientID, "error", err)
	}
}

func (s *Server) sendError(clientID string, transport *wsTransport, message string) {
	s.sendReply(clientID, transport, protocol.NewError(message))
}
