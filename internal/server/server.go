// Package server accepts WebSocket connections and runs the per-connection
// lifecycle: register in the session registry, persist presence, serve
// requests until the transport closes, then clean up unconditionally.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/internal/registry"
	"github.com/tickstream/tickstream/pkg/presence"
)

type Server struct {
	addr       string
	registry   *registry.Registry
	store      presence.Store
	feed       events.Publisher
	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *slog.Logger
}

func New(host string, port int, reg *registry.Registry, store presence.Store, feed events.Publisher, logger *slog.Logger) *Server {
	if feed == nil {
		feed = events.NopPublisher{}
	}
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		registry: reg,
		store:    store,
		feed:     feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler serving the WebSocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleConnection)
	return mux
}

// Start serves until ctx is cancelled, then shuts the listener down.
// Established connections drain naturally.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("websocket server starting", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
