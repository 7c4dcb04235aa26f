package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tickstream/tickstream/internal/broadcast"
	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/internal/registry"
	"github.com/tickstream/tickstream/internal/server"
	"github.com/tickstream/tickstream/internal/sweep"
	"github.com/tickstream/tickstream/pkg/config"
	"github.com/tickstream/tickstream/pkg/presence"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))

	store, err := presence.NewStore(cfg.Presence)
	if err != nil {
		logger.Error("failed to open presence store", "error", err)
		os.Exit(1)
	}

	var feed events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled() {
		feed = events.NewKafkaPublisher(cfg.Events.Kafka, logger.With("component", "events"))
	}

	reg := registry.New()
	srv := server.New(cfg.Server.Host, cfg.Server.Port, reg, store, feed, logger.With("component", "server"))
	broadcaster := broadcast.New(reg, store, feed, cfg.Broadcast.Interval(), logger.With("component", "broadcast"))
	sweeper := sweep.New(store, feed, cfg.Sweep.Interval(), cfg.Sweep.Threshold(), logger.With("component", "sweep"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	logger.Info("tickstream server started", "config", configPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)

	if err := feed.Close(); err != nil {
		logger.Warn("presence feed close failed", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Warn("presence store close failed", "error", err)
	}

	logger.Info("tickstream server stopped")
}
