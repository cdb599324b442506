package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gameng/engine/internal/algorithm"
	"github.com/gameng/engine/internal/config"
	"github.com/gameng/engine/internal/engine"
	"github.com/gameng/engine/internal/events"
	"github.com/gameng/engine/internal/httpapi"
	"github.com/gameng/engine/internal/metrics"
	"github.com/gameng/engine/internal/migrate"
	"github.com/gameng/engine/internal/snapshot"
	"github.com/gameng/engine/internal/state"
)

func main() {
	// A local .env is a dev convenience; absence is fine.
	_ = godotenv.Load()

	setupLogging(os.Getenv("LOG_LEVEL"))

	host := os.Getenv("HOST")
	port := envOr("PORT", "8080")
	configPath := envOr("CONFIG_PATH", "config/game.json")
	snapshotDir := envOr("SNAPSHOT_DIR", "snapshots")
	adminKey := os.Getenv("ADMIN_API_KEY")
	defaultInstance := envOr("GAMENG_DEFAULT_INSTANCE", "default")
	snapshotInterval := time.Duration(envInt("SNAPSHOT_INTERVAL_MS", 30000)) * time.Millisecond
	maxIdemEntries := envInt("GAMENG_MAX_IDEMPOTENCY_ENTRIES", state.DefaultMaxIdempotencyEntries)
	e2eMode := os.Getenv("GAMENG_E2E") == "1"

	registry := algorithm.NewRegistry()
	cfg, err := config.Load(configPath, registry)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.Info("config loaded", "gameConfigId", cfg.GameConfigID, "maxLevel", cfg.MaxLevel)

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	snapshots, err := snapshot.NewManager(snapshotDir, m)
	if err != nil {
		log.Fatalf("snapshot dir: %v", err)
	}

	store := state.NewStore(maxIdemEntries)
	restored, err := snapshots.LoadAll()
	if err != nil {
		log.Fatalf("restore: %v", err)
	}
	for _, gs := range restored {
		report := migrate.Run(gs, cfg)
		if len(report) > 0 {
			slog.Warn("snapshot migrated with repairs", "gameInstanceId", gs.GameInstanceID, "repairs", len(report))
		}
		store.Put(gs)
	}
	if store.Len() == 0 {
		store.Put(state.NewGameState(defaultInstance, cfg.GameConfigID))
		slog.Info("created fresh instance", "gameInstanceId", defaultInstance)
	}
	m.SetInstancesOnline(store.Len())

	bus := events.NewBus()
	eng := engine.New(store, cfg, registry, adminKey,
		engine.WithBus(bus), engine.WithMetrics(m))

	api := httpapi.NewServer(eng, promRegistry)
	srv := &http.Server{
		Addr:         host + ":" + port,
		Handler:      api.Router(e2eMode),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	flushCtx, stopFlusher := context.WithCancel(context.Background())
	var flusherDone sync.WaitGroup
	flusherDone.Add(1)
	go func() {
		defer flusherDone.Done()
		snapshots.Run(flushCtx, store, snapshotInterval)
	}()

	shutdown := make(chan struct{})
	var shutdownOnce sync.Once
	api.Shutdown = func() {
		shutdownOnce.Do(func() { close(shutdown) })
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
		case <-shutdown:
		}
		slog.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("http shutdown", "err", err)
		}
	}()

	slog.Info("listening", "addr", srv.Addr, "e2e", e2eMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}

	// Stop the flusher last; cancellation triggers one final flush so no
	// committed state is lost across restarts.
	stopFlusher()
	flusherDone.Wait()
	slog.Info("bye")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return n
}
