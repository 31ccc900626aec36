// Package main is the entry point for the lodging desk server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/broker"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/cache"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/storage"
	"github.com/MRamiBalles/LodgingDesk/server/internal/network"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/config"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/metrics"
	"github.com/MRamiBalles/LodgingDesk/server/internal/snapshot"
)

// openStore selects the snapshot backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (storage.SnapshotStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		appLogger.Info("Initializing SQLite database '" + cfg.SQLitePath + "'...")
		db, err := storage.InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteSnapshotStore(db), func() { db.Close() }, nil
	case config.DriverPostgres:
		appLogger.Info("Connecting to PostgreSQL...")
		db, err := storage.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgresSnapshotStore(db), func() { db.Close() }, nil
	case config.DriverRedis:
		appLogger.Info("Connecting to Redis at " + cfg.RedisAddr + "...")
		rdb, err := cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisSnapshotStore(cache.NewGoRedisClient(rdb), cfg.RedisPrefix), func() { rdb.Close() }, nil
	case config.DriverMemory:
		appLogger.Warn("Using in-memory snapshot store; nothing survives a restart")
		return storage.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func main() {
	log.Println("[LODGING-SERVER] Initializing lodging desk server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration: " + err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open snapshot store: " + err.Error())
		os.Exit(1)
	}
	defer closeStore()

	appLogger.Info("Loading occupancy snapshot...")
	initial, err := snapshot.Load(ctx, store)
	if err != nil {
		appLogger.Error("Failed to load snapshot: " + err.Error())
		os.Exit(1)
	}
	appLogger.Info(fmt.Sprintf("Loaded %d rooms and %d lecturers", len(initial.Rooms), len(initial.Lecturers)))

	collector := metrics.Get()

	mirror := snapshot.NewMirror(store, appLogger,
		snapshot.WithRetries(cfg.SaveRetries),
		snapshot.WithBackoff(cfg.SaveBackoff),
		snapshot.WithMirrorMetrics(collector),
	)
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	mirrorDone := make(chan struct{})
	go func() {
		defer close(mirrorDone)
		mirror.Run(mirrorCtx)
	}()

	appLogger.Info("Bootstrapping change feed and store...")
	eventLog := events.NewEventLog(cfg.FeedCapacity)
	desk := engine.NewStore(initial, eventLog, appLogger,
		engine.WithPersister(mirror),
		engine.WithMetrics(collector),
	)

	ticker := engine.NewTicker(desk, eventLog, appLogger, cfg.RefreshInterval)
	go ticker.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(desk, cfg.NoticeTTL, cfg.ClientSendBuffer, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog, network.DefaultPollInterval)

	if cfg.NATSURL != "" {
		nb, err := broker.Connect(cfg.NATSURL)
		if err != nil {
			appLogger.Warn("NATS relay disabled: " + err.Error())
		} else {
			defer nb.Close()
			go broker.NewRelay(nb, eventLog, appLogger, 0).Run(ctx)
		}
	}

	api := network.NewAPI(hub, eventLog, appLogger)
	router := api.Router(func(r *mux.Router) {
		r.HandleFunc("/metrics", collector.Handler()).Methods("GET")
		r.HandleFunc("/metrics/prometheus", collector.PrometheusHandler()).Methods("GET")
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[LODGING-SERVER] HTTP API & WS Server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[LODGING-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[LODGING-SERVER] Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown: " + err.Error())
	}
	cancel()

	// WebSocket connections are hijacked, so Shutdown does not wait for them.
	// The hub closes them and refuses further commands before the final flush.
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		appLogger.Warn("WebSocket hub did not stop in time")
	}

	// Stop the worker, then write whatever it had not reached yet.
	stopMirror()
	<-mirrorDone
	if err := mirror.Flush(shutdownCtx); err != nil {
		appLogger.Error("Final snapshot write failed: " + err.Error())
	}

	log.Println("[LODGING-SERVER] Server exited gracefully")
}
