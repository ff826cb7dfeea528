package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-graph/internal/cache"
	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/jwebster45206/story-graph/internal/handlers"
	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/internal/middleware"
	"github.com/jwebster45206/story-graph/internal/services/events"
	"github.com/jwebster45206/story-graph/internal/storage"
	"github.com/jwebster45206/story-graph/pkg/editor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Graph API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"dice_delay", cfg.DiceDelay)

	client, err := storage.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err, "redis_url", cfg.RedisURL)
		os.Exit(1)
	}

	store := storage.NewRedisStorage(client, cfg.DataDir, cfg.SessionTTL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Layouts from a previous build may no longer match this one.
	graphCache := cache.NewRedisCache(store.GetClient(), log)
	if n, err := graphCache.Purge(storageCtx); err != nil {
		log.Warn("Failed to purge graph cache", "error", err)
	} else if n > 0 {
		log.Info("Purged cached graphs", "count", n)
	}
	memo := editor.NewMemo(graphCache, cfg.GraphCacheTTL, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	scenarioHandler := handlers.NewScenarioHandler(log, store)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	graphHandler := handlers.NewGraphHandler(store, memo, log)
	mux.Handle("/v1/graph", graphHandler)

	broadcaster := events.NewBroadcaster(store.GetClient(), log)
	playbackHandler := handlers.NewPlaybackHandler(store, broadcaster, log, cfg.DiceDelay)
	mux.Handle("/v1/playback", playbackHandler)
	mux.Handle("/v1/playback/", playbackHandler)

	eventsHandler := handlers.NewEventsHandler(store.GetClient(), log, handlers.DefaultKeepalive)
	mux.Handle("/v1/events/playback/", eventsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(log)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
