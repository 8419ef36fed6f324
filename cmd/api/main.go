package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/fractured-truths/internal/config"
	"github.com/jwebster45206/fractured-truths/internal/logger"
	"github.com/jwebster45206/fractured-truths/internal/pipeline"
	"github.com/jwebster45206/fractured-truths/internal/realtime"
	"github.com/jwebster45206/fractured-truths/internal/seed"
	redisstore "github.com/jwebster45206/fractured-truths/internal/storage"
	"github.com/jwebster45206/fractured-truths/internal/telemetry"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Fractured Truths API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"storage_backend", cfg.StorageBackend,
		"broadcast_mode", cfg.BroadcastMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "fractured-truths", cfg.OTelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	m := metrics.NewManager()

	var store storage.Storage
	var redisStore *redisstore.RedisStorage
	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := redisstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error("Invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisStore = redisstore.NewRedisStorage(client, log)
		storageCtx, storageCancel := context.WithTimeout(ctx, 2*time.Minute)
		err = redisStore.WaitForConnection(storageCtx, 10, 2*time.Second)
		storageCancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = redisStore
	default:
		store = storage.NewMemoryStorage()
	}
	log.Info("Storage connection established successfully", "backend", cfg.StorageBackend)

	if cfg.WorldSeed != "" {
		if err := applySeed(ctx, cfg.WorldSeed, store); err != nil {
			log.Error("Failed to seed world", "error", err, "path", cfg.WorldSeed)
			os.Exit(1)
		}
		log.Info("World seeded", "path", cfg.WorldSeed)
	}

	mode, err := realtime.ParseMode(cfg.BroadcastMode)
	if err != nil {
		log.Error("Invalid broadcast mode", "error", err)
		os.Exit(1)
	}
	hub := realtime.NewHub(mode, m, log)
	var broadcaster pipeline.Broadcaster = hub
	if cfg.BroadcastRelay && redisStore != nil {
		relay := realtime.NewRelay(redisStore.Client(), hub, log)
		if err := relay.Start(ctx); err != nil {
			log.Error("Failed to start broadcast relay", "error", err)
			os.Exit(1)
		}
		broadcaster = relay
	}

	llm, err := newLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to configure LLM provider", "error", err)
		os.Exit(1)
	}
	p := newPipeline(cfg, llm, store, broadcaster, m, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, p, store, hub, m, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// WriteTimeout stays unset so /ws and /events can stream.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown waits on open SSE streams and ignores hijacked websockets.
	log.Info("Closing live listeners", "listeners", hub.Count())
	hub.CloseAll()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}

func applySeed(ctx context.Context, path string, store storage.CanonicalStore) error {
	s, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	return s.Apply(ctx, store)
}
