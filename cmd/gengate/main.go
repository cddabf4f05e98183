// Package main is the entry point for the generation gateway server.
// It loads configuration, connects to optional collaborators (history
// database, conversation store, image archive), builds the provider
// factory and router, and starts the HTTP server with graceful
// shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gengate/internal/ai"
	"gengate/internal/config"
	"gengate/internal/convo"
	"gengate/internal/database"
	"gengate/internal/gateway"
	"gengate/internal/handlers"
	"gengate/internal/router"
	"gengate/internal/storage"
	"gengate/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"openai_key", cfg.OpenAIKey != "",
		"gemini_key", cfg.GeminiKey != "",
	)

	// Generation history database (optional).
	var history *store.GenerationStore
	if cfg.DBHost != "" {
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		history = store.NewGenerationStore(db)
	} else {
		slog.Warn("postgres not configured — generation history disabled")
	}

	// Conversation store: Valkey when configured, in-process otherwise.
	var conversations convo.Store
	if cfg.ValkeyHost != "" {
		redisStore, err := convo.Connect(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		conversations = redisStore
	} else {
		slog.Warn("valkey not configured — conversation history kept in memory")
		conversations = convo.NewMemory()
	}

	// S3-compatible archive for generated images (optional).
	archive, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize s3 archive", "error", err)
		os.Exit(1)
	}
	if archive != nil {
		slog.Info("s3 archive connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 archive not configured — generated images are not persisted")
	}

	// One adapter per provider; the factory hands them out by id.
	factory := ai.NewFactory(
		ai.Config{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL},
		ai.Config{APIKey: cfg.GeminiKey, BaseURL: cfg.GeminiBaseURL},
		conversations,
	)

	gw := gateway.New(factory, history, archive)
	r := router.New(handlers.NewGeneration(gw))

	// WriteTimeout must accommodate image generation and edits, which
	// can take minutes upstream.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
