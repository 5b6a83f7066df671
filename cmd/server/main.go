package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/steamdash/internal/achievements"
	"github.com/steamdash/internal/cache"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/events"
	"github.com/steamdash/internal/gateway"
	"github.com/steamdash/internal/handler"
	"github.com/steamdash/internal/library"
	"github.com/steamdash/internal/resolver"
	"github.com/steamdash/internal/steam"
	"github.com/steamdash/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	if cfg.Steam.APIKey == "" {
		logger.Error("no Steam API key configured (steam.api_key or STEAM_API_KEY)")
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize Redis cache tier
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	kv, err := cache.NewStore(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL document tier
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	docs, err := store.NewStore(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer docs.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := docs.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize sync-event publisher
	var publisher events.Publisher = events.NewNoop()
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka publisher",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaPublisher, err := events.NewKafkaPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka publisher, continuing without events", "error", err)
		} else {
			publisher = kafkaPublisher
		}
	}
	defer publisher.Close()

	// Initialize the sync pipeline, leaf to root
	gw := gateway.New(&cfg.Gateway, logger)
	client := steam.NewClient(&cfg.Steam, gw, logger)
	detailResolver := resolver.New(kv, client, &cfg.Sync, logger)
	achievementSyncer := achievements.New(kv, docs, client, publisher, &cfg.Sync, logger)
	orchestrator := library.New(kv, docs, detailResolver, achievementSyncer, client, publisher, cfg, logger)

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(orchestrator, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
