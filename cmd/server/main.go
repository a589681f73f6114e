// Kalnadai Care - bilingual livestock care assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/config"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/health"
	"github.com/ashureev/kalnadai-care/internal/realtime"
	"github.com/ashureev/kalnadai-care/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "default_language", cfg.DefaultLanguage)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	client, err := advisory.NewOpenAIClient(advisory.ClientConfig{
		APIKey:  cfg.Advisory.APIKey,
		BaseURL: cfg.Advisory.BaseURL,
		Model:   cfg.Advisory.Model,
		Timeout: cfg.Advisory.Timeout,
	})
	if err != nil {
		slog.Error("Failed to initialize advisory client", "error", err)
		os.Exit(1)
	}
	advisor := advisory.NewService(client, logger)
	slog.Info("Advisory client initialized", "model", cfg.Advisory.Model, "base_url", cfg.Advisory.BaseURL)

	conversationLogger, err := conversation.NewConversationLogger(conversation.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	registry := conversation.NewRegistry(conversation.RegistryConfig{
		Advisor: advisor,
		Timeout: cfg.Advisory.Timeout,
		Log:     conversationLogger,
		Logger:  logger,
	})
	hub := realtime.NewHub()

	// Advisory calls can take a while, so no WriteTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, repo, registry, hub),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start sweeper.
	conversation.StartSweeper(ctx, registry, repo, conversation.SweeperConfig{
		Interval: cfg.SweepInterval,
		IdleTTL:  cfg.DeviceTTL,
	}, hub.CloseDevice)

	// Optional gRPC health endpoint.
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			slog.Error("Failed to listen for gRPC health", "addr", cfg.GRPCHealthAddr, "error", err)
			os.Exit(1)
		}
		healthServer := health.NewServer(repo, health.Config{}, logger)
		go func() {
			if err := healthServer.Serve(ctx, lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
