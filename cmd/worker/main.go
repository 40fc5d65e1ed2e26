package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/illegalcall/fittrack/internal/config"
	"github.com/illegalcall/fittrack/internal/worker"
	"github.com/illegalcall/fittrack/pkg/database"
	"github.com/illegalcall/fittrack/pkg/kafka"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database clients
	db, err := database.NewClients(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("✅ Connected to databases", "driver", cfg.Database.Driver)

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(cfg.Kafka)
	if err != nil {
		slog.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()
	slog.Info("✅ Connected to Kafka")

	// Create and start worker
	w := worker.NewWorker(cfg, db.Stores.Audit, consumer)
	if err := w.Start(ctx); err != nil {
		slog.Error("Worker error", "error", err)
		os.Exit(1)
	}
}
