package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/illegalcall/fittrack/internal/admin"
	"github.com/illegalcall/fittrack/internal/api"
	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/avatar"
	"github.com/illegalcall/fittrack/internal/config"
	"github.com/illegalcall/fittrack/internal/events"
	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/pkg/supabase"
	"github.com/illegalcall/fittrack/internal/profile"
	"github.com/illegalcall/fittrack/internal/repcount"
	"github.com/illegalcall/fittrack/internal/sessionlog"
	"github.com/illegalcall/fittrack/internal/tips"
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
	setupLogger(cfg)

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

	provider, err := newIdentityProvider(cfg)
	if err != nil {
		slog.Error("Failed to initialize identity provider", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer
	var publisher events.Publisher = events.Discard{}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		kafkaPublisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.BufferSize)
		publisher = kafkaPublisher
		slog.Info("✅ Connected to Kafka")
	}

	persistence := auth.NewPersistence(auth.NewRedisSessionStore(db.Redis, cfg.Redis.SessionTTL))
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	facade := auth.NewFacade(provider, db.Stores.Profiles, persistence, tokens, cfg.Server.DefaultAvatar)
	unsubscribe := facade.Subscribe(ctx, "", events.AuthObserver(publisher))
	defer unsubscribe()

	avatars, err := avatar.NewLocalStore(cfg.Storage.AvatarDir, cfg.Storage.AvatarPrefix, cfg.Storage.MaxSize)
	if err != nil {
		slog.Error("Failed to initialize avatar storage", "error", err)
		os.Exit(1)
	}

	repStore := repcount.StateStore(repcount.NewRedisStore(db.Redis, cfg.Redis.SessionTTL))
	if !persistence.Durable(ctx) {
		repStore = repcount.NewMemoryStore()
	}

	// Create and start server
	server := api.NewServer(cfg, api.Deps{
		Auth:        facade,
		Persistence: persistence,
		Profiles:    profile.NewService(db.Stores.Profiles, provider, publisher),
		Sessions:    sessionlog.New(db.Stores.Sessions, publisher),
		Feed:        tips.NewFeed(db.Stores.Tips),
		Admin:       admin.NewConsole(db.Stores.Profiles, db.Stores.Tips, publisher),
		Avatars:     avatars,
		Resolver:    avatar.NewResolver(cfg.Server.DefaultAvatar, cfg.Storage.VerifyAvatars, cfg.Identity.Timeout),
		Reps:        repcount.NewCounter(repStore),
	})

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("🚀 Server running", "port", cfg.Server.Port)
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	case <-ctx.Done():
	}

	slog.Info("🛑 Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(shutdownCtx); err != nil {
			slog.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

func newIdentityProvider(cfg *config.Config) (identity.Provider, error) {
	switch cfg.Identity.Provider {
	case config.ProviderMemory:
		slog.Warn("Using in-memory identity provider; accounts are lost on restart")
		return identity.NewMemoryProvider(), nil
	default:
		p := supabase.NewProvider(cfg.Identity.SupabaseURL, cfg.Identity.SupabaseKey, cfg.Identity.Timeout)
		if err := p.Ping(); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
