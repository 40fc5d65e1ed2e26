package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/fittrack/internal/config"
	"github.com/illegalcall/fittrack/internal/storage"
	"github.com/illegalcall/fittrack/internal/storage/memory"
	"github.com/illegalcall/fittrack/internal/storage/postgres"
)

// Clients holds the backing connections. DB is nil with the memory driver.
type Clients struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	Stores storage.Stores
}

// NewClients opens the document database selected by cfg and a Redis client.
// Redis is not pinged here; session persistence decides on first use whether
// it is reachable.
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	c := &Clients{
		Redis: NewRedis(cfg.Redis),
	}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		slog.Warn("Using in-memory document store; data is lost on restart")
		c.Stores = memory.New()
	default:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
		if err != nil {
			c.Redis.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			c.Redis.Close()
			return nil, err
		}
		slog.Info("Database schema is ready")
		c.DB = db
		c.Stores = postgres.New(db)
	}
	return c, nil
}

// NewRedis builds a client from cfg without contacting the server.
func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (c *Clients) Close() error {
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if err := c.Redis.Close(); err != nil {
		return err
	}
	return dbErr
}
