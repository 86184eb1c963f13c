// Package store persists the diary as a flat mapping of key to text, either
// in a JSON file or in a PostgreSQL table.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/classlog/internal/config"
	"github.com/JonMunkholm/classlog/internal/core"
)

// Backend is a core.Store that holds resources until closed.
type Backend interface {
	core.Store
	Close()
}

// New opens the backend selected by cfg: PostgreSQL when a database URL is
// configured, otherwise the JSON file at cfg.Store.Path.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	if !cfg.UsePostgres() {
		slog.Info("using file store", "path", cfg.Store.Path)
		return NewFileStore(cfg.Store.Path), nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	pg := NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}
