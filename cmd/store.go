package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/meridian-cre/riskindex-cli/internal/store"
)

// initStore opens the store backend named by store.driver. Callers own the
// returned store and must Close it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
		})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Store.Driver)
	}
}
