package main

import (
	"context"
	"fmt"

	"defiScope/internal/config"
	"defiScope/internal/storage"
	"defiScope/internal/storage/kv"
	"defiScope/internal/storage/postgres"
)

const kvName = "defiscope"

// openStores builds the typed collections over the configured backend. The
// returned func releases the backend.
func openStores(ctx context.Context, cfg config.Store) (*storage.Stores, func(), error) {
	switch cfg.Backend {
	case config.StoreMemory:
		store := kv.NewMemory()
		return storage.NewStores(store), func() { _ = store.Close() }, nil
	case config.StoreLevelDB:
		store, err := kv.Open(kvName, cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewStores(store), func() { _ = store.Close() }, nil
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return storage.NewStores(store), store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Backend)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
