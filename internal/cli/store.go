package cli

import (
	"context"
	"fmt"

	"waffle-pos-backend/internal/config"
	"waffle-pos-backend/internal/database"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/repository"
	"waffle-pos-backend/internal/repository/firestore"
	"waffle-pos-backend/internal/repository/memory"
	"waffle-pos-backend/internal/repository/postgres"
)

// openStore builds the repositories for the configured backend. Postgres is
// migrated on open.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	case config.BackendPostgres:
		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case config.BackendFirestore:
		return firestore.NewStore(ctx, cfg.Storage.FirestoreProject)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func closeStore(store *repository.Store) {
	if store.Close == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}
}
