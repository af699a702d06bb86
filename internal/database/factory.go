package database

import (
	"fmt"
	"path/filepath"

	"certvault-go/internal/cert"
	"certvault-go/internal/config"
)

// NewStoreFromConfig creates the ledger store and nullifier registry from
// the database config. Both share one connection; the registry's table
// carries no references into ledger state.
func NewStoreFromConfig(cfg config.DatabaseConfig, nodeID string) (cert.Store, cert.NullifierRegistry, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, nil, fmt.Errorf("data_dir required for sqlite database")
		}
		path = filepath.Join(cfg.DataDir, nodeID+".db")
	case "memory":
		path = ":memory:"
	default:
		return nil, nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	store, err := NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	return store, NewSQLiteNullifierRegistry(store.DB()), nil
}
