package testutil

import (
	"testing"

	"certvault-go/internal/cert"
	"certvault-go/internal/database"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) cert.Store {
	t.Helper()
	store, _ := newTestDB(t)
	return store
}

// NewTestStoreAndRegistry creates an in-memory store and a nullifier
// registry sharing its connection, mirroring the production wiring.
func NewTestStoreAndRegistry(t *testing.T) (cert.Store, cert.NullifierRegistry) {
	t.Helper()
	store, registry := newTestDB(t)
	return store, registry
}

func newTestDB(t *testing.T) (*database.SQLiteStore, *database.SQLiteNullifierRegistry) {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB)
	t.Cleanup(func() {
		store.Close()
	})

	return store, database.NewSQLiteNullifierRegistry(sqlDB)
}
