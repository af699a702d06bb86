package testutil

import (
	"testing"

	"certvault-go/internal/cert"
)

// LedgerFixture bundles a fully wired ledger with the stubs behind it, so
// tests can advance time or inspect the registry directly.
type LedgerFixture struct {
	Ledger   *cert.Ledger
	Engine   *cert.ProofEngine
	Registry *MemoryNullifierRegistry
	Clock    *StubClock
	Salts    *StubSaltSource
}

// NewLedgerFixture wires a ledger over an in-memory SQLite store with
// deterministic clock, id, and salt sources.
func NewLedgerFixture(t *testing.T) *LedgerFixture {
	t.Helper()

	store := NewTestStore(t)
	registry := NewMemoryNullifierRegistry()
	clock := FixedClock()
	salts := NewStubSaltSource()

	engine := cert.NewProofEngine(registry, clock, salts, cert.NewNopLogger())
	ledger := cert.NewLedger(store, engine, cert.NewNopLogger(), clock, NewStubIDGenerator())

	return &LedgerFixture{
		Ledger:   ledger,
		Engine:   engine,
		Registry: registry,
		Clock:    clock,
		Salts:    salts,
	}
}
