package testutil

import "sync"

// MemoryNullifierRegistry is a map-backed nullifier registry for tests.
// TryConsume holds the lock across the membership check and the insert, so
// it is atomic like the real implementation.
type MemoryNullifierRegistry struct {
	mu       sync.Mutex
	consumed map[string]bool

	// FailWith, when set, is returned by every call to simulate a storage
	// fault.
	FailWith error
}

func NewMemoryNullifierRegistry() *MemoryNullifierRegistry {
	return &MemoryNullifierRegistry{consumed: make(map[string]bool)}
}

func (r *MemoryNullifierRegistry) Has(nullifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	return r.consumed[nullifier], nil
}

func (r *MemoryNullifierRegistry) TryConsume(nullifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	if r.consumed[nullifier] {
		return false, nil
	}
	r.consumed[nullifier] = true
	return true, nil
}
