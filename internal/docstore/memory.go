// Package docstore implements the content-addressed document vault
// backends.
package docstore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"certvault-go/internal/cert"
)

// MemoryVault is an in-memory implementation of the DocumentVault
// interface, useful for testing. Safe for concurrent use.
type MemoryVault struct {
	name    string
	content map[string][]byte // locator -> content
	mu      sync.RWMutex
}

var _ cert.DocumentVault = (*MemoryVault)(nil)

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

// Put stores content under the locator. Idempotent.
func (m *MemoryVault) Put(locator string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[locator] = data
	return nil
}

// Get retrieves content by locator.
func (m *MemoryVault) Get(locator string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[locator]
	if !ok {
		return fmt.Errorf("content not found: %s", locator)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// Exists reports whether content is present for the locator.
func (m *MemoryVault) Exists(locator string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.content[locator]
	return ok, nil
}

// ValidateSetup always succeeds for the in-memory vault.
func (m *MemoryVault) ValidateSetup() error { return nil }
