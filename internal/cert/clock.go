package cert

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// SaltSource abstracts proof-salt generation. Fresh salts keep two proofs
// over the same inputs uncorrelated.
type SaltSource interface {
	// Salt returns a fresh random salt as lowercase hex.
	Salt() (string, error)
}

// CryptoSaltSource draws 32-byte salts from crypto/rand.
type CryptoSaltSource struct{}

func (CryptoSaltSource) Salt() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("reading random salt: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
