package cert

import "errors"

// Error taxonomy for ledger and proof operations. Callers branch with
// errors.Is; layers above add context with fmt.Errorf("...: %w", err).
var (
	// ErrDuplicateFingerprint is returned when issuance would create a
	// second Active record for the same document fingerprint.
	ErrDuplicateFingerprint = errors.New("an active certificate already exists for this document fingerprint")

	// ErrNotFound is returned for operations on an unknown fingerprint or
	// certificate id.
	ErrNotFound = errors.New("certificate not found")

	// ErrInvalidStateTransition is returned when a status change is not
	// legal from the record's current state.
	ErrInvalidStateTransition = errors.New("invalid certificate state transition")

	// ErrProofStructureInvalid is returned when a proof fails the
	// structural, public-signal, commitment, or disclosure gates.
	ErrProofStructureInvalid = errors.New("proof structure invalid")

	// ErrProofExpired is returned when a proof is outside its validity
	// window. Distinct from structural invalidity.
	ErrProofExpired = errors.New("proof expired")

	// ErrNullifierReused is returned when a proof's nullifier has already
	// been consumed.
	ErrNullifierReused = errors.New("proof nullifier already used")

	// ErrEncoding is returned when a value cannot be serialized for
	// hashing.
	ErrEncoding = errors.New("value cannot be encoded")
)
