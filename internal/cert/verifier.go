package cert

import (
	"encoding/json"

	"certvault-go/internal/model"
)

// Verifier is the public verification entry point. It parses serialized
// proofs and delegates to the ledger, which composes the record lookup, the
// proof protocol, and the nullifier check into one decision. Ledger-level
// failures (not found, revoked, suspended) short-circuit before the proof
// engine runs, so a nullifier is never burned on an attempt that fails for
// unrelated reasons.
type Verifier struct {
	ledger *Ledger
	logger Logger
}

// NewVerifier creates a Verifier over the given ledger.
func NewVerifier(ledger *Ledger, logger Logger) *Verifier {
	return &Verifier{ledger: ledger, logger: logger}
}

// Verify runs a verification attempt with an in-memory proof.
func (v *Verifier) Verify(fingerprint string, proof *model.SimulatedProof, verifierID string, requireProof bool) (*VerifyResult, error) {
	return v.ledger.Verify(fingerprint, proof, verifierID, VerifyOptions{RequireProof: requireProof})
}

// VerifySerialized runs a verification attempt with a JSON-serialized proof.
// An empty payload means no proof was presented. A payload that does not
// parse is treated as a missing proof; the attempt is still audit-logged
// like any other.
func (v *Verifier) VerifySerialized(fingerprint string, serializedProof []byte, verifierID string, requireProof bool) (*VerifyResult, error) {
	var proof *model.SimulatedProof
	if len(serializedProof) > 0 {
		var p model.SimulatedProof
		if err := json.Unmarshal(serializedProof, &p); err != nil {
			v.logger.Warn("presented proof does not parse", "fingerprint", fingerprint, "error", err)
		} else {
			proof = &p
		}
	}
	return v.Verify(fingerprint, proof, verifierID, requireProof)
}
