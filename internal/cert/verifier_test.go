package cert_test

import (
	"encoding/json"
	"errors"
	"testing"

	"certvault-go/internal/cert"
	"certvault-go/internal/testutil"
)

func TestVerifier_VerifySerialized(t *testing.T) {
	t.Run("accepts a serialized proof", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")

		raw, err := json.Marshal(proof)
		if err != nil {
			t.Fatalf("marshaling proof: %v", err)
		}

		verifier := cert.NewVerifier(f.Ledger, cert.NewNopLogger())
		result, err := verifier.VerifySerialized(cert.HashString("diploma for alice"), raw, "verifier-1", true)
		if err != nil {
			t.Fatalf("VerifySerialized() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("VerifySerialized() invalid: %s", result.Message)
		}
	})

	t.Run("treats an unparsable payload as a missing proof", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")

		verifier := cert.NewVerifier(f.Ledger, cert.NewNopLogger())
		result, err := verifier.VerifySerialized(cert.HashString("diploma for alice"), []byte("not json"), "verifier-1", true)
		if err != nil {
			t.Fatalf("VerifySerialized() error = %v", err)
		}
		if result.Valid {
			t.Fatal("VerifySerialized() valid with garbage payload")
		}
		if !errors.Is(result.Err, cert.ErrProofStructureInvalid) {
			t.Errorf("result.Err = %v, want ErrProofStructureInvalid", result.Err)
		}

		// The attempt is on the chain like any other.
		blocks, err := f.Ledger.GetAllBlocks()
		if err != nil {
			t.Fatalf("GetAllBlocks() error = %v", err)
		}
		if len(blocks) != 2 {
			t.Errorf("block count = %d, want 2", len(blocks))
		}
	})

	t.Run("a not-found attempt does not burn the nullifier", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		fingerprint := cert.HashString("diploma for alice")

		proof, err := f.Engine.Generate(cert.ProofRequest{
			DocumentFingerprint: fingerprint,
			HolderID:            "holder-1",
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		verifier := cert.NewVerifier(f.Ledger, cert.NewNopLogger())

		// Verify before issuance: fails at the ledger, before the proof
		// protocol runs.
		result, err := verifier.Verify(fingerprint, proof, "verifier-1", true)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid || !errors.Is(result.Err, cert.ErrNotFound) {
			t.Fatalf("result = %+v, want not-found rejection", result)
		}

		// Issue and retry with the same proof: the nullifier was never
		// consumed, so the proof still verifies.
		if _, err := f.Ledger.Issue(cert.IssueParams{
			DocumentFingerprint: fingerprint,
			Proof:               proof,
			Issuer:              "issuer-1",
			Holder:              "holder-1",
		}); err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		result, err = verifier.Verify(fingerprint, proof, "verifier-1", true)
		if err != nil {
			t.Fatalf("retry Verify() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("retry Verify() invalid: %s", result.Message)
		}
	})
}
