package cert_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"certvault-go/internal/cert"
	"certvault-go/internal/model"
	"certvault-go/internal/testutil"
)

// issueDocument generates a proof for the document and issues a certificate,
// returning the issuance result and the holder's proof.
func issueDocument(t *testing.T, f *testutil.LedgerFixture, doc string) (*cert.IssueResult, *model.SimulatedProof) {
	t.Helper()

	fingerprint := cert.HashString(doc)
	proof, err := f.Engine.Generate(cert.ProofRequest{
		DocumentFingerprint: fingerprint,
		HolderID:            "holder-1",
		Attributes:          map[string]any{"name": "Alice", "ageOver18": true},
		SelectedDisclosures: []string{"ageOver18"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	result, err := f.Ledger.Issue(cert.IssueParams{
		DocumentFingerprint: fingerprint,
		StorageLocator:      fingerprint,
		Proof:               proof,
		Issuer:              "issuer-1",
		Holder:              "holder-1",
		DocumentType:        "diploma",
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return result, proof
}

func TestLedger_Issue(t *testing.T) {
	t.Run("issues an active certificate on block 1", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		result, _ := issueDocument(t, f, "diploma for alice")

		rec := result.Certificate
		if rec.Status != model.StatusActive {
			t.Errorf("Status = %q, want %q", rec.Status, model.StatusActive)
		}
		if result.Block.Number != 1 {
			t.Errorf("Block.Number = %d, want 1", result.Block.Number)
		}
		if rec.BlockNumber != 1 {
			t.Errorf("Certificate.BlockNumber = %d, want 1", rec.BlockNumber)
		}
		if rec.TransactionHash != result.Transaction.Hash {
			t.Error("certificate transaction hash does not match the minted transaction")
		}
		if len(rec.StatusHistory) != 1 {
			t.Fatalf("StatusHistory length = %d, want 1", len(rec.StatusHistory))
		}
		first := rec.StatusHistory[0]
		if first.From != model.StatusNone || first.To != model.StatusActive {
			t.Errorf("first status change = %s -> %s, want none -> active", first.From, first.To)
		}
		if first.Reason != "issued" {
			t.Errorf("first status change reason = %q, want %q", first.Reason, "issued")
		}
	})

	t.Run("records the issuance event", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		result, _ := issueDocument(t, f, "diploma for alice")

		if len(result.Events) != 1 {
			t.Fatalf("Events length = %d, want 1", len(result.Events))
		}
		ev := result.Events[0]
		if ev.Type != model.EventIssued {
			t.Errorf("event type = %q, want %q", ev.Type, model.EventIssued)
		}
		if ev.CertificateID != result.Certificate.ID {
			t.Error("event does not reference the issued certificate")
		}
		if ev.TransactionHash != result.Transaction.Hash {
			t.Error("event does not reference the minted transaction")
		}
	})

	t.Run("rejects a duplicate active fingerprint", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		_, _ = issueDocument(t, f, "diploma for alice")

		fingerprint := cert.HashString("diploma for alice")
		_, err := f.Ledger.Issue(cert.IssueParams{
			DocumentFingerprint: fingerprint,
			Issuer:              "issuer-2",
			Holder:              "holder-2",
		})
		if !errors.Is(err, cert.ErrDuplicateFingerprint) {
			t.Fatalf("Issue() error = %v, want ErrDuplicateFingerprint", err)
		}
	})

	t.Run("allows re-issuance after revocation", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		_, _ = issueDocument(t, f, "diploma for alice")
		if _, err := f.Ledger.Revoke(cert.HashString("diploma for alice"), "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		result, _ := issueDocument(t, f, "diploma for alice")
		if result.Certificate.Status != model.StatusActive {
			t.Errorf("re-issued Status = %q, want active", result.Certificate.Status)
		}

		all, err := f.Ledger.GetAllCertificates()
		if err != nil {
			t.Fatalf("GetAllCertificates() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("certificate count = %d, want 2 (revoked record stays on the ledger)", len(all))
		}
	})

	t.Run("requires a fingerprint", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		if _, err := f.Ledger.Issue(cert.IssueParams{}); err == nil {
			t.Error("Issue() expected error for empty fingerprint")
		}
	})
}

func TestLedger_Verify(t *testing.T) {
	requireProof := cert.VerifyOptions{RequireProof: true}
	hashOnly := cert.VerifyOptions{}

	t.Run("accepts a valid proof", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")

		result, err := f.Ledger.Verify(cert.HashString("diploma for alice"), proof, "verifier-1", requireProof)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("Verify() invalid: %s", result.Message)
		}
		if len(result.Disclosures) != 1 || result.Disclosures[0].Key != "ageOver18" {
			t.Errorf("Disclosures = %v, want the ageOver18 disclosure", result.Disclosures)
		}
		if result.Transaction.Status != model.TxSuccess {
			t.Errorf("transaction status = %q, want %q", result.Transaction.Status, model.TxSuccess)
		}
	})

	t.Run("rejects a replayed proof", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if result, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", requireProof); err != nil || !result.Valid {
			t.Fatalf("first Verify() = (%v, %v), want valid", result, err)
		}

		result, err := f.Ledger.Verify(fingerprint, proof, "verifier-2", requireProof)
		if err != nil {
			t.Fatalf("second Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("second Verify() valid, want replay rejection")
		}
		if !errors.Is(result.Err, cert.ErrNullifierReused) {
			t.Errorf("result.Err = %v, want ErrNullifierReused", result.Err)
		}
		if result.Transaction.Status != model.TxFailed {
			t.Errorf("transaction status = %q, want %q", result.Transaction.Status, model.TxFailed)
		}
	})

	t.Run("rejects an expired proof", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")

		f.Clock.Advance(25 * time.Hour)

		result, err := f.Ledger.Verify(cert.HashString("diploma for alice"), proof, "verifier-1", requireProof)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("Verify() valid, want expiry rejection")
		}
		if !errors.Is(result.Err, cert.ErrProofExpired) {
			t.Errorf("result.Err = %v, want ErrProofExpired", result.Err)
		}
	})

	t.Run("reports revoked certificates", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		result, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", requireProof)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("Verify() valid for revoked certificate")
		}
		if !strings.Contains(result.Message, "revoked") {
			t.Errorf("Message = %q, want mention of revocation", result.Message)
		}
	})

	t.Run("reports suspended certificates", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Suspend(fingerprint, "issuer-1", "audit"); err != nil {
			t.Fatalf("Suspend() error = %v", err)
		}

		result, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", requireProof)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("Verify() valid for suspended certificate")
		}
		if !strings.Contains(result.Message, "suspended") {
			t.Errorf("Message = %q, want mention of suspension", result.Message)
		}
	})

	t.Run("audits unknown fingerprints", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		result, err := f.Ledger.Verify(cert.HashString("never issued"), nil, "verifier-1", requireProof)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("Verify() valid for unknown fingerprint")
		}
		if !errors.Is(result.Err, cert.ErrNotFound) {
			t.Errorf("result.Err = %v, want ErrNotFound", result.Err)
		}

		// The failed attempt is still on the chain.
		blocks, err := f.Ledger.GetAllBlocks()
		if err != nil {
			t.Fatalf("GetAllBlocks() error = %v", err)
		}
		if len(blocks) != 1 {
			t.Errorf("block count = %d, want 1 (failed attempts are audited)", len(blocks))
		}
	})

	t.Run("matches proof fingerprints in hash-only mode", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")

		result, err := f.Ledger.Verify(cert.HashString("diploma for alice"), proof, "verifier-1", hashOnly)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("Verify() invalid: %s", result.Message)
		}

		// Hash-only mode never touches the nullifier, so the same proof
		// verifies again.
		result, err = f.Ledger.Verify(cert.HashString("diploma for alice"), proof, "verifier-1", hashOnly)
		if err != nil {
			t.Fatalf("repeat Verify() error = %v", err)
		}
		if !result.Valid {
			t.Errorf("repeat Verify() invalid: %s", result.Message)
		}
	})

	t.Run("rejects mismatched proof fingerprints in hash-only mode", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")

		tampered := *proof
		tampered.Commitment = cert.HashString("tampered")

		result, err := f.Ledger.Verify(cert.HashString("diploma for alice"), &tampered, "verifier-1", hashOnly)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if result.Valid {
			t.Fatal("Verify() valid for tampered proof")
		}
	})

	t.Run("accepts an active certificate with no proof in hash-only mode", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")

		result, err := f.Ledger.Verify(cert.HashString("diploma for alice"), nil, "verifier-1", hashOnly)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("Verify() invalid: %s", result.Message)
		}
	})
}

func TestLedger_Transitions(t *testing.T) {
	t.Run("revoke appends to the status history", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		result, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud")
		if err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if !result.Success {
			t.Fatalf("Revoke() rejected: %s", result.Message)
		}
		if result.Message != "certificate revoked" {
			t.Errorf("Message = %q, want %q", result.Message, "certificate revoked")
		}
		if result.Block.Number != 2 {
			t.Errorf("Block.Number = %d, want 2", result.Block.Number)
		}

		rec := result.Certificate
		if rec.Status != model.StatusRevoked {
			t.Errorf("Status = %q, want revoked", rec.Status)
		}
		if len(rec.StatusHistory) != 2 {
			t.Fatalf("StatusHistory length = %d, want 2", len(rec.StatusHistory))
		}
		last := rec.StatusHistory[1]
		if last.From != model.StatusActive || last.To != model.StatusRevoked {
			t.Errorf("last status change = %s -> %s, want active -> revoked", last.From, last.To)
		}
		if last.Reason != "fraud" {
			t.Errorf("last status change reason = %q, want %q", last.Reason, "fraud")
		}
	})

	t.Run("suspend then reinstate returns to active", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if result, err := f.Ledger.Suspend(fingerprint, "issuer-1", "audit"); err != nil || !result.Success {
			t.Fatalf("Suspend() = (%v, %v), want success", result, err)
		}

		result, err := f.Ledger.Reinstate(fingerprint, "issuer-1", "audit cleared")
		if err != nil {
			t.Fatalf("Reinstate() error = %v", err)
		}
		if !result.Success {
			t.Fatalf("Reinstate() rejected: %s", result.Message)
		}
		if result.Certificate.Status != model.StatusActive {
			t.Errorf("Status = %q, want active", result.Certificate.Status)
		}
		if len(result.Certificate.StatusHistory) != 3 {
			t.Errorf("StatusHistory length = %d, want 3", len(result.Certificate.StatusHistory))
		}
	})

	t.Run("revoked is terminal", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		result, err := f.Ledger.Revoke(fingerprint, "issuer-1", "again")
		if err != nil {
			t.Fatalf("second Revoke() error = %v", err)
		}
		if result.Success {
			t.Fatal("second Revoke() succeeded, want rejection")
		}
		if result.Message != "certificate already revoked" {
			t.Errorf("Message = %q, want %q", result.Message, "certificate already revoked")
		}
		if !errors.Is(result.Err, cert.ErrInvalidStateTransition) {
			t.Errorf("result.Err = %v, want ErrInvalidStateTransition", result.Err)
		}
	})

	t.Run("cannot suspend a revoked certificate", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		result, err := f.Ledger.Suspend(fingerprint, "issuer-1", "audit")
		if err != nil {
			t.Fatalf("Suspend() error = %v", err)
		}
		if result.Success {
			t.Fatal("Suspend() succeeded on revoked certificate")
		}
		if result.Message != "cannot suspend: certificate is revoked" {
			t.Errorf("Message = %q", result.Message)
		}
	})

	t.Run("can only reinstate suspended certificates", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")

		result, err := f.Ledger.Reinstate(cert.HashString("diploma for alice"), "issuer-1", "")
		if err != nil {
			t.Fatalf("Reinstate() error = %v", err)
		}
		if result.Success {
			t.Fatal("Reinstate() succeeded on active certificate")
		}
		if result.Message != "can only reinstate suspended certificates" {
			t.Errorf("Message = %q", result.Message)
		}
	})

	t.Run("unknown fingerprints are rejected", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		result, err := f.Ledger.Revoke(cert.HashString("never issued"), "issuer-1", "")
		if err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if result.Success {
			t.Fatal("Revoke() succeeded for unknown fingerprint")
		}
		if !errors.Is(result.Err, cert.ErrNotFound) {
			t.Errorf("result.Err = %v, want ErrNotFound", result.Err)
		}
	})

	t.Run("rejected transitions write nothing", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		before, err := f.Ledger.GetAllBlocks()
		if err != nil {
			t.Fatalf("GetAllBlocks() error = %v", err)
		}

		// Illegal: reinstate an active certificate.
		if result, _ := f.Ledger.Reinstate(fingerprint, "issuer-1", ""); result.Success {
			t.Fatal("Reinstate() succeeded, want rejection")
		}

		after, err := f.Ledger.GetAllBlocks()
		if err != nil {
			t.Fatalf("GetAllBlocks() error = %v", err)
		}
		if len(after) != len(before) {
			t.Errorf("block count changed %d -> %d on a rejected transition", len(before), len(after))
		}

		rec, err := f.Ledger.GetCertificateByFingerprint(fingerprint)
		if err != nil {
			t.Fatalf("GetCertificateByFingerprint() error = %v", err)
		}
		if len(rec.StatusHistory) != 1 {
			t.Errorf("StatusHistory length = %d, want 1 (unchanged)", len(rec.StatusHistory))
		}
	})
}

func TestLedger_Chain(t *testing.T) {
	t.Run("every operation mines one linked block", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, proof := issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", cert.VerifyOptions{RequireProof: true}); err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		blocks, err := f.Ledger.GetAllBlocks()
		if err != nil {
			t.Fatalf("GetAllBlocks() error = %v", err)
		}
		if len(blocks) != 3 {
			t.Fatalf("block count = %d, want 3", len(blocks))
		}

		if blocks[0].ParentHash != model.GenesisParentHash {
			t.Errorf("genesis parent hash = %q", blocks[0].ParentHash)
		}
		for i, b := range blocks {
			if b.Number != int64(i+1) {
				t.Errorf("blocks[%d].Number = %d, want %d", i, b.Number, i+1)
			}
			if len(b.Transactions) != 1 {
				t.Errorf("blocks[%d] holds %d transactions, want 1", i, len(b.Transactions))
			}
			if i > 0 && b.ParentHash != blocks[i-1].Hash {
				t.Errorf("blocks[%d] parent hash does not match previous block hash", i)
			}
		}

		if err := f.Ledger.CheckChain(); err != nil {
			t.Errorf("CheckChain() error = %v", err)
		}
	})
}

func TestLedger_Stats(t *testing.T) {
	f := testutil.NewLedgerFixture(t)
	_, proof := issueDocument(t, f, "diploma for alice")
	_, _ = issueDocument(t, f, "transcript for bob")

	fingerprint := cert.HashString("diploma for alice")
	if _, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", cert.VerifyOptions{RequireProof: true}); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := f.Ledger.Verify(fingerprint, proof, "verifier-1", cert.VerifyOptions{RequireProof: true}); err != nil {
		t.Fatalf("replay Verify() error = %v", err)
	}
	if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	stats, err := f.Ledger.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	if stats.TotalCertificates != 2 {
		t.Errorf("TotalCertificates = %d, want 2", stats.TotalCertificates)
	}
	if stats.Active != 1 || stats.Revoked != 1 || stats.Suspended != 0 {
		t.Errorf("status counts = %d/%d/%d, want 1/1/0", stats.Active, stats.Revoked, stats.Suspended)
	}
	// 2 issuances + 2 verifications + 1 revocation.
	if stats.TotalBlocks != 5 || stats.TotalTransactions != 5 {
		t.Errorf("blocks/transactions = %d/%d, want 5/5", stats.TotalBlocks, stats.TotalTransactions)
	}
	if stats.ValidVerifications != 1 || stats.InvalidVerifications != 1 {
		t.Errorf("verifications = %d valid / %d invalid, want 1/1", stats.ValidVerifications, stats.InvalidVerifications)
	}
}

func TestLedger_Queries(t *testing.T) {
	t.Run("fingerprint lookup prefers the active record", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")
		fingerprint := cert.HashString("diploma for alice")

		if _, err := f.Ledger.Revoke(fingerprint, "issuer-1", "fraud"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		reissued, _ := issueDocument(t, f, "diploma for alice")

		rec, err := f.Ledger.GetCertificateByFingerprint(fingerprint)
		if err != nil {
			t.Fatalf("GetCertificateByFingerprint() error = %v", err)
		}
		if rec.ID != reissued.Certificate.ID {
			t.Errorf("lookup returned %s, want the active record %s", rec.ID, reissued.Certificate.ID)
		}
	})

	t.Run("fingerprint lookup reports unknown fingerprints", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)

		_, err := f.Ledger.GetCertificateByFingerprint(cert.HashString("never issued"))
		if !errors.Is(err, cert.ErrNotFound) {
			t.Fatalf("GetCertificateByFingerprint() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("filters by issuer and holder", func(t *testing.T) {
		f := testutil.NewLedgerFixture(t)
		_, _ = issueDocument(t, f, "diploma for alice")

		byIssuer, err := f.Ledger.GetCertificatesByIssuer("issuer-1")
		if err != nil {
			t.Fatalf("GetCertificatesByIssuer() error = %v", err)
		}
		if len(byIssuer) != 1 {
			t.Errorf("issuer filter returned %d records, want 1", len(byIssuer))
		}

		byHolder, err := f.Ledger.GetCertificatesByHolder("nobody")
		if err != nil {
			t.Fatalf("GetCertificatesByHolder() error = %v", err)
		}
		if len(byHolder) != 0 {
			t.Errorf("holder filter returned %d records, want 0", len(byHolder))
		}
	})
}
