// Package app is the application layer between the CLI and the ledger core.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI inputs, and manages resource lifecycles on Close.
package app

import (
	"fmt"
	"os"
	"time"

	"certvault-go/internal/cert"
	"certvault-go/internal/config"
	"certvault-go/internal/database"
	"certvault-go/internal/docstore"
	"certvault-go/internal/encryption"
	"certvault-go/internal/model"
)

// metadataEncrypted marks records whose vaulted document is encrypted at
// rest, so export knows to ask for the passphrase.
const metadataEncrypted = "encrypted"

// App wires the ledger core from config.
type App struct {
	cfg       *config.Config
	store     cert.Store
	registry  cert.NullifierRegistry
	vault     cert.DocumentVault
	encryptor cert.Encryptor
	engine    *cert.ProofEngine
	ledger    *cert.Ledger
	verifier  *cert.Verifier
	docs      *cert.DocumentService
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Issue", "Verify") and tags
// every log line. The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, registry, err := database.NewStoreFromConfig(cfg.Database, cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	vault, err := docstore.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating document vault: %w", err)
	}

	encryptor, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	log := &slogAdapter{l: logger}
	engine := cert.NewProofEngine(registry, cert.RealClock{}, cert.CryptoSaltSource{}, log)
	ledger := cert.NewLedger(store, engine, log, cert.RealClock{}, cert.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		vault:     vault,
		encryptor: encryptor,
		engine:    engine,
		ledger:    ledger,
		verifier:  cert.NewVerifier(ledger, log),
		docs:      cert.NewDocumentService(vault, encryptor, log),
		logFile:   logFile,
	}, nil
}

// Close releases the store connection and the log file.
func (a *App) Close() error {
	err := a.store.Close()
	if a.logFile != nil {
		if cerr := a.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// IssueParams are the raw CLI inputs to issuance.
type IssueParams struct {
	DocumentPath     string
	Issuer           string
	Holder           string
	DocumentType     string
	DocumentCategory string
	Metadata         map[string]string
	Attributes       map[string]any
	Disclosures      []string
	Encrypt          bool
}

// Issue ingests the document into the vault, generates a selective-
// disclosure proof over it, and issues a certificate on the ledger.
func (a *App) Issue(p IssueParams) (*cert.IssueResult, error) {
	if p.Encrypt && !a.encryptor.IsConfigured() {
		return nil, fmt.Errorf("encryption requested but keys are not set up (run `certvault keys init`)")
	}

	f, err := os.Open(p.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	locator, err := a.docs.Store(f, p.Encrypt)
	if err != nil {
		return nil, err
	}

	proof, err := a.engine.Generate(cert.ProofRequest{
		DocumentFingerprint: locator,
		HolderID:            p.Holder,
		Attributes:          p.Attributes,
		SelectedDisclosures: p.Disclosures,
	})
	if err != nil {
		return nil, fmt.Errorf("generating proof: %w", err)
	}

	metadata := p.Metadata
	if p.Encrypt {
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[metadataEncrypted] = "true"
	}

	return a.ledger.Issue(cert.IssueParams{
		DocumentFingerprint: locator,
		StorageLocator:      locator,
		Proof:               proof,
		Issuer:              p.Issuer,
		Holder:              p.Holder,
		DocumentType:        p.DocumentType,
		DocumentCategory:    p.DocumentCategory,
		Metadata:            metadata,
	})
}

// Prove generates a fresh proof for an already-issued certificate. The
// holder re-supplies the private attributes; they are never stored. A fresh
// proof carries a new salt, so it has its own nullifier and validity window.
func (a *App) Prove(fingerprint, holder string, attributes map[string]any, disclosures []string) (*model.SimulatedProof, error) {
	if _, err := a.ledger.GetCertificateByFingerprint(fingerprint); err != nil {
		return nil, err
	}
	proof, err := a.engine.Generate(cert.ProofRequest{
		DocumentFingerprint: fingerprint,
		HolderID:            holder,
		Attributes:          attributes,
		SelectedDisclosures: disclosures,
	})
	if err != nil {
		return nil, fmt.Errorf("generating proof: %w", err)
	}
	return proof, nil
}

// Verify runs a verification attempt. proofPath may be empty (no proof
// presented); requireProof selects the full proof protocol over the cheap
// fingerprint comparison.
func (a *App) Verify(fingerprint, proofPath, verifierID string, requireProof bool) (*cert.VerifyResult, error) {
	var serialized []byte
	if proofPath != "" {
		data, err := os.ReadFile(proofPath)
		if err != nil {
			return nil, fmt.Errorf("reading proof file: %w", err)
		}
		serialized = data
	}
	return a.verifier.VerifySerialized(fingerprint, serialized, verifierID, requireProof)
}

// Revoke moves a certificate to Revoked.
func (a *App) Revoke(fingerprint, actor, reason string) (*cert.MutationResult, error) {
	return a.ledger.Revoke(fingerprint, actor, reason)
}

// Suspend moves a certificate to Suspended.
func (a *App) Suspend(fingerprint, actor, reason string) (*cert.MutationResult, error) {
	return a.ledger.Suspend(fingerprint, actor, reason)
}

// Reinstate moves a Suspended certificate back to Active.
func (a *App) Reinstate(fingerprint, actor, reason string) (*cert.MutationResult, error) {
	return a.ledger.Reinstate(fingerprint, actor, reason)
}

// Export retrieves the vaulted document behind a certificate and writes it
// to outPath, verifying it against the recorded fingerprint. passphrase is
// required when the document was stored encrypted.
func (a *App) Export(fingerprint, outPath, passphrase string) error {
	record, err := a.ledger.GetCertificateByFingerprint(fingerprint)
	if err != nil {
		return err
	}
	if record.StorageLocator == "" {
		return fmt.Errorf("certificate %s has no stored document", record.ID)
	}

	var decryptCtx cert.DecryptionContext
	if record.Metadata[metadataEncrypted] == "true" {
		if passphrase == "" {
			return fmt.Errorf("document is encrypted; a passphrase is required")
		}
		decryptCtx, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	if err := a.docs.Fetch(record.StorageLocator, out, decryptCtx); err != nil {
		return err
	}
	return out.Sync()
}

// SetupKeys generates the age key pair for at-rest document encryption.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// ValidateVault checks that the configured document vault is reachable.
func (a *App) ValidateVault() error {
	return a.vault.ValidateSetup()
}

// Query surface, delegated 1:1 to the ledger.

func (a *App) Certificates() ([]*model.CertificateRecord, error) {
	return a.ledger.GetAllCertificates()
}

func (a *App) CertificateByFingerprint(fingerprint string) (*model.CertificateRecord, error) {
	return a.ledger.GetCertificateByFingerprint(fingerprint)
}

func (a *App) CertificatesByIssuer(issuer string) ([]*model.CertificateRecord, error) {
	return a.ledger.GetCertificatesByIssuer(issuer)
}

func (a *App) CertificatesByHolder(holder string) ([]*model.CertificateRecord, error) {
	return a.ledger.GetCertificatesByHolder(holder)
}

func (a *App) Blocks() ([]*model.Block, error) {
	return a.ledger.GetAllBlocks()
}

func (a *App) Transactions() ([]*model.Transaction, error) {
	return a.ledger.GetAllTransactions()
}

func (a *App) Events() ([]*model.ContractEvent, error) {
	return a.ledger.GetAllEvents()
}

func (a *App) Stats() (*cert.Stats, error) {
	return a.ledger.GetStats()
}

func (a *App) CheckChain() error {
	return a.ledger.CheckChain()
}
