package cert

import (
	"fmt"
	"strings"
	"sync"

	"certvault-go/internal/model"
)

// RegistryContract is the logical contract name recorded as the To side of
// every ledger transaction.
const RegistryContract = "CertificateRegistry"

// IssueParams are the inputs to certificate issuance.
type IssueParams struct {
	DocumentFingerprint string
	StorageLocator      string
	Proof               *model.SimulatedProof
	Issuer              string
	Holder              string
	DocumentType        string
	DocumentCategory    string
	Metadata            map[string]string
}

// IssueResult carries everything a successful issuance minted.
type IssueResult struct {
	Certificate *model.CertificateRecord
	Transaction *model.Transaction
	Block       *model.Block
	Events      []*model.ContractEvent
}

// MutationResult is the outcome of a status-change call. Business rejections
// (unknown fingerprint, illegal transition) are reported with Success=false
// and a taxonomy sentinel in Err, not as a Go error; the error return of the
// mutation methods is reserved for storage faults.
type MutationResult struct {
	Success     bool
	Message     string
	Err         error // taxonomy sentinel when Success is false
	Certificate *model.CertificateRecord
	Transaction *model.Transaction
	Block       *model.Block
	Events      []*model.ContractEvent
}

// VerifyOptions controls a verification attempt. RequireProof selects the
// full proof protocol; without it the ledger falls back to the cheap
// proof-fingerprint comparison (or a bare status check when no proof is
// presented). The weaker mode is an explicit caller choice, never inferred.
type VerifyOptions struct {
	RequireProof bool
}

// VerifyResult is the composite outcome of a verification attempt: the
// ledger-level status plus the proof-level disclosure set.
type VerifyResult struct {
	Valid       bool
	Certificate *model.CertificateRecord // nil when not found
	Message     string
	Err         error // taxonomy sentinel when invalid
	Disclosures []model.Disclosure
	Transaction *model.Transaction
	Block       *model.Block
	Events      []*model.ContractEvent
}

// Ledger is the append-only certificate record store. Every mutating call —
// and every verification attempt — mines exactly one block holding exactly
// one transaction, and appends the matching audit event. Rejected calls
// write nothing.
type Ledger struct {
	store  Store
	engine *ProofEngine
	logger Logger
	clock  Clock
	idgen  IDGenerator

	// mu serializes mining: the block-number increment and parent-hash
	// linkage must be atomic across all records.
	mu sync.Mutex
}

// NewLedger creates a Ledger with the provided dependencies.
func NewLedger(store Store, engine *ProofEngine, logger Logger, clock Clock, idgen IDGenerator) *Ledger {
	return &Ledger{
		store:  store,
		engine: engine,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// Issue creates a new certificate record in Active state. Returns
// ErrDuplicateFingerprint if an Active record already exists for the
// fingerprint; revoked or suspended records with the same fingerprint do not
// block re-issuance.
func (l *Ledger) Issue(p IssueParams) (*IssueResult, error) {
	if p.DocumentFingerprint == "" {
		return nil, fmt.Errorf("document fingerprint is required")
	}

	proofFingerprint := ""
	if p.Proof != nil {
		fp, err := HashObject(p.Proof)
		if err != nil {
			return nil, fmt.Errorf("fingerprinting proof: %w", err)
		}
		proofFingerprint = fp
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.store.GetActiveCertificateByFingerprint(p.DocumentFingerprint)
	if err != nil {
		return nil, fmt.Errorf("checking for existing certificate: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFingerprint, p.DocumentFingerprint)
	}

	block, tx, err := l.mine(p.Issuer, "issueCertificate", map[string]string{
		"documentFingerprint": p.DocumentFingerprint,
		"holder":              p.Holder,
	}, model.TxSuccess)
	if err != nil {
		return nil, err
	}

	record := &model.CertificateRecord{
		ID:                  l.idgen.New(),
		DocumentFingerprint: p.DocumentFingerprint,
		StorageLocator:      p.StorageLocator,
		Proof:               p.Proof,
		ProofFingerprint:    proofFingerprint,
		Issuer:              p.Issuer,
		Holder:              p.Holder,
		DocumentType:        p.DocumentType,
		DocumentCategory:    p.DocumentCategory,
		Metadata:            p.Metadata,
		Status:              model.StatusActive,
		StatusHistory: []model.StatusChange{{
			From:            model.StatusNone,
			To:              model.StatusActive,
			ChangedBy:       p.Issuer,
			Reason:          "issued",
			Timestamp:       tx.Timestamp,
			TransactionHash: tx.Hash,
		}},
		CreatedAt:       tx.Timestamp,
		UpdatedAt:       tx.Timestamp,
		BlockNumber:     block.Number,
		TransactionHash: tx.Hash,
	}

	event := l.newEvent(model.EventIssued, record, p.Issuer, "", "", tx)
	tx.EventIDs = []string{event.ID}

	mut := &Mutation{
		Block:          block,
		Transaction:    tx,
		Events:         []*model.ContractEvent{event},
		NewCertificate: record,
	}
	if err := l.store.Commit(mut); err != nil {
		return nil, fmt.Errorf("committing issuance: %w", err)
	}

	l.logger.Info("certificate issued",
		"id", record.ID,
		"fingerprint", record.DocumentFingerprint,
		"block", block.Number)

	return &IssueResult{
		Certificate: record,
		Transaction: tx,
		Block:       block,
		Events:      mut.Events,
	}, nil
}

// Verify checks a certificate against a presented proof. It never mutates
// the record, but every attempt is audit-logged: one transaction, one block,
// one Verified event, whatever the outcome. The nullifier is consumed only
// when the full check succeeds end to end.
func (l *Ledger) Verify(fingerprint string, proof *model.SimulatedProof, verifierID string, opts VerifyOptions) (*VerifyResult, error) {
	record, err := l.currentRecord(fingerprint)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Certificate: record}
	switch {
	case record == nil:
		result.Err = ErrNotFound
		result.Message = "certificate not found"
	case record.Status == model.StatusRevoked:
		result.Err = ErrInvalidStateTransition
		result.Message = "certificate has been revoked"
	case record.Status == model.StatusSuspended:
		result.Err = ErrInvalidStateTransition
		result.Message = "certificate is suspended"
	case opts.RequireProof:
		verdict, err := l.engine.Verify(proof, fingerprint, true)
		if err != nil {
			return nil, err
		}
		result.Valid = verdict.Valid
		result.Message = verdict.Message
		result.Err = verdict.Err
		result.Disclosures = verdict.Disclosures
	case proof != nil:
		// Hash-only mode with a presented proof: cheap equality against
		// the stored proof fingerprint.
		presented, err := HashObject(proof)
		if err != nil {
			return nil, fmt.Errorf("fingerprinting presented proof: %w", err)
		}
		if presented == record.ProofFingerprint {
			result.Valid = true
			result.Message = "proof fingerprint matches"
			result.Disclosures = proof.Disclosures
		} else {
			result.Err = ErrProofStructureInvalid
			result.Message = "proof fingerprint mismatch"
		}
	default:
		// Hash-only mode with no proof: the record being found and Active
		// is the whole check.
		result.Valid = true
		result.Message = "certificate is active"
	}

	txStatus := model.TxSuccess
	outcome := model.OutcomeValid
	if !result.Valid {
		txStatus = model.TxFailed
		outcome = model.OutcomeInvalid
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	block, tx, err := l.mine(verifierID, "verifyCertificate", map[string]string{
		"documentFingerprint": fingerprint,
	}, txStatus)
	if err != nil {
		return nil, err
	}

	event := l.newEvent(model.EventVerified, record, verifierID, result.Message, outcome, tx)
	event.DocumentFingerprint = fingerprint
	tx.EventIDs = []string{event.ID}

	mut := &Mutation{
		Block:       block,
		Transaction: tx,
		Events:      []*model.ContractEvent{event},
	}
	if err := l.store.Commit(mut); err != nil {
		return nil, fmt.Errorf("committing verification audit: %w", err)
	}

	result.Transaction = tx
	result.Block = block
	result.Events = mut.Events

	l.logger.Info("certificate verified",
		"fingerprint", fingerprint,
		"valid", result.Valid,
		"message", result.Message)
	return result, nil
}

// Revoke moves a certificate to Revoked. Legal from Active or Suspended;
// Revoked is terminal.
func (l *Ledger) Revoke(fingerprint, by, reason string) (*MutationResult, error) {
	return l.transition(fingerprint, by, reason, model.StatusRevoked, model.EventRevoked, "revokeCertificate")
}

// Suspend moves a certificate to Suspended. Legal only from Active.
func (l *Ledger) Suspend(fingerprint, by, reason string) (*MutationResult, error) {
	return l.transition(fingerprint, by, reason, model.StatusSuspended, model.EventSuspended, "suspendCertificate")
}

// Reinstate moves a Suspended certificate back to Active.
func (l *Ledger) Reinstate(fingerprint, by, reason string) (*MutationResult, error) {
	return l.transition(fingerprint, by, reason, model.StatusActive, model.EventReinstated, "reinstateCertificate")
}

// transition applies a status change. Rejections return before anything is
// mined, so a failed call leaves no trace in the chain.
func (l *Ledger) transition(fingerprint, by, reason string, target model.Status, eventType model.EventType, method string) (*MutationResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, err := l.currentRecord(fingerprint)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &MutationResult{Message: "certificate not found", Err: ErrNotFound}, nil
	}
	if !record.Status.CanTransitionTo(target) {
		return &MutationResult{
			Message: transitionRejection(record.Status, target),
			Err:     ErrInvalidStateTransition,
		}, nil
	}

	block, tx, err := l.mine(by, method, map[string]string{
		"documentFingerprint": fingerprint,
		"reason":              reason,
	}, model.TxSuccess)
	if err != nil {
		return nil, err
	}

	change := model.StatusChange{
		From:            record.Status,
		To:              target,
		ChangedBy:       by,
		Reason:          reason,
		Timestamp:       tx.Timestamp,
		TransactionHash: tx.Hash,
	}
	if err := record.Transition(change); err != nil {
		return nil, fmt.Errorf("applying status change: %w", err)
	}

	event := l.newEvent(eventType, record, by, reason, "", tx)
	tx.EventIDs = []string{event.ID}

	mut := &Mutation{
		Block:              block,
		Transaction:        tx,
		Events:             []*model.ContractEvent{event},
		UpdatedCertificate: record,
	}
	if err := l.store.Commit(mut); err != nil {
		return nil, fmt.Errorf("committing status change: %w", err)
	}

	l.logger.Info("certificate status changed",
		"id", record.ID,
		"from", change.From,
		"to", change.To,
		"by", by)

	return &MutationResult{
		Success:     true,
		Message:     fmt.Sprintf("certificate %s", strings.ToLower(string(eventType))),
		Certificate: record,
		Transaction: tx,
		Block:       block,
		Events:      mut.Events,
	}, nil
}

// transitionRejection maps an illegal transition to its user-facing message.
func transitionRejection(from, target model.Status) string {
	switch {
	case target == model.StatusRevoked && from == model.StatusRevoked:
		return "certificate already revoked"
	case target == model.StatusSuspended:
		return "cannot suspend: certificate is " + string(from)
	case target == model.StatusActive:
		return "can only reinstate suspended certificates"
	}
	return fmt.Sprintf("illegal transition %s -> %s", from, target)
}

// currentRecord returns the record verification and transitions operate on:
// the Active record for the fingerprint if one exists, otherwise the most
// recently issued record, otherwise nil.
func (l *Ledger) currentRecord(fingerprint string) (*model.CertificateRecord, error) {
	record, err := l.store.GetActiveCertificateByFingerprint(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("looking up certificate: %w", err)
	}
	if record != nil {
		return record, nil
	}

	records, err := l.store.GetCertificatesByFingerprint(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("looking up certificate history: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// mine builds the next block and its single transaction. Callers must hold
// l.mu so the number increment and parent linkage stay atomic.
func (l *Ledger) mine(actor, method string, args map[string]string, status model.TxStatus) (*model.Block, *model.Transaction, error) {
	head, err := l.store.HeadBlock()
	if err != nil {
		return nil, nil, fmt.Errorf("reading head block: %w", err)
	}

	number := int64(1)
	parentHash := model.GenesisParentHash
	if head != nil {
		number = head.Number + 1
		parentHash = head.Hash
	}

	now := l.clock.Now()
	txHash, err := HashObject(map[string]any{
		"nonce":     l.idgen.New(),
		"from":      actor,
		"to":        RegistryContract,
		"method":    method,
		"args":      args,
		"block":     number,
		"timestamp": now.UnixNano(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("hashing transaction: %w", err)
	}

	blockHash, err := HashObject(map[string]any{
		"number":       number,
		"parentHash":   parentHash,
		"transactions": []string{txHash},
		"timestamp":    now.UnixNano(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("hashing block: %w", err)
	}

	block := &model.Block{
		Number:       number,
		Hash:         blockHash,
		ParentHash:   parentHash,
		Transactions: []string{txHash},
		MinedAt:      now,
	}
	tx := &model.Transaction{
		Hash:        txHash,
		From:        actor,
		To:          RegistryContract,
		BlockNumber: number,
		Timestamp:   now,
		Method:      method,
		Args:        args,
		Status:      status,
	}
	return block, tx, nil
}

// newEvent builds an audit event tied to a transaction.
func (l *Ledger) newEvent(eventType model.EventType, record *model.CertificateRecord, actor, reason, outcome string, tx *model.Transaction) *model.ContractEvent {
	event := &model.ContractEvent{
		ID:              l.idgen.New(),
		Type:            eventType,
		Actor:           actor,
		Reason:          reason,
		Outcome:         outcome,
		TransactionHash: tx.Hash,
		BlockNumber:     tx.BlockNumber,
		Timestamp:       tx.Timestamp,
	}
	if record != nil {
		event.CertificateID = record.ID
		event.DocumentFingerprint = record.DocumentFingerprint
	}
	return event
}
