package cert

import (
	"fmt"

	"certvault-go/internal/model"
)

// GetAllCertificates returns every record on the ledger, newest first.
func (l *Ledger) GetAllCertificates() ([]*model.CertificateRecord, error) {
	records, err := l.store.ListCertificates()
	if err != nil {
		return nil, fmt.Errorf("listing certificates: %w", err)
	}
	return records, nil
}

// GetCertificateByFingerprint returns the current record for a fingerprint:
// the Active one if present, otherwise the most recent. Returns ErrNotFound
// if the fingerprint has never been issued.
func (l *Ledger) GetCertificateByFingerprint(fingerprint string) (*model.CertificateRecord, error) {
	record, err := l.currentRecord(fingerprint)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fingerprint)
	}
	return record, nil
}

// GetCertificatesByIssuer returns all records issued by the given id.
func (l *Ledger) GetCertificatesByIssuer(issuer string) ([]*model.CertificateRecord, error) {
	records, err := l.store.ListCertificatesByIssuer(issuer)
	if err != nil {
		return nil, fmt.Errorf("listing certificates by issuer: %w", err)
	}
	return records, nil
}

// GetCertificatesByHolder returns all records held by the given id.
func (l *Ledger) GetCertificatesByHolder(holder string) ([]*model.CertificateRecord, error) {
	records, err := l.store.ListCertificatesByHolder(holder)
	if err != nil {
		return nil, fmt.Errorf("listing certificates by holder: %w", err)
	}
	return records, nil
}

// GetAllBlocks returns the chain in mining order.
func (l *Ledger) GetAllBlocks() ([]*model.Block, error) {
	blocks, err := l.store.ListBlocks()
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}
	return blocks, nil
}

// GetAllTransactions returns all transactions in mining order.
func (l *Ledger) GetAllTransactions() ([]*model.Transaction, error) {
	txs, err := l.store.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

// GetAllEvents returns the audit trail in append order.
func (l *Ledger) GetAllEvents() ([]*model.ContractEvent, error) {
	events, err := l.store.ListEvents()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// Stats summarizes ledger contents by certificate status and verification
// outcome.
type Stats struct {
	TotalCertificates    int64
	Active               int64
	Revoked              int64
	Suspended            int64
	TotalBlocks          int64
	TotalTransactions    int64
	ValidVerifications   int64
	InvalidVerifications int64
}

// GetStats computes summary counts from storage.
func (l *Ledger) GetStats() (*Stats, error) {
	byStatus, err := l.store.CountCertificatesByStatus()
	if err != nil {
		return nil, fmt.Errorf("counting certificates: %w", err)
	}

	valid, invalid, err := l.store.CountVerifications()
	if err != nil {
		return nil, fmt.Errorf("counting verifications: %w", err)
	}

	head, err := l.store.HeadBlock()
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}

	stats := &Stats{
		Active:               byStatus[model.StatusActive],
		Revoked:              byStatus[model.StatusRevoked],
		Suspended:            byStatus[model.StatusSuspended],
		ValidVerifications:   valid,
		InvalidVerifications: invalid,
	}
	stats.TotalCertificates = stats.Active + stats.Revoked + stats.Suspended
	if head != nil {
		// One transaction per block by construction.
		stats.TotalBlocks = head.Number
		stats.TotalTransactions = head.Number
	}
	return stats, nil
}

// CheckChain re-validates block linkage from storage: numbers must be
// contiguous from 1 and each parent hash must match the previous block's
// hash.
func (l *Ledger) CheckChain() error {
	blocks, err := l.store.ListBlocks()
	if err != nil {
		return fmt.Errorf("listing blocks: %w", err)
	}

	prevHash := model.GenesisParentHash
	for i, b := range blocks {
		want := int64(i + 1)
		if b.Number != want {
			return fmt.Errorf("block number gap: got %d, want %d", b.Number, want)
		}
		if b.ParentHash != prevHash {
			return fmt.Errorf("block %d parent hash %s does not match previous block hash %s", b.Number, b.ParentHash, prevHash)
		}
		prevHash = b.Hash
	}
	return nil
}
