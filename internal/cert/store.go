package cert

import "certvault-go/internal/model"

// Mutation is the unit of commit against the store: one block, the single
// transaction it contains, the events the call produced, and at most one
// certificate write. A mutation is applied atomically — either every part is
// durable or none is.
type Mutation struct {
	Block       *model.Block
	Transaction *model.Transaction
	Events      []*model.ContractEvent

	// NewCertificate inserts a record (issuance).
	NewCertificate *model.CertificateRecord
	// UpdatedCertificate persists a status change: the record's Status,
	// UpdatedAt, and the last StatusHistory entry.
	UpdatedCertificate *model.CertificateRecord
}

// Store is the persistence port for ledger state. Implementations must make
// Commit atomic and give readers a consistent snapshot (no partially written
// records).
type Store interface {
	// Commit applies a mutation atomically.
	Commit(mut *Mutation) error

	// HeadBlock returns the most recently committed block, or nil if the
	// chain is empty.
	HeadBlock() (*model.Block, error)

	// GetCertificate returns a record by id, or nil if absent.
	GetCertificate(id string) (*model.CertificateRecord, error)

	// GetActiveCertificateByFingerprint returns the Active record for a
	// fingerprint, or nil. At most one can exist.
	GetActiveCertificateByFingerprint(fingerprint string) (*model.CertificateRecord, error)

	// GetCertificatesByFingerprint returns all records for a fingerprint,
	// newest first. Revoked and suspended duplicates coexist with at most
	// one Active record.
	GetCertificatesByFingerprint(fingerprint string) ([]*model.CertificateRecord, error)

	// ListCertificates returns all records, newest first.
	ListCertificates() ([]*model.CertificateRecord, error)

	// ListCertificatesByIssuer returns all records issued by the given id,
	// newest first.
	ListCertificatesByIssuer(issuer string) ([]*model.CertificateRecord, error)

	// ListCertificatesByHolder returns all records held by the given id,
	// newest first.
	ListCertificatesByHolder(holder string) ([]*model.CertificateRecord, error)

	// ListBlocks returns all blocks in mining order.
	ListBlocks() ([]*model.Block, error)

	// ListTransactions returns all transactions in mining order.
	ListTransactions() ([]*model.Transaction, error)

	// ListEvents returns all events in append order.
	ListEvents() ([]*model.ContractEvent, error)

	// CountCertificatesByStatus returns record counts keyed by status.
	CountCertificatesByStatus() (map[model.Status]int64, error)

	// CountVerifications returns the number of Verified events by outcome.
	CountVerifications() (valid int64, invalid int64, err error)

	// Close releases the underlying connection.
	Close() error
}
