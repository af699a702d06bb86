// Package database implements the ledger persistence port on SQLite.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"certvault-go/internal/cert"
	"certvault-go/internal/database/migrations"
	"certvault-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements cert.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ cert.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens a SQLite store at the given path.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for locks instead of failing immediately; verification reads can
	// run concurrently with ledger commits.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for the nullifier registry and tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Migrate brings the schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.Up(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Commit applies a mutation in a single database transaction: block,
// transaction, events, and the optional certificate write all land together
// or not at all.
func (s *SQLiteStore) Commit(mut *cert.Mutation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if mut.Block != nil {
		if _, err := tx.Exec(
			`INSERT INTO blocks (number, hash, parent_hash, mined_at) VALUES (?, ?, ?, ?)`,
			mut.Block.Number, mut.Block.Hash, mut.Block.ParentHash, mut.Block.MinedAt,
		); err != nil {
			return fmt.Errorf("inserting block: %w", err)
		}
	}

	if mut.Transaction != nil {
		args, err := json.Marshal(mut.Transaction.Args)
		if err != nil {
			return fmt.Errorf("serializing transaction args: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO transactions (hash, from_id, to_name, block_number, created_at, method, args_json, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mut.Transaction.Hash, mut.Transaction.From, mut.Transaction.To,
			mut.Transaction.BlockNumber, mut.Transaction.Timestamp,
			mut.Transaction.Method, string(args), string(mut.Transaction.Status),
		); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	}

	for _, ev := range mut.Events {
		if _, err := tx.Exec(
			`INSERT INTO events (id, type, certificate_id, document_fingerprint, actor, reason, outcome, transaction_hash, block_number, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, string(ev.Type), ev.CertificateID, ev.DocumentFingerprint,
			ev.Actor, ev.Reason, ev.Outcome, ev.TransactionHash, ev.BlockNumber, ev.Timestamp,
		); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	if mut.NewCertificate != nil {
		if err := insertCertificate(tx, mut.NewCertificate); err != nil {
			return err
		}
	}

	if mut.UpdatedCertificate != nil {
		if err := updateCertificateStatus(tx, mut.UpdatedCertificate); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mutation: %w", err)
	}
	return nil
}

func insertCertificate(tx *sql.Tx, rec *model.CertificateRecord) error {
	proofJSON := ""
	if rec.Proof != nil {
		raw, err := json.Marshal(rec.Proof)
		if err != nil {
			return fmt.Errorf("serializing proof: %w", err)
		}
		proofJSON = string(raw)
	}

	metadataJSON := ""
	if rec.Metadata != nil {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("serializing metadata: %w", err)
		}
		metadataJSON = string(raw)
	}

	if _, err := tx.Exec(
		`INSERT INTO certificates (id, document_fingerprint, storage_locator, proof_json, proof_fingerprint,
		   issuer, holder, document_type, document_category, metadata_json, status,
		   created_at, updated_at, block_number, transaction_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentFingerprint, rec.StorageLocator, proofJSON, rec.ProofFingerprint,
		rec.Issuer, rec.Holder, rec.DocumentType, rec.DocumentCategory, metadataJSON,
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt, rec.BlockNumber, rec.TransactionHash,
	); err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}

	for _, change := range rec.StatusHistory {
		if err := insertStatusChange(tx, rec.ID, change); err != nil {
			return err
		}
	}
	return nil
}

func updateCertificateStatus(tx *sql.Tx, rec *model.CertificateRecord) error {
	res, err := tx.Exec(
		`UPDATE certificates SET status = ?, updated_at = ? WHERE id = ?`,
		string(rec.Status), rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating certificate status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("certificate %s does not exist", rec.ID)
	}

	// Only the latest history entry is new; earlier entries are already
	// persisted and never rewritten.
	if len(rec.StatusHistory) == 0 {
		return fmt.Errorf("certificate %s has no status history to persist", rec.ID)
	}
	return insertStatusChange(tx, rec.ID, rec.StatusHistory[len(rec.StatusHistory)-1])
}

func insertStatusChange(tx *sql.Tx, certificateID string, change model.StatusChange) error {
	if _, err := tx.Exec(
		`INSERT INTO status_changes (certificate_id, from_status, to_status, changed_by, reason, changed_at, transaction_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		certificateID, string(change.From), string(change.To),
		change.ChangedBy, change.Reason, change.Timestamp, change.TransactionHash,
	); err != nil {
		return fmt.Errorf("inserting status change: %w", err)
	}
	return nil
}

// HeadBlock returns the most recently committed block, or nil if the chain
// is empty.
func (s *SQLiteStore) HeadBlock() (*model.Block, error) {
	row := s.db.QueryRow(`SELECT number, hash, parent_hash, mined_at FROM blocks ORDER BY number DESC LIMIT 1`)
	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}
	return b, nil
}

const certificateColumns = `id, document_fingerprint, storage_locator, proof_json, proof_fingerprint,
	issuer, holder, document_type, document_category, metadata_json, status,
	created_at, updated_at, block_number, transaction_hash`

// GetCertificate returns a record by id, or nil if absent.
func (s *SQLiteStore) GetCertificate(id string) (*model.CertificateRecord, error) {
	return s.getCertificate(`SELECT `+certificateColumns+` FROM certificates WHERE id = ?`, id)
}

// GetActiveCertificateByFingerprint returns the Active record for a
// fingerprint, or nil.
func (s *SQLiteStore) GetActiveCertificateByFingerprint(fingerprint string) (*model.CertificateRecord, error) {
	return s.getCertificate(
		`SELECT `+certificateColumns+` FROM certificates WHERE document_fingerprint = ? AND status = 'active'`,
		fingerprint,
	)
}

// GetCertificatesByFingerprint returns all records for a fingerprint, newest
// first.
func (s *SQLiteStore) GetCertificatesByFingerprint(fingerprint string) ([]*model.CertificateRecord, error) {
	return s.listCertificates(
		`SELECT `+certificateColumns+` FROM certificates WHERE document_fingerprint = ? ORDER BY rowid DESC`,
		fingerprint,
	)
}

// ListCertificates returns all records, newest first.
func (s *SQLiteStore) ListCertificates() ([]*model.CertificateRecord, error) {
	return s.listCertificates(`SELECT ` + certificateColumns + ` FROM certificates ORDER BY rowid DESC`)
}

// ListCertificatesByIssuer returns all records issued by the given id.
func (s *SQLiteStore) ListCertificatesByIssuer(issuer string) ([]*model.CertificateRecord, error) {
	return s.listCertificates(
		`SELECT `+certificateColumns+` FROM certificates WHERE issuer = ? ORDER BY rowid DESC`,
		issuer,
	)
}

// ListCertificatesByHolder returns all records held by the given id.
func (s *SQLiteStore) ListCertificatesByHolder(holder string) ([]*model.CertificateRecord, error) {
	return s.listCertificates(
		`SELECT `+certificateColumns+` FROM certificates WHERE holder = ? ORDER BY rowid DESC`,
		holder,
	)
}

func (s *SQLiteStore) getCertificate(query string, args ...any) (*model.CertificateRecord, error) {
	rec, err := scanCertificate(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}
	if err := s.loadStatusHistory(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) listCertificates(query string, args ...any) ([]*model.CertificateRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying certificates: %w", err)
	}
	defer rows.Close()

	var records []*model.CertificateRecord
	for rows.Next() {
		rec, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning certificate: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating certificates: %w", err)
	}

	for _, rec := range records {
		if err := s.loadStatusHistory(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *SQLiteStore) loadStatusHistory(rec *model.CertificateRecord) error {
	rows, err := s.db.Query(
		`SELECT from_status, to_status, changed_by, reason, changed_at, transaction_hash
		 FROM status_changes WHERE certificate_id = ? ORDER BY id ASC`,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	rec.StatusHistory = nil
	for rows.Next() {
		var change model.StatusChange
		var from, to string
		if err := rows.Scan(&from, &to, &change.ChangedBy, &change.Reason, &change.Timestamp, &change.TransactionHash); err != nil {
			return fmt.Errorf("scanning status change: %w", err)
		}
		change.From = model.Status(from)
		change.To = model.Status(to)
		rec.StatusHistory = append(rec.StatusHistory, change)
	}
	return rows.Err()
}

// ListBlocks returns all blocks in mining order.
func (s *SQLiteStore) ListBlocks() ([]*model.Block, error) {
	rows, err := s.db.Query(`SELECT number, hash, parent_hash, mined_at FROM blocks ORDER BY number ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocks: %w", err)
	}

	// Attach transaction hashes in block order.
	txRows, err := s.db.Query(`SELECT hash, block_number FROM transactions ORDER BY block_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying block transactions: %w", err)
	}
	defer txRows.Close()

	byNumber := make(map[int64]*model.Block, len(blocks))
	for _, b := range blocks {
		byNumber[b.Number] = b
	}
	for txRows.Next() {
		var hash string
		var number int64
		if err := txRows.Scan(&hash, &number); err != nil {
			return nil, fmt.Errorf("scanning block transaction: %w", err)
		}
		if b, ok := byNumber[number]; ok {
			b.Transactions = append(b.Transactions, hash)
		}
	}
	return blocks, txRows.Err()
}

// ListTransactions returns all transactions in mining order.
func (s *SQLiteStore) ListTransactions() ([]*model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT hash, from_id, to_name, block_number, created_at, method, args_json, status
		 FROM transactions ORDER BY block_number ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	byHash := make(map[string]*model.Transaction)
	for rows.Next() {
		var tx model.Transaction
		var argsJSON, status string
		if err := rows.Scan(&tx.Hash, &tx.From, &tx.To, &tx.BlockNumber, &tx.Timestamp, &tx.Method, &argsJSON, &status); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.Status = model.TxStatus(status)
		if argsJSON != "" {
			if err := json.Unmarshal([]byte(argsJSON), &tx.Args); err != nil {
				return nil, fmt.Errorf("parsing transaction args: %w", err)
			}
		}
		txs = append(txs, &tx)
		byHash[tx.Hash] = &tx
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	evRows, err := s.db.Query(`SELECT id, transaction_hash FROM events ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying transaction events: %w", err)
	}
	defer evRows.Close()

	for evRows.Next() {
		var id, txHash string
		if err := evRows.Scan(&id, &txHash); err != nil {
			return nil, fmt.Errorf("scanning transaction event: %w", err)
		}
		if tx, ok := byHash[txHash]; ok {
			tx.EventIDs = append(tx.EventIDs, id)
		}
	}
	return txs, evRows.Err()
}

// ListEvents returns the audit trail in append order.
func (s *SQLiteStore) ListEvents() ([]*model.ContractEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, type, certificate_id, document_fingerprint, actor, reason, outcome, transaction_hash, block_number, created_at
		 FROM events ORDER BY rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*model.ContractEvent
	for rows.Next() {
		var ev model.ContractEvent
		var evType string
		if err := rows.Scan(&ev.ID, &evType, &ev.CertificateID, &ev.DocumentFingerprint,
			&ev.Actor, &ev.Reason, &ev.Outcome, &ev.TransactionHash, &ev.BlockNumber, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Type = model.EventType(evType)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// CountCertificatesByStatus returns record counts keyed by status.
func (s *SQLiteStore) CountCertificatesByStatus() (map[model.Status]int64, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM certificates GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting certificates: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning certificate count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// CountVerifications returns the number of Verified events by outcome.
func (s *SQLiteStore) CountVerifications() (valid int64, invalid int64, err error) {
	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM events WHERE type = ? GROUP BY outcome`, string(model.EventVerified))
	if err != nil {
		return 0, 0, fmt.Errorf("counting verifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return 0, 0, fmt.Errorf("scanning verification count: %w", err)
		}
		switch outcome {
		case model.OutcomeValid:
			valid = n
		case model.OutcomeInvalid:
			invalid = n
		}
	}
	return valid, invalid, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(s scanner) (*model.Block, error) {
	var b model.Block
	if err := s.Scan(&b.Number, &b.Hash, &b.ParentHash, &b.MinedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanCertificate(s scanner) (*model.CertificateRecord, error) {
	var rec model.CertificateRecord
	var proofJSON, metadataJSON, status string
	if err := s.Scan(
		&rec.ID, &rec.DocumentFingerprint, &rec.StorageLocator, &proofJSON, &rec.ProofFingerprint,
		&rec.Issuer, &rec.Holder, &rec.DocumentType, &rec.DocumentCategory, &metadataJSON,
		&status, &rec.CreatedAt, &rec.UpdatedAt, &rec.BlockNumber, &rec.TransactionHash,
	); err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	if proofJSON != "" {
		var proof model.SimulatedProof
		if err := json.Unmarshal([]byte(proofJSON), &proof); err != nil {
			return nil, fmt.Errorf("parsing stored proof: %w", err)
		}
		rec.Proof = &proof
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("parsing stored metadata: %w", err)
		}
	}
	return &rec, nil
}

// SQLiteNullifierRegistry implements cert.NullifierRegistry on SQLite. The
// nullifiers table has no foreign keys into ledger state; the registry
// persists independently of certificate records.
type SQLiteNullifierRegistry struct {
	db *sql.DB
}

var _ cert.NullifierRegistry = (*SQLiteNullifierRegistry)(nil)

// NewSQLiteNullifierRegistry creates a registry over an open connection.
func NewSQLiteNullifierRegistry(db *sql.DB) *SQLiteNullifierRegistry {
	return &SQLiteNullifierRegistry{db: db}
}

// Has reports whether the nullifier has been consumed.
func (r *SQLiteNullifierRegistry) Has(nullifier string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM nullifiers WHERE nullifier = ?`, nullifier).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking nullifier: %w", err)
	}
	return true, nil
}

// TryConsume atomically marks the nullifier consumed. The INSERT OR IGNORE
// is the compare-and-set: exactly one caller observes an affected row.
func (r *SQLiteNullifierRegistry) TryConsume(nullifier string) (bool, error) {
	res, err := r.db.Exec(
		`INSERT OR IGNORE INTO nullifiers (nullifier, consumed_at) VALUES (?, ?)`,
		nullifier, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("consuming nullifier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking consume result: %w", err)
	}
	return n == 1, nil
}
