package model

import "time"

// GenesisParentHash is the parent hash recorded on block 1, which has no
// predecessor.
const GenesisParentHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CertificateRecord is one issued certificate on the ledger. Records are
// never physically deleted; status moves through the lifecycle defined in
// status.go and every change is appended to StatusHistory.
type CertificateRecord struct {
	ID                  string            `json:"id"` // UUID, assigned at issuance
	DocumentFingerprint string            `json:"documentFingerprint"`
	StorageLocator      string            `json:"storageLocator"` // opaque pointer into the document vault
	Proof               *SimulatedProof   `json:"proof"`
	ProofFingerprint    string            `json:"proofFingerprint"` // hash of the serialized proof
	Issuer              string            `json:"issuer"`
	Holder              string            `json:"holder"`
	DocumentType        string            `json:"documentType"`
	DocumentCategory    string            `json:"documentCategory"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Status              Status            `json:"status"`
	StatusHistory       []StatusChange    `json:"statusHistory"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	BlockNumber         int64             `json:"blockNumber"`
	TransactionHash     string            `json:"transactionHash"`
}

// StatusChange is one entry in a certificate's append-only status history.
// The first entry of every record is {From: StatusNone, To: StatusActive}.
type StatusChange struct {
	From            Status    `json:"from"`
	To              Status    `json:"to"`
	ChangedBy       string    `json:"changedBy"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
	TransactionHash string    `json:"transactionHash"`
}

// Block groups the transactions minted by a single ledger call. Numbers are
// globally monotonic starting at 1, and ParentHash of block N equals the Hash
// of block N-1 (GenesisParentHash for block 1).
type Block struct {
	Number       int64     `json:"number"`
	Hash         string    `json:"hash"`
	ParentHash   string    `json:"parentHash"`
	Transactions []string  `json:"transactions"` // ordered transaction hashes
	MinedAt      time.Time `json:"minedAt"`
}

// TxStatus is the outcome recorded on a transaction.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Transaction records one ledger call. Exactly one transaction is minted per
// mutating call and per verification attempt.
type Transaction struct {
	Hash        string            `json:"hash"`
	From        string            `json:"from"` // actor id (issuer, verifier, ...)
	To          string            `json:"to"`   // logical registry name
	BlockNumber int64             `json:"blockNumber"`
	Timestamp   time.Time         `json:"timestamp"`
	Method      string            `json:"method"`
	Args        map[string]string `json:"args,omitempty"`
	Status      TxStatus          `json:"status"`
	EventIDs    []string          `json:"events"`
}
