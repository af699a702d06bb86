package model

import "time"

// EventType tags a ContractEvent.
type EventType string

const (
	EventIssued     EventType = "Issued"
	EventVerified   EventType = "Verified"
	EventRevoked    EventType = "Revoked"
	EventSuspended  EventType = "Suspended"
	EventReinstated EventType = "Reinstated"
)

// Verification outcomes recorded on Verified events.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
)

// ContractEvent is one entry in the append-only audit trail. Events are
// never mutated after they are written.
type ContractEvent struct {
	ID                  string    `json:"id"`
	Type                EventType `json:"type"`
	CertificateID       string    `json:"certificateId,omitempty"`
	DocumentFingerprint string    `json:"documentFingerprint"`
	Actor               string    `json:"actor"`
	Reason              string    `json:"reason,omitempty"`
	Outcome             string    `json:"outcome,omitempty"` // Verified events only
	TransactionHash     string    `json:"transactionHash"`
	BlockNumber         int64     `json:"blockNumber"`
	Timestamp           time.Time `json:"timestamp"`
}
