package model

import "fmt"

// Status is the lifecycle state of a certificate record. It is a closed set:
// the only way a record changes status is through the transition methods
// below, which reject illegal moves.
type Status string

const (
	// StatusNone is the pre-issuance pseudo-state. It only ever appears as
	// the From side of the first StatusChange entry.
	StatusNone Status = "none"

	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the three real lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusSuspended:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transition from s to target is legal.
// Revoked is terminal. Suspension is only reachable from Active, and
// reinstatement (back to Active) only from Suspended.
func (s Status) CanTransitionTo(target Status) bool {
	switch {
	case s == StatusActive && target == StatusRevoked:
		return true
	case s == StatusActive && target == StatusSuspended:
		return true
	case s == StatusSuspended && target == StatusRevoked:
		return true
	case s == StatusSuspended && target == StatusActive:
		return true
	}
	return false
}

// Transition applies a status change to the record, appending the
// corresponding StatusChange entry. It is the only mutation path for
// CertificateRecord.Status after issuance.
func (r *CertificateRecord) Transition(change StatusChange) error {
	if change.From != r.Status {
		return fmt.Errorf("status change from %q does not match current status %q", change.From, r.Status)
	}
	if !r.Status.CanTransitionTo(change.To) {
		return fmt.Errorf("illegal status transition %q -> %q", r.Status, change.To)
	}
	r.Status = change.To
	r.StatusHistory = append(r.StatusHistory, change)
	r.UpdatedAt = change.Timestamp
	return nil
}
