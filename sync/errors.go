package sync

import (
	"errors"
	"fmt"
)

// errMismatchedCharge marks a feed row whose InvoiceID differs from the
// charge it was requested for.
var errMismatchedCharge = errors.New("row answers for a different charge")

// Every error carries the charge/line identity needed to re-drive a retry.
// Batch policy: ParseError drops a line, UnresolvedCustomer /
// MaterializationError / SequenceGapError abort one charge, StorageError and
// UpstreamUnavailable abort the invocation.

// ParseError marks one malformed remote record. The line is dropped and the
// sync continues.
type ParseError struct {
	ChargeID string
	Field    string
	Value    string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("charge %s: cannot parse %s=%q: %v", e.ChargeID, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError is fatal for the current invocation.
type StorageError struct {
	ChargeID string
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("charge %s: storage %s failed: %v", e.ChargeID, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UnresolvedCustomer means the directory has no partner for the charge's
// customer. Reported per charge; the charge is retried on a later pass once
// the customer exists.
type UnresolvedCustomer struct {
	ChargeID   string
	CustomerID string
}

func (e *UnresolvedCustomer) Error() string {
	return fmt.Sprintf("charge %s: customer %s not resolved to a partner", e.ChargeID, e.CustomerID)
}

// MaterializationError means the ledger rejected a document. The charge is
// retried on the next pass; earlier partial documents are tolerated by the
// idempotency checks.
type MaterializationError struct {
	ChargeID    string
	RefNumber   string
	Installment int // 0 when the failure is on an adjustment document
	Adjustment  int // generation number, 0 for installment documents
	Err         error
}

func (e *MaterializationError) Error() string {
	if e.Adjustment > 0 {
		return fmt.Sprintf("charge %s ref %s adjustment %d: materialization failed: %v",
			e.ChargeID, e.RefNumber, e.Adjustment, e.Err)
	}
	return fmt.Sprintf("charge %s ref %s installment %d: materialization failed: %v",
		e.ChargeID, e.RefNumber, e.Installment, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// UpstreamUnavailable is a transient remote failure (including timeouts).
// Safe to retry on the next scheduled pass.
type UpstreamUnavailable struct {
	Op  string
	Err error
}

func (e *UpstreamUnavailable) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Op, e.Err)
}

func (e *UpstreamUnavailable) Unwrap() error { return e.Err }

// SequenceGapError reports an adjustment generation observed without its
// predecessor baseline. The generation (and everything after it) is deferred,
// never guessed.
type SequenceGapError struct {
	ChargeID   string
	Generation int
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("charge %s: adjustment generation %d observed without generation %d baseline",
		e.ChargeID, e.Generation, e.Generation-1)
}
