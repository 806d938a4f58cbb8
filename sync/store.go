package sync

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
)

// ErrCustomerNotFound is returned by CustomerDirectory.Resolve when no
// partner exists for an external customer id.
var ErrCustomerNotFound = errors.New("customer not found")

// InsertOutcome is the result of a unique-constraint-backed insert. The
// stores never check-then-act; a concurrent duplicate surfaces as
// AlreadyExists, which the engine treats as an idempotent skip.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyExists
)

// LineStore persists ChargeLines keyed by
// (external_charge_id, detail_id, adjustment_detail_id). Put inserts new
// identities and merges non-identity fields into existing rows
// (last-write-wins), except it never downgrades synced from true to false.
// Byte-identical re-puts are no-ops.
type LineStore interface {
	Put(ctx context.Context, line *models.ChargeLine) error
	ChargeLines(ctx context.Context, externalChargeID string) ([]models.ChargeLine, error)
	MarkSynced(ctx context.Context, ids []uint) error
}

// DocumentStore is the ledger posting API plus the queries the engine needs
// for idempotency checks and credit allocation.
type DocumentStore interface {
	// CreateDraft inserts a draft document. A unique-index conflict on any
	// idempotency key reports AlreadyExists without error.
	CreateDraft(ctx context.Context, doc *models.InvoiceDocument) (InsertOutcome, error)

	// Post flips a draft to posted. Posted documents are immutable here.
	Post(ctx context.Context, id uint) error

	// HasPostedDuplicate is the type-specific duplicate check on
	// (partner, invoiceDate, dueDate, typeDescription, amount).
	HasPostedDuplicate(ctx context.Context, partnerID uint, invoiceDate, dueDate *time.Time,
		typeDescription string, amount decimal.Decimal) (bool, error)

	// Outstanding lists the partner's posted, unadjusted debit invoices with
	// a positive residual, ordered by ascending due date.
	Outstanding(ctx context.Context, partnerID uint) ([]models.InvoiceDocument, error)

	// Allocate records one credit-note-to-invoice allocation and rolls the
	// reconciled amounts forward on both documents.
	Allocate(ctx context.Context, creditNoteID, invoiceID uint, amount decimal.Decimal) error
}

// ProductCatalog keeps the local product snapshot fresh from feed lines.
type ProductCatalog interface {
	UpsertAll(ctx context.Context, products []models.Product) error
}

// CustomerDirectory resolves external customer ids to local partners.
// Creating missing customers is an external responsibility.
type CustomerDirectory interface {
	Resolve(ctx context.Context, customerID string) (uint, error)
	Upsert(ctx context.Context, customer *models.Customer) error
}

// Reporter sends the posted-document confirmation back upstream. Failures
// must not roll anything back; the engine logs and moves on.
type Reporter interface {
	ReportPosted(ctx context.Context, chargeID string, documentID uint, total decimal.Decimal) error
}

// RunLog records one engine invocation's summary.
type RunLog interface {
	Record(ctx context.Context, run *models.SyncRun) error
}
