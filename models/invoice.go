package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Document direction.
const (
	DirectionDebit      = "debit_invoice"
	DirectionCreditNote = "credit_note"
)

// Document state machine: draft -> posted. Posted documents are immutable to
// the engine; corrections arrive as new adjustment documents.
const (
	StateDraft  = "draft"
	StatePosted = "posted"
)

// Invoice category.
const (
	CategorySubsidized    = "subsidized"
	CategoryPassedThrough = "passed_through"
)

// InvoiceDocument is a materialized, postable ledger document.
//
// Idempotency keys (each backed by a unique index, see database.Migrate):
//   - (ref_number, pay_installment_id) for installment documents
//   - (ref_number, adjustment_number)  for adjustment documents
type InvoiceDocument struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	DocNumber string   `json:"doc_number" gorm:"size:64;uniqueIndex"`
	PartnerID uint     `json:"-" gorm:"index"`
	Partner   Customer `json:"partner" gorm:"foreignKey:PartnerID;references:ID"`

	RefNumber       string     `json:"ref_number" gorm:"uniqueIndex:idx_invoice_documents_doc_key,priority:1"`
	TypeDescription string     `json:"type_description"`
	InvoiceDate     *time.Time `json:"invoice_date"`
	DueDate         *time.Time `json:"due_date"`
	Direction       string     `json:"direction" gorm:"size:20;not null"`
	State           string     `json:"state" gorm:"size:10;not null"`

	Lines       []DocumentLine  `json:"lines" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	AmountTotal decimal.Decimal `json:"amount_total" gorm:"type:numeric(12,2)"`

	// Allocation rollup; residual = AmountTotal - AmountReconciled.
	AmountReconciled decimal.Decimal `json:"amount_reconciled" gorm:"type:numeric(12,2)"`

	IsFirstPayment   bool   `json:"is_first_payment"`
	PayInstallmentID string `json:"pay_installment_id" gorm:"size:32;uniqueIndex:idx_invoice_documents_doc_key,priority:2"`
	AdjustmentNumber int    `json:"adjustment_number" gorm:"uniqueIndex:idx_invoice_documents_doc_key,priority:3"` // 0 for original installment documents
	Category         string `json:"category" gorm:"size:20"`
	Remark           string `json:"remark"`

	Course     string `json:"course"`
	YearLevel  string `json:"year_level"`
	SchoolYear string `json:"school_year"`
	Term       string `json:"term"`

	PostedAt  *time.Time `json:"posted_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (d *InvoiceDocument) BeforeCreate(tx *gorm.DB) (err error) {
	if d.DocNumber == "" {
		d.DocNumber = uuid.NewString()
	}
	return
}

// Residual is the still-unallocated portion of a posted document.
func (d *InvoiceDocument) Residual() decimal.Decimal {
	return d.AmountTotal.Sub(d.AmountReconciled)
}

type DocumentLine struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	DocumentID  uint            `json:"-" gorm:"index"`
	ProductID   int             `json:"product_id" gorm:"not null;index"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	PriceUnit   decimal.Decimal `json:"price_unit" gorm:"type:numeric(12,2)"`
}

// Reconciliation records one allocation of a credit note against an invoice.
type Reconciliation struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	CreditNoteID uint            `json:"credit_note_id" gorm:"index"`
	InvoiceID    uint            `json:"invoice_id" gorm:"index"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	CreatedAt    time.Time       `json:"created_at"`
}
