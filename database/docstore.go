package database

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sisbridge-backend/models"
	"sisbridge-backend/sync"
)

// DocumentStore posts ledger documents. Duplicate detection rides on the
// unique index (ref_number, pay_installment_id, adjustment_number): the store
// inserts and lets the constraint decide, never check-then-act.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) CreateDraft(ctx context.Context, doc *models.InvoiceDocument) (sync.InsertOutcome, error) {
	err := s.db.WithContext(ctx).Create(doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sync.AlreadyExists, nil
		}
		return sync.Inserted, err
	}
	return sync.Inserted, nil
}

// Post flips a draft to posted. Posting an already-posted document is a
// no-op, so a replayed run never trips here.
func (s *DocumentStore) Post(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&models.InvoiceDocument{}).
		Where("id = ? AND state = ?", id, models.StateDraft).
		Updates(map[string]interface{}{"state": models.StatePosted, "posted_at": &now}).Error
}

func (s *DocumentStore) HasPostedDuplicate(ctx context.Context, partnerID uint, invoiceDate, dueDate *time.Time,
	typeDescription string, amount decimal.Decimal) (bool, error) {

	q := s.db.WithContext(ctx).Model(&models.InvoiceDocument{}).
		Where("partner_id = ? AND state = ? AND direction = ? AND type_description = ? AND amount_total = ?",
			partnerID, models.StatePosted, models.DirectionDebit, typeDescription, amount)
	q = whereNullableTime(q, "invoice_date", invoiceDate)
	q = whereNullableTime(q, "due_date", dueDate)

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func whereNullableTime(q *gorm.DB, column string, t *time.Time) *gorm.DB {
	if t == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *t)
}

// Outstanding lists the partner's posted original invoices that still carry a
// residual, oldest due date first. Documents without a due date sort last.
func (s *DocumentStore) Outstanding(ctx context.Context, partnerID uint) ([]models.InvoiceDocument, error) {
	var docs []models.InvoiceDocument
	err := s.db.WithContext(ctx).
		Where("partner_id = ? AND state = ? AND direction = ? AND adjustment_number = 0 AND amount_total > amount_reconciled",
			partnerID, models.StatePosted, models.DirectionDebit).
		Order("due_date IS NULL, due_date ASC, id ASC").
		Find(&docs).Error
	return docs, err
}

// Allocate records one credit-note-to-invoice allocation and rolls the
// reconciled amounts forward on both documents, atomically.
func (s *DocumentStore) Allocate(ctx context.Context, creditNoteID, invoiceID uint, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := models.Reconciliation{CreditNoteID: creditNoteID, InvoiceID: invoiceID, Amount: amount}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		for _, id := range []uint{invoiceID, creditNoteID} {
			err := tx.Model(&models.InvoiceDocument{}).
				Where("id = ?", id).
				Update("amount_reconciled", gorm.Expr("amount_reconciled + ?", amount)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
