package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

// Materializer turns installments and adjustment deltas into posted ledger
// documents. All duplicate detection rides on unique-constraint-backed
// inserts plus the type-specific posted-duplicate query; a concurrent retry
// can therefore never double-post.
type Materializer struct {
	docs      DocumentStore
	lines     LineStore
	directory CustomerDirectory
}

func NewMaterializer(docs DocumentStore, lines LineStore, directory CustomerDirectory) *Materializer {
	return &Materializer{docs: docs, lines: lines, directory: directory}
}

// MaterializeInstallment creates and posts the document for one installment.
// Returns (doc, false, nil) when an idempotency check decided to skip.
// Contributing lines are flagged synced only after a successful post or an
// AlreadyExists outcome (the document exists, so the lines are covered).
func (m *Materializer) MaterializeInstallment(ctx context.Context, header ChargeHeader,
	inst Installment, contributing []uint) (*models.InvoiceDocument, bool, error) {

	if len(inst.Lines) == 0 {
		return nil, false, nil
	}

	partnerID, err := m.directory.Resolve(ctx, header.CustomerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, false, &UnresolvedCustomer{ChargeID: header.ExternalChargeID, CustomerID: header.CustomerID}
		}
		return nil, false, &StorageError{ChargeID: header.ExternalChargeID, Op: "resolve customer", Err: err}
	}

	doc := &models.InvoiceDocument{
		PartnerID:        partnerID,
		RefNumber:        header.RefNumber,
		TypeDescription:  header.TypeDescription,
		InvoiceDate:      header.InvoiceDate,
		DueDate:          inst.DueDate,
		Direction:        models.DirectionDebit,
		State:            models.StateDraft,
		IsFirstPayment:   inst.IsFirstPayment,
		PayInstallmentID: inst.PayInstallmentID,
		Category:         models.CategorySubsidized,
		Remark:           inst.Remark,
		Course:           header.Course,
		YearLevel:        header.YearLevel,
		SchoolYear:       header.SchoolYear,
		Term:             header.Term,
	}
	total := decimal.Zero
	for _, l := range inst.Lines {
		doc.Lines = append(doc.Lines, models.DocumentLine{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			PriceUnit:   l.PriceUnit,
		})
		total = total.Add(l.PriceUnit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	doc.AmountTotal = utils.Round2(total)

	dup, err := m.docs.HasPostedDuplicate(ctx, partnerID, header.InvoiceDate, inst.DueDate,
		header.TypeDescription, doc.AmountTotal)
	if err != nil {
		return nil, false, &StorageError{ChargeID: header.ExternalChargeID, Op: "duplicate check", Err: err}
	}
	if dup {
		return nil, false, m.markSynced(ctx, header, contributing)
	}

	created, err := m.createAndPost(ctx, header, doc, inst.Sequence, 0)
	if err != nil {
		return nil, false, err
	}
	return doc, created, m.markSynced(ctx, header, contributing)
}

// MaterializeAdjustment creates and posts the correction document of one
// adjustment generation, then allocates credit notes against the partner's
// outstanding invoices, oldest due date first.
func (m *Materializer) MaterializeAdjustment(ctx context.Context, header ChargeHeader,
	generation int, direction string, deltas []LineDelta,
	invoiceDate, dueDate *time.Time, contributing []uint) (*models.InvoiceDocument, bool, error) {

	docLines := adjustmentLines(direction, deltas)
	if len(docLines) == 0 {
		// Net line set is empty: nothing to correct for this generation.
		return nil, false, m.markSynced(ctx, header, contributing)
	}

	partnerID, err := m.directory.Resolve(ctx, header.CustomerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, false, &UnresolvedCustomer{ChargeID: header.ExternalChargeID, CustomerID: header.CustomerID}
		}
		return nil, false, &StorageError{ChargeID: header.ExternalChargeID, Op: "resolve customer", Err: err}
	}

	doc := &models.InvoiceDocument{
		PartnerID:        partnerID,
		RefNumber:        header.RefNumber,
		TypeDescription:  header.TypeDescription,
		InvoiceDate:      invoiceDate,
		DueDate:          dueDate,
		Direction:        direction,
		State:            models.StateDraft,
		AdjustmentNumber: generation,
		Category:         models.CategorySubsidized,
		Course:           header.Course,
		YearLevel:        header.YearLevel,
		SchoolYear:       header.SchoolYear,
		Term:             header.Term,
		Lines:            docLines,
	}
	total := decimal.Zero
	for _, l := range docLines {
		total = total.Add(l.PriceUnit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	doc.AmountTotal = utils.Round2(total)

	created, err := m.createAndPost(ctx, header, doc, 0, generation)
	if err != nil {
		return nil, false, err
	}

	if created && direction == models.DirectionCreditNote {
		if err := m.allocate(ctx, header, doc); err != nil {
			return nil, false, err
		}
	}
	return doc, created, m.markSynced(ctx, header, contributing)
}

// adjustmentLines converts signed deltas to document lines. Credit notes
// carry the negated delta (a removal becomes a positive credit line);
// supplemental invoices carry the absolute delta.
func adjustmentLines(direction string, deltas []LineDelta) []models.DocumentLine {
	out := make([]models.DocumentLine, 0, len(deltas))
	for _, d := range deltas {
		price := d.Amount.Abs()
		if direction == models.DirectionCreditNote {
			price = d.Amount.Neg()
		}
		if price.IsZero() {
			continue
		}
		out = append(out, models.DocumentLine{
			ProductID:   d.ProductID,
			Description: d.Description,
			Quantity:    1,
			PriceUnit:   utils.Round2(price),
		})
	}
	return out
}

func (m *Materializer) createAndPost(ctx context.Context, header ChargeHeader,
	doc *models.InvoiceDocument, installment, adjustment int) (bool, error) {

	outcome, err := m.docs.CreateDraft(ctx, doc)
	if err != nil {
		return false, &MaterializationError{
			ChargeID: header.ExternalChargeID, RefNumber: header.RefNumber,
			Installment: installment, Adjustment: adjustment, Err: err,
		}
	}
	if outcome == AlreadyExists {
		// The existence check is state-blind: a draft left by a crash
		// between create and post also lands here and stays a draft. Those
		// surface through state=draft on the documents listing and are
		// posted by hand.
		log.Debug().
			Str("charge_id", header.ExternalChargeID).
			Str("ref_number", header.RefNumber).
			Int("installment", installment).
			Int("adjustment", adjustment).
			Msg("document already materialized, skipping")
		return false, nil
	}

	if err := m.docs.Post(ctx, doc.ID); err != nil {
		return false, &MaterializationError{
			ChargeID: header.ExternalChargeID, RefNumber: header.RefNumber,
			Installment: installment, Adjustment: adjustment, Err: err,
		}
	}
	doc.State = models.StatePosted
	return true, nil
}

func (m *Materializer) allocate(ctx context.Context, header ChargeHeader, creditNote *models.InvoiceDocument) error {
	candidates, err := m.docs.Outstanding(ctx, creditNote.PartnerID)
	if err != nil {
		return &StorageError{ChargeID: header.ExternalChargeID, Op: "load outstanding invoices", Err: err}
	}
	res := AllocateCredit(creditNote.AmountTotal, candidates)
	for _, a := range res.Allocations {
		if err := m.docs.Allocate(ctx, creditNote.ID, a.InvoiceID, a.Amount); err != nil {
			return &StorageError{ChargeID: header.ExternalChargeID, Op: "allocate credit", Err: err}
		}
	}
	if res.Remaining.Sign() > 0 {
		log.Info().
			Str("charge_id", header.ExternalChargeID).
			Str("credit_note", creditNote.DocNumber).
			Str("unapplied", res.Remaining.String()).
			Msg("credit exceeds outstanding invoices, excess left unapplied")
	}
	return nil
}

func (m *Materializer) markSynced(ctx context.Context, header ChargeHeader, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := m.lines.MarkSynced(ctx, ids); err != nil {
		return &StorageError{ChargeID: header.ExternalChargeID, Op: "mark synced", Err: err}
	}
	return nil
}
