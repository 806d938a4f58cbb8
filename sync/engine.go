package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"sisbridge-backend/models"
)

// Engine drives the three exposed sync operations. Every step it takes is
// idempotent, so a crashed or capped run is simply resumed by the next one.
type Engine struct {
	cfg       Config
	feed      ChargeFeed
	lines     LineStore
	docs      DocumentStore
	directory CustomerDirectory
	catalog   ProductCatalog
	reporter  Reporter
	runs      RunLog
	mat       *Materializer
}

func New(cfg Config, feed ChargeFeed, lines LineStore, docs DocumentStore,
	directory CustomerDirectory, catalog ProductCatalog, reporter Reporter, runs RunLog) *Engine {
	return &Engine{
		cfg:       cfg,
		feed:      feed,
		lines:     lines,
		docs:      docs,
		directory: directory,
		catalog:   catalog,
		reporter:  reporter,
		runs:      runs,
		mat:       NewMaterializer(docs, lines, directory),
	}
}

// SyncCharge pulls one charge from the feed and materializes its documents.
// A StorageError is fatal for the invocation and comes back as the error.
func (e *Engine) SyncCharge(ctx context.Context, chargeID string) (Summary, error) {
	started := time.Now().UTC()
	details, err := e.feed.DetailsByCharge(ctx, chargeID)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	err = e.syncOne(ctx, &s, chargeID, details)
	e.record(ctx, models.RunKindCharge, chargeID, &s, started)
	return s, err
}

// SyncByCustomer pulls every charge of one customer. A failing charge is
// reported in the summary and does not abort the rest of the batch; only a
// StorageError stops the invocation.
func (e *Engine) SyncByCustomer(ctx context.Context, customerID string) (Summary, error) {
	started := time.Now().UTC()
	details, err := e.feed.DetailsByCustomer(ctx, customerID)
	if err != nil {
		return Summary{}, err
	}
	s, err := e.syncBatch(ctx, details)
	e.record(ctx, models.RunKindCustomer, customerID, &s, started)
	return s, err
}

// SyncByDateRange pulls every charge created inside [from, to].
func (e *Engine) SyncByDateRange(ctx context.Context, from, to time.Time) (Summary, error) {
	started := time.Now().UTC()
	details, err := e.feed.DetailsByDateRange(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	s, err := e.syncBatch(ctx, details)
	e.record(ctx, models.RunKindRange,
		from.Format("2006-01-02")+".."+to.Format("2006-01-02"), &s, started)
	return s, err
}

func (e *Engine) syncBatch(ctx context.Context, details []RawRecord) (Summary, error) {
	var s Summary
	byCharge := make(map[string][]RawRecord)
	var order []string
	for _, rec := range details {
		id := rec["InvoiceID"]
		if id == "" {
			continue
		}
		if _, seen := byCharge[id]; !seen {
			order = append(order, id)
		}
		byCharge[id] = append(byCharge[id], rec)
	}
	sort.Strings(order)

	for _, chargeID := range order {
		if s.Created >= e.cfg.MaxDocsPerRun {
			log.Info().Int("created", s.Created).Msg("document cap reached, deferring remaining charges to next run")
			break
		}
		if err := e.syncOne(ctx, &s, chargeID, byCharge[chargeID]); err != nil {
			return s, err
		}
	}
	return s, nil
}

// syncOne runs the full pipeline for one charge: schedule fetch, normalize,
// partner upsert, staging, installment materialization and the adjustment
// generation walk. Per-charge failures land in the summary and leave the
// rest of the batch alone; a StorageError is returned and stops the run.
func (e *Engine) syncOne(ctx context.Context, s *Summary, chargeID string, details []RawRecord) error {
	schedule, err := e.feed.ScheduleByCharge(ctx, chargeID)
	if err != nil {
		s.addError(chargeID, "fetch schedule", err)
		return nil
	}

	lines, parseErrs := Normalize(chargeID, details, schedule)
	for _, perr := range parseErrs {
		// Malformed lines are dropped, not fatal; the rest of the charge syncs.
		s.Errors = append(s.Errors, SyncError{ChargeID: chargeID, Stage: "parse", Message: perr.Error()})
	}

	// A row answering for a different charge is malformed for this request
	// and must not leak into another charge's staging.
	kept := lines[:0]
	for _, l := range lines {
		if l.ExternalChargeID != chargeID {
			perr := &ParseError{ChargeID: chargeID, Field: "InvoiceID", Value: l.ExternalChargeID,
				Err: errMismatchedCharge}
			log.Warn().Str("charge_id", chargeID).Str("row_charge_id", l.ExternalChargeID).Msg("dropping row for different charge")
			s.Errors = append(s.Errors, SyncError{ChargeID: chargeID, Stage: "parse", Message: perr.Error()})
			continue
		}
		kept = append(kept, l)
	}
	lines = kept
	if len(lines) == 0 {
		s.Skipped++
		return nil
	}

	// Product snapshot is advisory; failure never blocks the charge.
	if err := e.catalog.UpsertAll(ctx, productsFromLines(lines)); err != nil {
		log.Warn().Str("charge_id", chargeID).Err(err).Msg("product catalog refresh failed")
	}

	if customer := CustomerFromRecords(details); customer != nil {
		if err := e.directory.Upsert(ctx, customer); err != nil {
			serr := &StorageError{ChargeID: chargeID, Op: "upsert customer", Err: err}
			s.addError(chargeID, "upsert customer", serr)
			return serr
		}
	}

	for i := range lines {
		if err := e.lines.Put(ctx, &lines[i]); err != nil {
			serr := &StorageError{ChargeID: chargeID, Op: "put line", Err: err}
			s.addError(chargeID, "store lines", serr)
			return serr
		}
	}

	stored, err := e.lines.ChargeLines(ctx, chargeID)
	if err != nil {
		serr := &StorageError{ChargeID: chargeID, Op: "load lines", Err: err}
		s.addError(chargeID, "load lines", serr)
		return serr
	}
	if len(stored) == 0 {
		s.Skipped++
		return nil
	}

	byGen := make(map[int][]models.ChargeLine)
	maxGen := 0
	for _, l := range stored {
		if l.Voided {
			continue
		}
		byGen[l.AdjustmentSeq] = append(byGen[l.AdjustmentSeq], l)
		if l.AdjustmentSeq > maxGen {
			maxGen = l.AdjustmentSeq
		}
	}

	header := headerFor(stored, byGen)

	ok, err := e.materializeInstallments(ctx, s, header, byGen[0])
	if err != nil || !ok {
		return err
	}
	return e.walkAdjustments(ctx, s, header, byGen, maxGen)
}

// headerFor prefers a baseline line for document-level context, since
// adjustment rows may carry sparse header fields.
func headerFor(stored []models.ChargeLine, byGen map[int][]models.ChargeLine) ChargeHeader {
	if base := byGen[0]; len(base) > 0 {
		return HeaderFromLine(&base[0])
	}
	return HeaderFromLine(&stored[0])
}

// materializeInstallments plans and posts the generation-0 installment
// documents. Contributing lines flip to synced only once the last
// installment is in; the unique document keys make a partial replay safe.
// Returns ok=false when the charge should stop before the adjustment walk.
func (e *Engine) materializeInstallments(ctx context.Context, s *Summary, header ChargeHeader, baseline []models.ChargeLine) (bool, error) {
	installments := PlanInstallments(baseline)
	if len(installments) == 0 {
		// A fully-synced baseline still accounts for its documents: one
		// skip per installment the earlier run materialized.
		if len(baseline) > 0 && allSynced(baseline) {
			s.Skipped += installmentCount(baseline[0])
		}
		return true, nil
	}

	var contributing []uint
	for _, l := range baseline {
		if !l.Synced {
			contributing = append(contributing, l.ID)
		}
	}

	for i, inst := range installments {
		ids := []uint(nil)
		if i == len(installments)-1 {
			ids = contributing
		}
		doc, created, err := e.mat.MaterializeInstallment(ctx, header, inst, ids)
		if err != nil {
			s.addError(header.ExternalChargeID, "materialize installment", err)
			return false, storageOrNil(err)
		}
		if created {
			s.Created++
			e.reportPosted(ctx, header.ExternalChargeID, doc)
		} else {
			s.Skipped++
		}
	}
	return true, nil
}

// installmentCount mirrors the planner's term handling: counts outside 1..4
// collapse to the single-payment fallback.
func installmentCount(head models.ChargeLine) int {
	if head.PayTermCount < 1 || head.PayTermCount > 4 {
		return 1
	}
	return head.PayTermCount
}

// storageOrNil keeps storage failures fatal for the invocation while every
// other materialization error stays confined to its charge.
func storageOrNil(err error) error {
	var serr *StorageError
	if errors.As(err, &serr) {
		return serr
	}
	return nil
}

// walkAdjustments replays the adjustment generations in order. A missing
// generation is a sequence gap: the gapped generation and everything after
// it is deferred to a later run, once the feed has backfilled it.
func (e *Engine) walkAdjustments(ctx context.Context, s *Summary, header ChargeHeader,
	byGen map[int][]models.ChargeLine, maxGen int) error {

	for k := 1; k <= maxGen; k++ {
		genLines, ok := byGen[k]
		if !ok || len(genLines) == 0 {
			// Some later generation exists or k would not be <= maxGen;
			// report the first one actually observed past the gap.
			observed := k + 1
			for len(byGen[observed]) == 0 && observed < maxGen {
				observed++
			}
			s.addError(header.ExternalChargeID, "reconcile",
				&SequenceGapError{ChargeID: header.ExternalChargeID, Generation: observed})
			return nil
		}
		baseline := byGen[k-1]
		if len(baseline) == 0 {
			s.addError(header.ExternalChargeID, "reconcile",
				&SequenceGapError{ChargeID: header.ExternalChargeID, Generation: k})
			return nil
		}

		if allSynced(genLines) {
			s.Skipped++
			continue
		}

		deltas := Reconcile(baseline, genLines)

		// Generation 1 diffs against the original charge total; later
		// generations against the previous cumulative adjusted amount.
		priorCum := baseline[0].TotalAmount
		if k > 1 {
			priorCum = baseline[0].CumulativeAdjustedAmount
		}
		direction := AdjustmentDirection(priorCum, genLines[0].CumulativeAdjustedAmount)

		head := genLines[0]
		invoiceDate := head.AdjustmentDate
		if invoiceDate == nil {
			invoiceDate = header.InvoiceDate
		}
		dueDate := head.DueDate2
		if dueDate == nil {
			dueDate = head.DueDate1
		}

		var contributing []uint
		for _, l := range genLines {
			if !l.Synced {
				contributing = append(contributing, l.ID)
			}
		}

		doc, created, err := e.mat.MaterializeAdjustment(ctx, header, k, direction, deltas,
			invoiceDate, dueDate, contributing)
		if err != nil {
			// Later generations diff against this one; defer them too.
			s.addError(header.ExternalChargeID, "materialize adjustment", err)
			return storageOrNil(err)
		}
		if created {
			s.Created++
			e.reportPosted(ctx, header.ExternalChargeID, doc)
		} else {
			s.Skipped++
		}
	}
	return nil
}

// productsFromLines collects the distinct products a charge's lines mention.
func productsFromLines(lines []models.ChargeLine) []models.Product {
	seen := make(map[int]bool)
	var out []models.Product
	for _, l := range lines {
		if l.ProductID == 0 || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		out = append(out, models.Product{
			ProdID:      l.ProductID,
			Code:        l.ProductCode,
			Description: l.ProductDesc,
			AccountCode: l.AccountCode,
			Active:      true,
		})
	}
	return out
}

func allSynced(lines []models.ChargeLine) bool {
	for _, l := range lines {
		if !l.Synced {
			return false
		}
	}
	return true
}

// reportPosted fires the upstream sync-back notification. Failures are
// logged only; the document stays posted.
func (e *Engine) reportPosted(ctx context.Context, chargeID string, doc *models.InvoiceDocument) {
	if doc == nil {
		return
	}
	if err := e.reporter.ReportPosted(ctx, chargeID, doc.ID, doc.AmountTotal); err != nil {
		log.Warn().
			Str("charge_id", chargeID).
			Str("doc_number", doc.DocNumber).
			Err(err).
			Msg("sync-back notification failed")
	}
}

func (e *Engine) record(ctx context.Context, kind, parameter string, s *Summary, started time.Time) {
	finished := time.Now().UTC()
	run := &models.SyncRun{
		Kind:       kind,
		Parameter:  parameter,
		Created:    s.Created,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if len(s.Errors) > 0 {
		if raw, err := json.Marshal(s.Errors); err == nil {
			run.Errors = raw
		}
	}
	if err := e.runs.Record(ctx, run); err != nil {
		log.Error().Str("kind", kind).Str("parameter", parameter).Err(err).Msg("recording sync run failed")
	}
}
