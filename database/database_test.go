package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sisbridge-backend/models"
	"sisbridge-backend/sync"
	"sisbridge-backend/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.ChargeLine{},
		&models.InvoiceDocument{},
		&models.DocumentLine{},
		&models.Reconciliation{},
		&models.SyncRun{},
		&models.IdempotencyKey{},
	))
	return db
}

func testCustomer(t *testing.T, db *gorm.DB) uint {
	dir := NewCustomerDirectory(db)
	require.NoError(t, dir.Upsert(context.Background(), &models.Customer{
		CustomerID: "S-2024-001", Name: "Dela Cruz, Juan", Kind: models.KindStudent, Active: true,
	}))
	id, err := dir.Resolve(context.Background(), "S-2024-001")
	require.NoError(t, err)
	return id
}

func testDoc(partnerID uint, payID string, adjNo int, due *time.Time, total string) *models.InvoiceDocument {
	return &models.InvoiceDocument{
		PartnerID:        partnerID,
		RefNumber:        "REF-1001",
		TypeDescription:  "Tuition",
		DueDate:          due,
		Direction:        models.DirectionDebit,
		State:            models.StateDraft,
		PayInstallmentID: payID,
		AdjustmentNumber: adjNo,
		AmountTotal:      utils.MustDecimal(total),
	}
}

func due(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateDraftDuplicateKeyIsAlreadyExists(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	partner := testCustomer(t, db)
	ctx := context.Background()

	outcome, err := store.CreateDraft(ctx, testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00"))
	require.NoError(t, err)
	assert.Equal(t, sync.Inserted, outcome)

	outcome, err = store.CreateDraft(ctx, testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00"))
	require.NoError(t, err)
	assert.Equal(t, sync.AlreadyExists, outcome)

	// A different installment of the same ref is a new document.
	outcome, err = store.CreateDraft(ctx, testDoc(partner, "502", 0, due(2025, time.August, 15), "400.00"))
	require.NoError(t, err)
	assert.Equal(t, sync.Inserted, outcome)

	// So is an adjustment document for the same ref.
	outcome, err = store.CreateDraft(ctx, testDoc(partner, "", 1, nil, "200.00"))
	require.NoError(t, err)
	assert.Equal(t, sync.Inserted, outcome)
}

func TestPostIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	partner := testCustomer(t, db)
	ctx := context.Background()

	doc := testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00")
	_, err := store.CreateDraft(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, store.Post(ctx, doc.ID))
	require.NoError(t, store.Post(ctx, doc.ID))

	var got models.InvoiceDocument
	require.NoError(t, db.First(&got, doc.ID).Error)
	assert.Equal(t, models.StatePosted, got.State)
	assert.NotNil(t, got.PostedAt)
}

func TestOutstandingOrdersByDueDate(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	partner := testCustomer(t, db)
	ctx := context.Background()

	later := testDoc(partner, "502", 0, due(2025, time.August, 15), "400.00")
	earlier := testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00")
	undated := testDoc(partner, "503", 0, nil, "100.00")
	draft := testDoc(partner, "504", 0, due(2025, time.May, 1), "50.00")
	for _, d := range []*models.InvoiceDocument{later, earlier, undated, draft} {
		_, err := store.CreateDraft(ctx, d)
		require.NoError(t, err)
	}
	for _, d := range []*models.InvoiceDocument{later, earlier, undated} {
		require.NoError(t, store.Post(ctx, d.ID))
	}

	docs, err := store.Outstanding(ctx, partner)
	require.NoError(t, err)
	require.Len(t, docs, 3) // draft excluded
	assert.Equal(t, earlier.ID, docs[0].ID)
	assert.Equal(t, later.ID, docs[1].ID)
	assert.Equal(t, undated.ID, docs[2].ID)
}

func TestAllocateRollsReconciledForward(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	partner := testCustomer(t, db)
	ctx := context.Background()

	invoice := testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00")
	credit := testDoc(partner, "", 1, nil, "200.00")
	credit.Direction = models.DirectionCreditNote
	for _, d := range []*models.InvoiceDocument{invoice, credit} {
		_, err := store.CreateDraft(ctx, d)
		require.NoError(t, err)
		require.NoError(t, store.Post(ctx, d.ID))
	}

	require.NoError(t, store.Allocate(ctx, credit.ID, invoice.ID, utils.MustDecimal("200.00")))

	var gotInvoice, gotCredit models.InvoiceDocument
	require.NoError(t, db.First(&gotInvoice, invoice.ID).Error)
	require.NoError(t, db.First(&gotCredit, credit.ID).Error)
	assert.True(t, gotInvoice.AmountReconciled.Equal(utils.MustDecimal("200.00")))
	assert.True(t, gotCredit.AmountReconciled.Equal(utils.MustDecimal("200.00")))
	assert.True(t, gotInvoice.Residual().Equal(utils.MustDecimal("400.00")))

	var recons []models.Reconciliation
	require.NoError(t, db.Find(&recons).Error)
	require.Len(t, recons, 1)
	assert.Equal(t, credit.ID, recons[0].CreditNoteID)
	assert.Equal(t, invoice.ID, recons[0].InvoiceID)
}

func TestHasPostedDuplicateMatchesTypeDatesAndAmount(t *testing.T) {
	db := newTestDB(t)
	store := NewDocumentStore(db)
	partner := testCustomer(t, db)
	ctx := context.Background()

	doc := testDoc(partner, "501", 0, due(2025, time.June, 15), "600.00")
	doc.InvoiceDate = due(2025, time.June, 1)
	_, err := store.CreateDraft(ctx, doc)
	require.NoError(t, err)

	// Drafts never count as duplicates.
	dup, err := store.HasPostedDuplicate(ctx, partner, doc.InvoiceDate, doc.DueDate, "Tuition", utils.MustDecimal("600.00"))
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, store.Post(ctx, doc.ID))

	dup, err = store.HasPostedDuplicate(ctx, partner, doc.InvoiceDate, doc.DueDate, "Tuition", utils.MustDecimal("600.00"))
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = store.HasPostedDuplicate(ctx, partner, doc.InvoiceDate, doc.DueDate, "Tuition", utils.MustDecimal("600.01"))
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = store.HasPostedDuplicate(ctx, partner, doc.InvoiceDate, nil, "Tuition", utils.MustDecimal("600.00"))
	require.NoError(t, err)
	assert.False(t, dup)
}

func testLine(detailID, adjDetID int) *models.ChargeLine {
	return &models.ChargeLine{
		ExternalChargeID:   "INV-1001",
		DetailID:           detailID,
		AdjustmentDetailID: adjDetID,
		RefNumber:          "REF-1001",
		ProductID:          77,
		ProductDesc:        "Tuition Fee",
		Quantity:           1,
		UnitPrice:          utils.MustDecimal("1000.00"),
		Amount:             utils.MustDecimal("1000.00"),
		PayTermCount:       2,
	}
}

func TestLineStorePutMergesWithoutDowngradingSynced(t *testing.T) {
	db := newTestDB(t)
	store := NewLineStore(db)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testLine(41, 0)))

	lines, err := store.ChargeLines(ctx, "INV-1001")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.NoError(t, store.MarkSynced(ctx, []uint{lines[0].ID}))

	// Re-observe the same line with a changed remark and an unset synced flag.
	update := testLine(41, 0)
	update.Remark1 = "First Payment"
	require.NoError(t, store.Put(ctx, update))

	lines, err = store.ChargeLines(ctx, "INV-1001")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Synced, "synced must never flip back to false")
	assert.Equal(t, "First Payment", lines[0].Remark1)
}

func TestLineStoreOrdersByGenerationThenDetail(t *testing.T) {
	db := newTestDB(t)
	store := NewLineStore(db)
	ctx := context.Background()

	adj := testLine(41, 9)
	adj.AdjustmentSeq = 1
	require.NoError(t, store.Put(ctx, adj))
	require.NoError(t, store.Put(ctx, testLine(42, 0)))
	require.NoError(t, store.Put(ctx, testLine(41, 0)))

	lines, err := store.ChargeLines(ctx, "INV-1001")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 0, lines[0].AdjustmentSeq)
	assert.Equal(t, 41, lines[0].DetailID)
	assert.Equal(t, 42, lines[1].DetailID)
	assert.Equal(t, 1, lines[2].AdjustmentSeq)
}

func TestDirectoryResolveUnknownCustomer(t *testing.T) {
	db := newTestDB(t)
	dir := NewCustomerDirectory(db)

	_, err := dir.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, sync.ErrCustomerNotFound)
}

func TestDirectoryUpsertRefreshesSnapshot(t *testing.T) {
	db := newTestDB(t)
	dir := NewCustomerDirectory(db)
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, &models.Customer{
		CustomerID: "S-2024-001", Name: "Dela Cruz, Juan", Kind: models.KindApplicant, Active: true,
	}))
	require.NoError(t, dir.Upsert(ctx, &models.Customer{
		CustomerID: "S-2024-001", Name: "Dela Cruz, Juan", Kind: models.KindStudent, Course: "BSCS", Active: true,
	}))

	var got models.Customer
	require.NoError(t, db.Where("customer_id = ?", "S-2024-001").Take(&got).Error)
	assert.Equal(t, models.KindStudent, got.Kind)
	assert.Equal(t, "BSCS", got.Course)

	var count int64
	db.Model(&models.Customer{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestProductCatalogUpsertAll(t *testing.T) {
	db := newTestDB(t)
	catalog := NewProductCatalog(db)
	ctx := context.Background()

	require.NoError(t, catalog.UpsertAll(ctx, []models.Product{
		{ProdID: 77, Code: "TUI", Description: "Tuition Fee", Active: true},
	}))
	require.NoError(t, catalog.UpsertAll(ctx, []models.Product{
		{ProdID: 77, Code: "TUI", Description: "Tuition Fee (updated)", Active: true},
		{ProdID: 78, Code: "MISC", Description: "Miscellaneous", Active: true},
	}))

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(2), count)

	var got models.Product
	require.NoError(t, db.Where("prod_id = ?", 77).Take(&got).Error)
	assert.Equal(t, "Tuition Fee (updated)", got.Description)
}

func TestRunLogRecord(t *testing.T) {
	db := newTestDB(t)
	log := NewRunLog(db)
	now := time.Now().UTC()

	run := &models.SyncRun{Kind: models.RunKindCharge, Parameter: "INV-1001", Created: 2, StartedAt: now, FinishedAt: &now}
	require.NoError(t, log.Record(context.Background(), run))
	assert.NotEmpty(t, run.ID)

	var got models.SyncRun
	require.NoError(t, db.Where("parameter = ?", "INV-1001").Take(&got).Error)
	assert.Equal(t, 2, got.Created)
}
