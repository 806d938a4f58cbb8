package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"sisbridge-backend/database"
	"sisbridge-backend/models"
)

// GetDocuments lists materialized documents, optionally filtered by the
// external customer id, the charge ref number or the document state.
// state=draft surfaces documents a crashed run left unposted.
func GetDocuments(c *fiber.Ctx) error {
	q := database.DB.Model(&models.InvoiceDocument{}).Preload("Lines").Preload("Partner")

	if customerID := c.Query("customer_id"); customerID != "" {
		q = q.Joins("JOIN customers ON customers.id = invoice_documents.partner_id").
			Where("customers.customer_id = ?", customerID)
	}
	if ref := c.Query("ref_number"); ref != "" {
		q = q.Where("invoice_documents.ref_number = ?", ref)
	}
	if state := c.Query("state"); state != "" {
		q = q.Where("invoice_documents.state = ?", state)
	}

	var docs []models.InvoiceDocument
	if err := q.Order("invoice_documents.id ASC").Find(&docs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Could not load documents"})
	}
	return c.JSON(docs)
}

func GetDocument(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid document ID"})
	}

	var doc models.InvoiceDocument
	if err := database.DB.Preload("Lines").Preload("Partner").First(&doc, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"message": "Document not found"})
	}
	return c.JSON(doc)
}

// GetDocumentAllocations lists the credit allocations touching a document,
// on either side.
func GetDocumentAllocations(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid document ID"})
	}

	var recs []models.Reconciliation
	err = database.DB.
		Where("credit_note_id = ? OR invoice_id = ?", id, id).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Could not load allocations"})
	}
	return c.JSON(recs)
}

// GetSyncRuns lists the most recent engine invocations, newest first.
func GetSyncRuns(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	var runs []models.SyncRun
	if err := database.DB.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Could not load sync runs"})
	}
	return c.JSON(runs)
}
