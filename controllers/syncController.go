package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"sisbridge-backend/middlewares"
	"sisbridge-backend/sync"
)

var engine *sync.Engine

// Setup injects the sync engine the handlers drive.
func Setup(e *sync.Engine) {
	engine = e
}

// SyncCharge pulls and materializes a single charge.
func SyncCharge(c *fiber.Ctx) error {
	chargeID := c.Params("id")
	if chargeID == "" {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid charge ID"})
	}

	summary, err := engine.SyncCharge(c.UserContext(), chargeID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// SyncCustomer pulls and materializes every charge of one customer.
func SyncCustomer(c *fiber.Ctx) error {
	customerID := c.Params("id")
	if customerID == "" {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid customer ID"})
	}

	summary, err := engine.SyncByCustomer(c.UserContext(), customerID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

type syncRangeRequest struct {
	DateFrom string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string `json:"date_to" validate:"required,datetime=2006-01-02"`
}

// SyncRange pulls and materializes every charge created inside a date range.
func SyncRange(c *fiber.Ctx) error {
	var req syncRangeRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	from, _ := time.Parse("2006-01-02", req.DateFrom)
	to, _ := time.Parse("2006-01-02", req.DateTo)
	if to.Before(from) {
		return c.Status(400).JSON(fiber.Map{"message": "date_to before date_from"})
	}

	summary, err := engine.SyncByDateRange(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
