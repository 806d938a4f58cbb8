package routes

import (
	"github.com/gofiber/fiber/v2"

	"sisbridge-backend/controllers"
	"sisbridge-backend/database"
	"sisbridge-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard for the sync triggers
	protected.Use(middlewares.Idempotency())

	// Sync triggers
	protected.Post("/sync/charge/:id", controllers.SyncCharge)
	protected.Post("/sync/customer/:id", controllers.SyncCustomer)
	protected.Post("/sync/range", controllers.SyncRange)

	// Materialized documents and audit trail
	protected.Get("/documents", controllers.GetDocuments)
	protected.Get("/document/:id", controllers.GetDocument)
	protected.Get("/document/:id/allocations", controllers.GetDocumentAllocations)
	protected.Get("/runs", controllers.GetSyncRuns)
}
