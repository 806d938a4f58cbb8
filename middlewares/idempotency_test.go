package middlewares

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sisbridge-backend/database"
	"sisbridge-backend/models"
)

func newIdempotencyApp(t *testing.T) (*fiber.App, *int) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.IdempotencyKey{}))
	database.DB = db

	calls := 0
	app := fiber.New()
	app.Use(Idempotency())
	app.Post("/api/sync/charge/:id", func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"created": calls})
	})
	return app, &calls
}

func postCharge(t *testing.T, app *fiber.App, key, body string) (int, string) {
	req := httptest.NewRequest("POST", "/api/sync/charge/INV-3001", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	status, first := postCharge(t, app, "run-41", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, *calls)

	// Same key, same request: the stored body comes back and the
	// handler does not run again.
	status, second := postCharge(t, app, "run-41", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyRejectsKeyReuseWithDifferentRequest(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	status, _ := postCharge(t, app, "run-42", `{"a":1}`)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = postCharge(t, app, "run-42", `{"a":2}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyIgnoresRequestsWithoutKey(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	postCharge(t, app, "", "")
	postCharge(t, app, "", "")
	assert.Equal(t, 2, *calls)
}
