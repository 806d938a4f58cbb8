package middlewares

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(t *testing.T) *fiber.App {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	app := fiber.New()
	app.Use(IsAuthenticatedHeader())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": c.Locals("userID")})
	})
	return app
}

func TestAuthAcceptsValidToken(t *testing.T) {
	app := newAuthApp(t)

	token, err := GenerateJWT("sync-scheduler")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	app := newAuthApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	app := newAuthApp(t)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
