package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"sisbridge-backend/sync"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) Validation errors (422 + per-field info)
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Domain errors
	var upstream *sync.UpstreamUnavailable
	if errors.As(err, &upstream) {
		log.Warn().Err(err).Msg("upstream feed unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "upstream feed unavailable",
		})
	}
	var storage *sync.StorageError
	if errors.As(err, &storage) {
		log.Error().Err(err).Msg("storage failure")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "storage failure",
		})
	}

	// 4) Unknown errors (500)
	log.Error().Err(err).Msg("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
