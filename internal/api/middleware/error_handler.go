package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
)

// ErrorHandler renders every error as {"error":{"code","message"}}
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Check if it's a Fiber error
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := "HTTP_ERROR"
			if fiberErr.Code == fiber.StatusRequestEntityTooLarge {
				code = domain.ErrImageTooLarge.Code
			}
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": fiberErr.Message,
				},
			})
		}

		// Check if it's our AppError
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("request failed",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
					slog.String("path", c.Path()),
					slog.String("request_id", requestID(c)),
				)
			}

			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    appErr.Code,
					"message": appErr.Message,
				},
			})
		}

		// Unknown error - log and return generic message
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", requestID(c)),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			},
		})
	}
}

// requestID returns the id set by the requestid middleware, if any
func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
