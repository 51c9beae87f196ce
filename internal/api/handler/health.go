package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const version = "0.1.0"

// Pinger reports database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider string
	db       Pinger
	logger   *slog.Logger
}

// NewHealthHandler creates the health handler. db may be nil when the
// service runs without persistence.
func NewHealthHandler(provider string, db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{provider: provider, db: db, logger: logger}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Provider string `json:"provider,omitempty"`
	Database string `json:"database,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:   "ok",
		Version:  version,
		Provider: h.provider,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(HealthResponse{Status: "ready", Database: "disabled"})
	}

	if err := h.db.Ping(c.UserContext()); err != nil {
		h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status:   "unavailable",
			Database: "down",
		})
	}

	return c.JSON(HealthResponse{Status: "ready", Database: "up"})
}
