package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	applog "tappinpay/internal/log"
	"tappinpay/internal/remote"
)

type HealthHandler struct {
	DB  *sqlx.DB
	API *remote.Client
}

// GET /healthz. The remote API is reported but does not fail the probe.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		applog.Error(c, "health.db.fail", err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
	}
	return c.JSON(fiber.Map{"ok": true, "api": h.API.Health(ctx)})
}
