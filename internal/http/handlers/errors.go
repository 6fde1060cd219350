package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tappinpay/internal/log"
)

const friendlyError = "Something went wrong. Please try again."

// ErrorHandler logs the real error and shows a friendly message that never
// carries internals. API callers get JSON, pages get the notfound template.
func ErrorHandler(c *fiber.Ctx, err error) error {
	applog.Error(c, "server.error", err, nil)
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code = fe.Code
	}
	if strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/admin/") {
		return c.Status(code).JSON(fiber.Map{"error": friendlyError})
	}
	// best-effort render
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": friendlyError}); rerr != nil {
		return c.Status(code).SendString(friendlyError)
	}
	return nil
}
