package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/services"
)

// RequireAdmin checks the X-Admin-Pin header on every admin request.
func RequireAdmin(admin *services.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := admin.Authorize(c.Get("X-Admin-Pin")); err != nil {
			applog.Security(c, "access.denied.admin", map[string]any{"reason": err.Error()})
			return jsonError(c, fiber.StatusForbidden, "Access denied")
		}
		return c.Next()
	}
}

type AdminHandler struct {
	Admin *services.AdminService
}

func (h *AdminHandler) adminError(c *fiber.Ctx, action string, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		applog.Security(c, "validation.fail", map[string]any{"fields": ve.Fields})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "fields": ve.Fields})
	case errors.Is(err, services.ErrBadProductID):
		return badRequest(c, "invalid product id")
	case errors.Is(err, services.ErrProductNotFound):
		return jsonError(c, fiber.StatusNotFound, "Product not found")
	}
	applog.Error(c, action, err, nil)
	return jsonError(c, fiber.StatusBadGateway, "Could not save the product. Please try again.")
}

// POST /admin/products
func (h *AdminHandler) AddProduct(c *fiber.Ctx) error {
	var p domain.Product
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "invalid body")
	}
	created, err := h.Admin.AddProduct(c.UserContext(), p)
	if err != nil {
		return h.adminError(c, "admin.product.add.fail", err)
	}
	applog.Audit(c, "admin.product.add", map[string]any{"id": created.ID})
	return c.Status(fiber.StatusCreated).JSON(created)
}

// PUT /admin/products/:id/stock {stock}
func (h *AdminHandler) UpdateStock(c *fiber.Ctx) error {
	var req struct {
		Stock *int `json:"stock"`
	}
	if err := c.BodyParser(&req); err != nil || req.Stock == nil {
		return badRequest(c, "missing stock")
	}
	p, err := h.Admin.UpdateStock(c.UserContext(), c.Params("id"), *req.Stock)
	if err != nil {
		return h.adminError(c, "admin.product.stock.fail", err)
	}
	applog.Audit(c, "admin.product.stock", map[string]any{"id": p.ID, "stock": *req.Stock})
	return c.JSON(p)
}

// GET /admin/tags/:id?format=text|url
func (h *AdminHandler) Tag(c *fiber.Ctx) error {
	msg, err := h.Admin.TagMessage(c.UserContext(), c.Params("id"), c.Query("format"))
	if err != nil {
		return h.adminError(c, "admin.tag.fail", err)
	}
	return c.JSON(msg)
}
