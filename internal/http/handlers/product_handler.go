package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"tappinpay/internal/log"
	"tappinpay/internal/services"
	"tappinpay/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/products?q=&category=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := c.Query("q")
	if q != "" {
		var ok bool
		if q, ok = validate.Q(q); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			return badRequest(c, "invalid search query")
		}
	}
	cat := c.Query("category")
	if cat != "" {
		var ok bool
		if cat, ok = validate.Category(cat); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "category"})
			return badRequest(c, "invalid category")
		}
	}
	return c.JSON(fiber.Map{"products": h.Catalog.Search(c.UserContext(), q, cat)})
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	p, err := h.Catalog.GetProduct(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, services.ErrBadProductID):
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return badRequest(c, "invalid product id")
	case err != nil:
		return jsonError(c, fiber.StatusNotFound, "Product not found")
	}
	return c.JSON(p)
}

func (h *ProductHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": h.Catalog.ListCategories()})
}

// POST /api/v1/products/manual {id}
func (h *ProductHandler) Manual(c *fiber.Ctx) error {
	var req struct {
		ID string `json:"id" form:"id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.Catalog.ManualAdd(c.UserContext(), ensureSID(c), req.ID)
	if err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return badRequest(c, "Please enter a valid product ID")
	}
	return c.JSON(out)
}
