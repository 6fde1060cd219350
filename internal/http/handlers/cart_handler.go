package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tappinpay/internal/log"
	"tappinpay/internal/services"
	"tappinpay/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return c.JSON(h.Cart.View(ensureSID(c)))
}

// GET /cart
func (h *CartHandler) Page(c *fiber.Ctx) error {
	return render(c, "cart", fiber.Map{"Cart": h.Cart.View(ensureSID(c))})
}

// POST /api/v1/cart/items {id}
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req struct {
		ID string `json:"id" form:"id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return badRequest(c, "missing product id")
	}
	cv, err := h.Cart.Add(c.UserContext(), sid, req.ID)
	switch {
	case errors.Is(err, services.ErrBadProductID):
		applog.Security(c, "validation.fail", map[string]any{"field": "id"})
		return badRequest(c, "invalid product id")
	case errors.Is(err, services.ErrProductNotFound):
		return jsonError(c, fiber.StatusNotFound, "Product not found")
	case err != nil:
		return err
	}
	return c.JSON(cv)
}

// PATCH /api/v1/cart/items/:id {quantity}
func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	// quantity may arrive as a JSON number or a string
	var req struct {
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	qty, ok := validate.Qty(strings.Trim(string(req.Quantity), `"`))
	if !ok {
		return badRequest(c, "invalid quantity")
	}
	return c.JSON(h.Cart.SetQuantity(sid, id, qty))
}

// DELETE /api/v1/cart/items/:id
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	return c.JSON(h.Cart.Remove(sid, id))
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cv := h.Cart.Clear(ensureSID(c))
	applog.Audit(c, "cart.clear", nil)
	return c.JSON(cv)
}
