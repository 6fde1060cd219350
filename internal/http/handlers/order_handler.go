package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "tappinpay/internal/log"
	"tappinpay/internal/services"
)

type OrderHandler struct {
	Checkout *services.CheckoutService
}

func (h *OrderHandler) checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return badRequest(c, "Your cart is empty")
	case errors.Is(err, services.ErrUnknownPayment):
		return jsonError(c, fiber.StatusNotFound, "Payment not found")
	case errors.Is(err, services.ErrPaymentFailed):
		return jsonError(c, fiber.StatusPaymentRequired, "Payment failed. Please try again.")
	case errors.Is(err, services.ErrOrderFailed):
		applog.Error(c, "checkout.fail", err, nil)
		return jsonError(c, fiber.StatusBadGateway, services.OrderFailedMessage)
	}
	return err
}

// GET /api/v1/checkout
func (h *OrderHandler) Quote(c *fiber.Ctx) error {
	return c.JSON(h.Checkout.Quote(ensureSID(c)))
}

// POST /api/v1/checkout/upi
func (h *OrderHandler) StartUPI(c *fiber.Ctx) error {
	pi, err := h.Checkout.StartUPI(ensureSID(c))
	if err != nil {
		return h.checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pi)
}

// POST /api/v1/checkout/upi/:id/confirm {paid}
func (h *OrderHandler) ConfirmUPI(c *fiber.Ctx) error {
	var req struct {
		Paid bool `json:"paid"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	id := c.Params("id")
	if !strings.HasPrefix(id, "ORD") || len(id) > 32 {
		return jsonError(c, fiber.StatusNotFound, "Payment not found")
	}
	o, err := h.Checkout.ConfirmUPI(c.UserContext(), ensureSID(c), id, req.Paid)
	if err != nil {
		return h.checkoutError(c, err)
	}
	applog.Audit(c, "checkout.upi.confirm", map[string]any{"order_id": o.ID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// POST /api/v1/checkout/demo
func (h *OrderHandler) Demo(c *fiber.Ctx) error {
	o, err := h.Checkout.Demo(c.UserContext(), ensureSID(c))
	if err != nil {
		return h.checkoutError(c, err)
	}
	applog.Audit(c, "checkout.demo", map[string]any{"order_id": o.ID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders/last
func (h *OrderHandler) Last(c *fiber.Ctx) error {
	o, err := h.Checkout.LastOrder(ensureSID(c))
	if err != nil {
		return err
	}
	if o == nil {
		return jsonError(c, fiber.StatusNotFound, "No recent order found")
	}
	return c.JSON(o)
}

// GET /api/v1/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	list, err := h.Checkout.History(ensureSID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"orders": list})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" || len(id) > 64 {
		return jsonError(c, fiber.StatusNotFound, "Order not found")
	}
	o := h.Checkout.Order(c.UserContext(), id)
	if o == nil {
		return jsonError(c, fiber.StatusNotFound, "Order not found")
	}
	return c.JSON(o)
}

// GET /invoice
func (h *OrderHandler) Invoice(c *fiber.Ctx) error {
	o, err := h.Checkout.LastOrder(ensureSID(c))
	if err != nil {
		return err
	}
	if o == nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "No recent order found"})
	}
	return render(c, "invoice", fiber.Map{"Order": o})
}
