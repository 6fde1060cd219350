package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/notify"
	"tappinpay/internal/scan"
	"tappinpay/internal/services"
)

// ScanHandler is the bridge between the browser's camera/NFC APIs and the
// session controllers.
type ScanHandler struct {
	Sessions *services.SessionService
}

func mode(c *fiber.Ctx) (scan.Mode, bool) {
	return scan.ParseMode(strings.ToLower(c.Params("mode")))
}

// activation failures map to statuses the browser can branch on
var activationStatus = map[domain.OutcomeKind]int{
	domain.OutcomeActivated:        fiber.StatusOK,
	domain.OutcomePermissionDenied: fiber.StatusForbidden,
	domain.OutcomeUnsupported:      fiber.StatusNotImplemented,
	domain.OutcomeDisabled:         fiber.StatusConflict,
	domain.OutcomeInUse:            fiber.StatusConflict,
	domain.OutcomeDeviceError:      fiber.StatusServiceUnavailable,
}

// POST /api/v1/sessions/:mode/activate {permission, hardware}
func (h *ScanHandler) Activate(c *fiber.Ctx) error {
	m, ok := mode(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "unknown scan mode")
	}
	var req struct {
		Permission scan.Permission `json:"permission"`
		Hardware   scan.Hardware   `json:"hardware"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	switch req.Permission {
	case "", scan.PermissionGranted, scan.PermissionPrompt, scan.PermissionDenied:
	default:
		return badRequest(c, "invalid permission")
	}
	switch req.Hardware {
	case "", scan.HardwareReady, scan.HardwareUnsupported, scan.HardwareDisabled, scan.HardwareBusy:
	default:
		return badRequest(c, "invalid hardware state")
	}

	sid := ensureSID(c)
	out, err := h.Sessions.Activate(c.UserContext(), sid, m, req.Permission, req.Hardware)
	if err != nil {
		return err
	}
	view, _ := h.Sessions.View(sid, m)
	status, ok := activationStatus[out.Kind]
	if !ok {
		status = fiber.StatusOK
	}
	if status != fiber.StatusOK {
		applog.Info(c, "scan.activate.fail", map[string]any{"mode": m, "kind": out.Kind})
	}
	return c.Status(status).JSON(fiber.Map{"outcome": out, "session": view})
}

// POST /api/v1/sessions/:mode/deactivate
func (h *ScanHandler) Deactivate(c *fiber.Ctx) error {
	m, ok := mode(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "unknown scan mode")
	}
	sid := ensureSID(c)
	if err := h.Sessions.Deactivate(sid, m); err != nil {
		return err
	}
	view, _ := h.Sessions.View(sid, m)
	return c.JSON(fiber.Map{"session": view})
}

// GET /api/v1/sessions/:mode
func (h *ScanHandler) Status(c *fiber.Ctx) error {
	m, ok := mode(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "unknown scan mode")
	}
	view, err := h.Sessions.View(ensureSID(c), m)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session": view})
}

// POST /api/v1/scan/qr {text}
func (h *ScanHandler) QR(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.Text) > 512 {
		applog.Security(c, "validation.fail", map[string]any{"field": "text", "len": len(req.Text)})
		return badRequest(c, "payload too long")
	}
	return h.push(c, scan.ModeQR, scan.Event{Text: req.Text})
}

// POST /api/v1/scan/nfc {serialNumber, records}
func (h *ScanHandler) NFC(c *fiber.Ctx) error {
	var msg scan.Message
	if err := c.BodyParser(&msg); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(msg.Records) > 16 {
		applog.Security(c, "validation.fail", map[string]any{"field": "records", "len": len(msg.Records)})
		return badRequest(c, "too many records")
	}
	return h.push(c, scan.ModeNFC, scan.Event{Message: &msg})
}

// POST /api/v1/scan/:mode/error {error}
func (h *ScanHandler) ReadError(c *fiber.Ctx) error {
	m, ok := mode(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "unknown scan mode")
	}
	var req struct {
		Error string `json:"error"`
	}
	_ = c.BodyParser(&req)
	if req.Error == "" {
		req.Error = "read failed"
	}
	return h.push(c, m, scan.Event{Err: errors.New(req.Error)})
}

func (h *ScanHandler) push(c *fiber.Ctx, m scan.Mode, e scan.Event) error {
	out, err := h.Sessions.Push(c.UserContext(), ensureSID(c), m, e)
	if errors.Is(err, scan.ErrClosed) {
		return jsonError(c, fiber.StatusConflict, "Scanner is not active")
	}
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// GET /api/v1/notifications
func (h *ScanHandler) Notifications(c *fiber.Ctx) error {
	// polling alone never builds a session
	k, ok := h.Sessions.Lookup(ensureSID(c))
	if !ok {
		return c.JSON(fiber.Map{"notifications": []notify.Notification{}})
	}
	return c.JSON(fiber.Map{"notifications": k.Feed.Drain()})
}
