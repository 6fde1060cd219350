package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts every route. Cross-cutting middleware (csrf, limiter, helmet)
// is installed by the caller; scanLimit guards the capture endpoints.
func (d *Deps) Register(app *fiber.App, scanLimit fiber.Handler) {
	if scanLimit == nil {
		scanLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Get("/healthz", d.HealthHandler.Check)
	app.Get("/cart", d.CartHandler.Page)
	app.Get("/invoice", d.OrderHandler.Invoice)

	api := app.Group("/api/v1")
	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Post("/products/manual", d.ProductHandler.Manual)
	api.Get("/categories", d.ProductHandler.Categories)

	api.Get("/cart", d.CartHandler.View)
	api.Post("/cart/items", d.CartHandler.Add)
	api.Patch("/cart/items/:id", d.CartHandler.SetQuantity)
	api.Delete("/cart/items/:id", d.CartHandler.Remove)
	api.Delete("/cart", d.CartHandler.Clear)

	api.Post("/sessions/:mode/activate", d.ScanHandler.Activate)
	api.Post("/sessions/:mode/deactivate", d.ScanHandler.Deactivate)
	api.Get("/sessions/:mode", d.ScanHandler.Status)
	api.Post("/scan/qr", scanLimit, d.ScanHandler.QR)
	api.Post("/scan/nfc", scanLimit, d.ScanHandler.NFC)
	api.Post("/scan/:mode/error", scanLimit, d.ScanHandler.ReadError)
	api.Get("/notifications", d.ScanHandler.Notifications)

	api.Get("/checkout", d.OrderHandler.Quote)
	api.Post("/checkout/upi", d.OrderHandler.StartUPI)
	api.Post("/checkout/upi/:id/confirm", d.OrderHandler.ConfirmUPI)
	api.Post("/checkout/demo", d.OrderHandler.Demo)
	api.Get("/orders", d.OrderHandler.History)
	api.Get("/orders/last", d.OrderHandler.Last)
	api.Get("/orders/:id", d.OrderHandler.View)

	admin := app.Group("/admin", RequireAdmin(d.Admin))
	admin.Post("/products", d.AdminHandler.AddProduct)
	admin.Put("/products/:id/stock", d.AdminHandler.UpdateStock)
	admin.Get("/tags/:id", d.AdminHandler.Tag)
}
