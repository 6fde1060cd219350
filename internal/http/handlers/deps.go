package handlers

import (
	"github.com/jmoiron/sqlx"

	"tappinpay/internal/cart"
	"tappinpay/internal/config"
	"tappinpay/internal/remote"
	"tappinpay/internal/repos"
	"tappinpay/internal/scan"
	"tappinpay/internal/services"
)

type Deps struct {
	Sessions *services.SessionService
	Admin    *services.AdminService

	ProductHandler *ProductHandler
	CartHandler    *CartHandler
	ScanHandler    *ScanHandler
	OrderHandler   *OrderHandler
	AdminHandler   *AdminHandler
	HealthHandler  *HealthHandler
}

// NewDeps wires services and handlers. kv holds the carts; orders always live in db.
func NewDeps(db *sqlx.DB, kv cart.Storage, cfg config.Config) (*Deps, error) {
	api := remote.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	orderRepo := repos.NewOrderRepo(db)

	sessions := services.NewSessionService(kv, api, scan.Options{
		SettleDelay: cfg.SettleDelay,
		RevertDelay: cfg.RevertDelay,
		Cooldown:    cfg.Cooldown,
	})
	sessions.IdleTTL = cfg.SessionIdleTTL
	catalogSvc := services.NewCatalogService(api, sessions)
	cartSvc := services.NewCartService(sessions, api)
	checkoutSvc := services.NewCheckoutService(sessions, api, orderRepo, cfg.UPIPayee, cfg.UPIPayeeName)
	adminSvc, err := services.NewAdminService(api, cfg.AdminPin, cfg.TagBaseURL)
	if err != nil {
		return nil, err
	}

	return &Deps{
		Sessions:       sessions,
		Admin:          adminSvc,
		ProductHandler: &ProductHandler{Catalog: catalogSvc},
		CartHandler:    &CartHandler{Cart: cartSvc},
		ScanHandler:    &ScanHandler{Sessions: sessions},
		OrderHandler:   &OrderHandler{Checkout: checkoutSvc},
		AdminHandler:   &AdminHandler{Admin: adminSvc},
		HealthHandler:  &HealthHandler{DB: db, API: api},
	}, nil
}
