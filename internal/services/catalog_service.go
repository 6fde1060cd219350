package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/remote"
	"tappinpay/internal/scan"
	"tappinpay/internal/validate"
)

type CatalogService struct {
	API      *remote.Client
	Sessions *SessionService
}

func NewCatalogService(api *remote.Client, sessions *SessionService) *CatalogService {
	return &CatalogService{API: api, Sessions: sessions}
}

func (s *CatalogService) ListCategories() []string {
	return append([]string(nil), domain.Categories...)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id, ok := validate.ProductID(id)
	if !ok {
		return domain.Product{}, ErrBadProductID
	}
	p, found := s.API.GetProductByID(ctx, id)
	if !found {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Search filters the whole catalogue by free text over id, name and
// description, and by id category. Empty filters match everything.
func (s *CatalogService) Search(ctx context.Context, q, category string) []domain.Product {
	q = strings.ToLower(strings.TrimSpace(q))
	category = strings.ToUpper(strings.TrimSpace(category))

	out := []domain.Product{}
	for _, p := range s.API.GetAllProducts(ctx) {
		if category != "" && productCategory(p) != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.ID), q) &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func productCategory(p domain.Product) string {
	if len(p.ID) >= 4 {
		return p.ID[:4]
	}
	return ""
}

// ManualAdd adds a typed-in product id to the session's cart with the same
// duplicate rules as scanning.
func (s *CatalogService) ManualAdd(ctx context.Context, sid, raw string) (domain.Outcome, error) {
	id, ok := validate.ProductID(raw)
	if !ok {
		return domain.Outcome{}, ErrBadProductID
	}
	k := s.Sessions.Kiosk(sid)

	p, found := s.API.GetProductByID(ctx, id)
	if !found {
		out := domain.Outcome{Kind: domain.OutcomeNotFound, Candidate: id, Message: fmt.Sprintf("Product %s not found", id)}
		k.Notes.Error("manual-not_found-"+id, out.Message)
		return out, nil
	}

	out := scan.Admit(k.Cart, p)
	switch out.Kind {
	case domain.OutcomeAdded:
		out.Message = fmt.Sprintf("Added %s to cart!", p.Name)
		k.Notes.Success("manual-added-"+id, out.Message)
	default:
		out.Message = fmt.Sprintf("%s is already in your cart!", p.Name)
		k.Notes.Error("manual-duplicate-"+id, out.Message)
	}
	applog.Info(nil, "manual.add", map[string]any{"sid": sid, "id": id, "kind": out.Kind})
	return out, nil
}
