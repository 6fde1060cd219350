package services

import (
	"context"
	"errors"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/scan"
	"tappinpay/internal/validate"
)

var (
	ErrBadProductID    = errors.New("invalid product id")
	ErrProductNotFound = errors.New("product not found")
)

// CartService backs the cart page. Scanning adds through the controllers; here
// the shopper adjusts what is already there.
type CartService struct {
	Sessions *SessionService
	Products scan.Resolver
}

func NewCartService(sessions *SessionService, products scan.Resolver) *CartService {
	return &CartService{Sessions: sessions, Products: products}
}

type CartView struct {
	Items     []domain.CartItem `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"itemCount"`
	Quote     domain.Quote      `json:"quote"`
}

func (s *CartService) View(sid string) CartView {
	st := s.Sessions.Kiosk(sid).Cart
	items := st.Items()
	return CartView{Items: items, Total: st.Total(), ItemCount: st.ItemCount(), Quote: Quote(items)}
}

// Add increments the product's quantity, adding it if needed.
func (s *CartService) Add(ctx context.Context, sid, productID string) (CartView, error) {
	id, ok := validate.ProductID(productID)
	if !ok {
		return CartView{}, ErrBadProductID
	}
	p, ok := s.Products.GetProductByID(ctx, id)
	if !ok {
		return CartView{}, ErrProductNotFound
	}
	s.Sessions.Kiosk(sid).Cart.AddItem(p)
	return s.View(sid), nil
}

// SetQuantity sets an absolute quantity; zero or less removes the line.
func (s *CartService) SetQuantity(sid, productID string, qty int) CartView {
	s.Sessions.Kiosk(sid).Cart.UpdateQuantity(productID, qty)
	return s.View(sid)
}

func (s *CartService) Remove(sid, productID string) CartView {
	s.Sessions.Kiosk(sid).Cart.RemoveItem(productID)
	return s.View(sid)
}

// Clear empties the cart and resets the scanner pause.
func (s *CartService) Clear(sid string) CartView {
	k := s.Sessions.Kiosk(sid)
	k.Cart.Clear()
	k.setLastAdded(nil)
	k.Notes.Success("cart-cleared", "Cart cleared successfully!")
	applog.Audit(nil, "cart.clear", map[string]any{"sid": sid})
	return s.View(sid)
}
