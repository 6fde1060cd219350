package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/remote"
	"tappinpay/internal/repos"
	"tappinpay/internal/validate"
)

const (
	MethodUPI  = "UPI Payment"
	MethodDemo = "Demo Payment"

	StatusCompleted = "completed"
	CurrencyINR     = "INR"
)

// GST charged on the cart subtotal, rounded to whole rupees.
var taxRate = decimal.RequireFromString("0.18")

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrUnknownPayment = errors.New("no pending payment with that id")
	ErrPaymentFailed  = errors.New("payment failed or was cancelled")
	ErrOrderFailed    = errors.New("order could not be created")
)

// OrderFailedMessage is what the shopper sees when the order API rejects a paid order.
const OrderFailedMessage = "Error processing payment. Please contact support."

// pendingTTL bounds how long a started UPI payment can still be confirmed.
const pendingTTL = 30 * time.Minute

// Quote prices a cart: subtotal, 18% GST rounded to the rupee, final total.
func Quote(items []domain.CartItem) domain.Quote {
	sub := decimal.Zero
	count := 0
	for _, it := range items {
		sub = sub.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	tax := sub.Mul(taxRate).Round(0)
	return domain.Quote{
		Subtotal:   sub.InexactFloat64(),
		Tax:        tax.InexactFloat64(),
		FinalTotal: sub.Add(tax).InexactFloat64(),
		ItemCount:  count,
	}
}

// PaymentIntent is a started UPI payment waiting for the shopper to confirm.
type PaymentIntent struct {
	OrderID string       `json:"orderId"`
	URI     string       `json:"upiUri"`
	Quote   domain.Quote `json:"quote"`
}

type CheckoutService struct {
	Sessions  *SessionService
	API       *remote.Client
	Orders    *repos.OrderRepo
	Payee     string
	PayeeName string

	v       *validatorv10.Validate
	now     func() time.Time
	mu      sync.Mutex
	pending map[string]pendingPayment
}

type pendingPayment struct {
	sid     string
	started time.Time
}

func NewCheckoutService(sessions *SessionService, api *remote.Client, orders *repos.OrderRepo, payee, payeeName string) *CheckoutService {
	return &CheckoutService{
		Sessions:  sessions,
		API:       api,
		Orders:    orders,
		Payee:     payee,
		PayeeName: payeeName,
		v:         validate.New(),
		now:       time.Now,
		pending:   map[string]pendingPayment{},
	}
}

func (s *CheckoutService) Quote(sid string) domain.Quote {
	return Quote(s.Sessions.Kiosk(sid).Cart.Items())
}

// StartUPI builds the UPI intent for the current cart. Nothing is charged or
// recorded until ConfirmUPI.
func (s *CheckoutService) StartUPI(sid string) (PaymentIntent, error) {
	items := s.Sessions.Kiosk(sid).Cart.Items()
	if len(items) == 0 {
		return PaymentIntent{}, ErrEmptyCart
	}
	q := Quote(items)
	now := s.now()
	orderID := fmt.Sprintf("ORD%d", now.UnixMilli())

	s.mu.Lock()
	for id, p := range s.pending {
		if now.Sub(p.started) > pendingTTL {
			delete(s.pending, id)
		}
	}
	if _, taken := s.pending[orderID]; taken {
		// another payment started in the same millisecond
		orderID += strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	}
	s.pending[orderID] = pendingPayment{sid: sid, started: now}
	s.mu.Unlock()

	applog.Info(nil, "checkout.upi.start", map[string]any{"sid": sid, "order_id": orderID, "final_total": q.FinalTotal})
	return PaymentIntent{OrderID: orderID, URI: s.upiURI(orderID, q.FinalTotal), Quote: q}, nil
}

func (s *CheckoutService) upiURI(orderID string, amount float64) string {
	am := decimal.NewFromFloat(amount).String()
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&tn=%s&cu=%s",
		url.QueryEscape(s.Payee),
		url.PathEscape(s.PayeeName),
		am,
		url.PathEscape("Order "+orderID),
		CurrencyINR)
}

// ConfirmUPI records the shopper's own report of the UPI app result. There is
// no gateway to check it against.
func (s *CheckoutService) ConfirmUPI(ctx context.Context, sid, orderID string, paid bool) (*domain.Order, error) {
	s.mu.Lock()
	p, ok := s.pending[orderID]
	ok = ok && p.sid == sid
	if ok {
		delete(s.pending, orderID)
		ok = s.now().Sub(p.started) <= pendingTTL
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownPayment
	}

	if !paid {
		k := s.Sessions.Kiosk(sid)
		k.Notes.Error("payment-failed", "Payment failed. Please try again.")
		applog.Info(nil, "checkout.upi.declined", map[string]any{"sid": sid, "order_id": orderID})
		return nil, ErrPaymentFailed
	}
	return s.complete(ctx, sid, orderID, MethodUPI)
}

// Demo completes a payment without any payment app.
func (s *CheckoutService) Demo(ctx context.Context, sid string) (*domain.Order, error) {
	return s.complete(ctx, sid, fmt.Sprintf("DEMO%d", s.now().UnixMilli()), MethodDemo)
}

func (s *CheckoutService) complete(ctx context.Context, sid, orderID, method string) (*domain.Order, error) {
	k := s.Sessions.Kiosk(sid)
	items := k.Cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	q := Quote(items)
	now := s.now()
	order := domain.Order{
		ID:            orderID,
		Items:         items,
		Total:         q.Subtotal,
		Tax:           q.Tax,
		FinalTotal:    q.FinalTotal,
		PaymentMethod: method,
		Status:        StatusCompleted,
		Currency:      CurrencyINR,
		TransactionID: transactionID(),
		PaymentTime:   now.UTC().Format(time.RFC3339),
	}
	if err := s.v.Struct(order); err != nil {
		applog.Error(nil, "checkout.order.invalid", err, map[string]any{"fields": validate.Fields(err)})
		return nil, ErrOrderFailed
	}

	if err := s.API.CreateOrder(ctx, order); err != nil {
		// cart is kept so the shopper can retry
		k.Notes.Error("order-failed", OrderFailedMessage)
		return nil, fmt.Errorf("%w (%v)", ErrOrderFailed, err)
	}

	if err := s.Orders.Save(sid, order); err != nil {
		applog.Error(nil, "checkout.order.save", err, map[string]any{"order_id": order.ID})
	}
	k.Cart.Clear()
	k.setLastAdded(nil)
	k.Notes.Success("payment-success", "Payment successful! Order placed.")
	applog.Audit(nil, "checkout.complete", map[string]any{
		"sid": sid, "order_id": order.ID, "method": method, "final_total": order.FinalTotal,
	})
	return &order, nil
}

func transactionID() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// LastOrder is the invoice for the session's most recent payment.
func (s *CheckoutService) LastOrder(sid string) (*domain.Order, error) {
	return s.Orders.Last(sid)
}

// Order looks an order up locally first, then on the API.
func (s *CheckoutService) Order(ctx context.Context, id string) *domain.Order {
	if o, err := s.Orders.Get(id); err == nil && o != nil {
		return o
	} else if err != nil {
		applog.Warn(nil, "order.local.fail", err, map[string]any{"id": id})
	}
	return s.API.GetOrderByID(ctx, id)
}

func (s *CheckoutService) History(sid string) ([]repos.OrderSummary, error) {
	return s.Orders.ListBySession(sid)
}
