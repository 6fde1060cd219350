package repos

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"tappinpay/internal/domain"
)

// OrderRepo keeps completed orders locally so the invoice can be shown offline.
type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type OrderSummary struct {
	ID            string  `db:"id" json:"id"`
	PaymentMethod string  `db:"payment_method" json:"paymentMethod"`
	FinalTotal    float64 `db:"final_total" json:"finalTotal"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
}

// Save writes an order once; a second save with the same id is an error.
func (r *OrderRepo) Save(sessionID string, o domain.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
	  INSERT INTO orders (id, session_id, payment_method, final_total, payload, created_at)
	  VALUES (?, ?, ?, ?, ?, strftime('%Y-%m-%d %H:%M:%f','now'))
	`, o.ID, sessionID, o.PaymentMethod, o.FinalTotal, string(payload))
	return err
}

// Last returns the most recent order for the session, or (nil, nil) if there is none.
func (r *OrderRepo) Last(sessionID string) (*domain.Order, error) {
	var payload string
	err := r.db.Get(&payload, `
		SELECT payload FROM orders
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOrder(payload)
}

// Get returns an order by id, or (nil, nil) if it is unknown.
func (r *OrderRepo) Get(orderID string) (*domain.Order, error) {
	var payload string
	err := r.db.Get(&payload, `SELECT payload FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOrder(payload)
}

func (r *OrderRepo) ListBySession(sessionID string) ([]OrderSummary, error) {
	out := []OrderSummary{}
	err := r.db.Select(&out, `
		SELECT id, payment_method, final_total, created_at
		FROM orders
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, sessionID)
	return out, err
}

func decodeOrder(payload string) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, err
	}
	return &o, nil
}
