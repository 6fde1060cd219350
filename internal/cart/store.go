package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
)

// StorageKey is the key the cart snapshot lives under.
const StorageKey = "qr-scanner-cart"

const storageTimeout = 2 * time.Second

// Storage is the durable key/value store the cart is mirrored into.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the single source of truth for one shopper's cart. Every mutation
// goes through Reduce and is then written to storage; storage failures are
// logged and never reach the caller.
type Store struct {
	mu    sync.Mutex
	kv    Storage
	key   string
	items []domain.CartItem
}

// NewStore loads the snapshot under key, purging it if it is not a JSON array of items.
func NewStore(kv Storage, key string) *Store {
	if key == "" {
		key = StorageKey
	}
	s := &Store{kv: kv, key: key, items: []domain.CartItem{}}
	s.load()
	return s
}

func (s *Store) load() {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		applog.Warn(nil, "cart.load.fail", err, map[string]any{"key": s.key})
		return
	}
	if !ok {
		return
	}
	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		applog.Warn(nil, "cart.load.corrupt", err, map[string]any{"key": s.key})
		if derr := s.kv.Delete(ctx, s.key); derr != nil {
			applog.Warn(nil, "cart.purge.fail", derr, map[string]any{"key": s.key})
		}
		return
	}
	s.items = Reduce(nil, LoadCart{Items: items})
	applog.Info(nil, "cart.load", map[string]any{"key": s.key, "items": len(s.items)})
}

// Dispatch applies cmd and persists the result. It reports whether the items changed.
func (s *Store) Dispatch(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.items, cmd)
	changed := !sameItems(s.items, next)
	s.items = next

	if _, ok := cmd.(ClearCart); ok {
		s.purge()
	} else {
		s.persist()
	}
	return changed
}

func (s *Store) persist() {
	b, err := json.Marshal(s.items)
	if err != nil {
		applog.Error(nil, "cart.persist.encode", err, map[string]any{"key": s.key})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		applog.Warn(nil, "cart.persist.fail", err, map[string]any{"key": s.key, "items": len(s.items)})
	}
}

func (s *Store) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		applog.Warn(nil, "cart.purge.fail", err, map[string]any{"key": s.key})
	}
}

func (s *Store) AddItem(p domain.Product) { s.Dispatch(AddItem{Product: p}) }

// AddItemOnce adds p with quantity 1 unless it is already in the cart.
func (s *Store) AddItemOnce(p domain.Product) bool { return s.Dispatch(AddItemOnce{Product: p}) }

func (s *Store) RemoveItem(id string) { s.Dispatch(RemoveItem{ID: id}) }

func (s *Store) UpdateQuantity(id string, quantity int) {
	s.Dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) Clear() { s.Dispatch(ClearCart{}) }

// Items returns a copy of the cart lines in display order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) IsItemInCart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.items, id) >= 0
}

func sameItems(a, b []domain.CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Quantity != b[i].Quantity {
			return false
		}
	}
	return true
}
