// Package remotetest runs an in-process stand-in for the product/order API.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tappinpay/internal/domain"
)

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	products   map[string]domain.Product
	orders     map[string]domain.Order
	lookups    []string
	failOrders bool
	down       bool
}

// New starts the fake API seeded with products; it is closed when the test ends.
func New(t *testing.T, products ...domain.Product) *Server {
	t.Helper()
	s := &Server{products: map[string]domain.Product{}, orders: map[string]domain.Order{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Orders returns the orders the API accepted.
func (s *Server) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Lookups returns the product ids requested through GET /product/{id}.
func (s *Server) Lookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

func (s *Server) SetFailOrders(fail bool) {
	s.mu.Lock()
	s.failOrders = fail
	s.mu.Unlock()
}

func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "products":
		writeJSON(w, http.StatusOK, s.products)

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "products":
		var p domain.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == "" {
			http.Error(w, "bad product", http.StatusBadRequest)
			return
		}
		s.products[p.ID] = p
		writeJSON(w, http.StatusCreated, p)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "product":
		s.lookups = append(s.lookups, parts[1])
		p, ok := s.products[parts[1]]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case r.Method == http.MethodPut && len(parts) == 3 && parts[0] == "product" && parts[2] == "stock":
		p, ok := s.products[parts[1]]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var body struct {
			Stock int `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad stock", http.StatusBadRequest)
			return
		}
		p.Stock = &body.Stock
		s.products[p.ID] = p
		writeJSON(w, http.StatusOK, p)

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "orders":
		if s.failOrders {
			http.Error(w, "db write failed", http.StatusInternalServerError)
			return
		}
		var o domain.Order
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			http.Error(w, "bad order", http.StatusBadRequest)
			return
		}
		s.orders[o.ID] = o
		writeJSON(w, http.StatusCreated, o)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "order":
		o, ok := s.orders[parts[1]]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, o)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
