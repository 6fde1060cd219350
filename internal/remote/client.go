// Package remote talks to the hosted product/order API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
)

var (
	ErrRejected      = errors.New("request was rejected by the api")
	ErrRequestFailed = errors.New("api request failed")
)

type Client struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: timeout}
}

// do sends one request and returns the status and body. Transport failures
// (including a cancelled ctx) come back as an error wrapping ErrRequestFailed.
func (c *Client) do(ctx context.Context, a *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	timeout := c.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	code, body, errs := a.Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return code, nil, fmt.Errorf("%w: %v", ErrRequestFailed, errors.Join(errs...))
	}
	return code, body, nil
}

func (c *Client) endpoint(parts ...string) string {
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.BaseURL + "/" + strings.Join(parts, "/")
}

// GetProductByID returns the product and true, or false when it is unknown or
// the API could not be reached. It never returns an error: a missing product
// is an expected outcome of scanning.
func (c *Client) GetProductByID(ctx context.Context, id string) (domain.Product, bool) {
	code, body, err := c.do(ctx, fiber.Get(c.endpoint("product", id)))
	if err != nil {
		applog.Warn(nil, "product.lookup.fail", err, map[string]any{"id": id})
		return domain.Product{}, false
	}
	if code != fiber.StatusOK {
		applog.Info(nil, "product.lookup.miss", map[string]any{"id": id, "status": code})
		return domain.Product{}, false
	}
	var p domain.Product
	if err := json.Unmarshal(body, &p); err != nil || p.ID == "" {
		applog.Warn(nil, "product.lookup.decode", err, map[string]any{"id": id})
		return domain.Product{}, false
	}
	return p, true
}

// GetAllProducts returns id -> product, or an empty map on any failure.
func (c *Client) GetAllProducts(ctx context.Context) map[string]domain.Product {
	out := map[string]domain.Product{}
	code, body, err := c.do(ctx, fiber.Get(c.endpoint("products")))
	if err != nil {
		applog.Warn(nil, "products.list.fail", err, nil)
		return out
	}
	if code != fiber.StatusOK {
		applog.Warn(nil, "products.list.fail", nil, map[string]any{"status": code})
		return out
	}
	var all map[string]domain.Product
	if err := json.Unmarshal(body, &all); err != nil {
		applog.Warn(nil, "products.list.decode", err, nil)
		return out
	}
	for id, p := range all {
		if p.ID == "" {
			p.ID = id
		}
		out[id] = p
	}
	return out
}

func (c *Client) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var created domain.Product
	if err := c.send(ctx, fiber.Post(c.endpoint("products")).JSON(p), &created); err != nil {
		applog.Error(nil, "product.add.fail", err, map[string]any{"id": p.ID})
		return domain.Product{}, err
	}
	return created, nil
}

func (c *Client) UpdateProductStock(ctx context.Context, id string, stock int) (domain.Product, error) {
	var updated domain.Product
	req := fiber.Put(c.endpoint("product", id, "stock")).JSON(map[string]int{"stock": stock})
	if err := c.send(ctx, req, &updated); err != nil {
		applog.Error(nil, "product.stock.fail", err, map[string]any{"id": id, "stock": stock})
		return domain.Product{}, err
	}
	return updated, nil
}

// CreateOrder persists a completed order. Unlike lookups, failures are returned.
func (c *Client) CreateOrder(ctx context.Context, o domain.Order) error {
	if err := c.send(ctx, fiber.Post(c.endpoint("orders")).JSON(o), nil); err != nil {
		applog.Error(nil, "order.create.fail", err, map[string]any{"order_id": o.ID})
		return err
	}
	applog.Audit(nil, "order.create", map[string]any{"order_id": o.ID, "final_total": o.FinalTotal})
	return nil
}

// GetOrderByID returns nil when the order is unknown or the API is unreachable.
func (c *Client) GetOrderByID(ctx context.Context, id string) *domain.Order {
	code, body, err := c.do(ctx, fiber.Get(c.endpoint("order", id)))
	if err != nil || code != fiber.StatusOK {
		applog.Info(nil, "order.lookup.miss", map[string]any{"id": id, "status": code})
		return nil
	}
	var o domain.Order
	if err := json.Unmarshal(body, &o); err != nil {
		applog.Warn(nil, "order.lookup.decode", err, map[string]any{"id": id})
		return nil
	}
	return &o
}

// Health probes the API; failures are only logged.
func (c *Client) Health(ctx context.Context) bool {
	code, _, err := c.do(ctx, fiber.Get(c.endpoint("health")))
	if err != nil || code != fiber.StatusOK {
		applog.Warn(nil, "api.health.fail", err, map[string]any{"status": code, "base": c.BaseURL})
		return false
	}
	return true
}

func (c *Client) send(ctx context.Context, a *fiber.Agent, out any) error {
	code, body, err := c.do(ctx, a)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, code)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
