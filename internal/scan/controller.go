package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
)

// Resolver looks up a candidate id. A false result means "not found".
type Resolver interface {
	GetProductByID(ctx context.Context, id string) (domain.Product, bool)
}

// Cart is the part of the cart store a controller needs.
type Cart interface {
	IsItemInCart(id string) bool
	AddItemOnce(p domain.Product) bool
}

// Notifier shows de-duplicated messages to the shopper.
type Notifier interface {
	Success(key, msg string) bool
	Error(key, msg string) bool
	Info(key, msg string) bool
}

type Options struct {
	// SettleDelay separates the lookup from the status change.
	SettleDelay time.Duration
	// RevertDelay is how long success/error stays visible.
	RevertDelay time.Duration
	// Cooldown clears the last-candidate slot after each processed candidate.
	Cooldown time.Duration
	// OnProductAdded is called once per product added through this controller.
	OnProductAdded func(domain.Product)
}

func DefaultOptions() Options {
	return Options{SettleDelay: 500 * time.Millisecond, RevertDelay: 3 * time.Second, Cooldown: 2 * time.Second}
}

// Status is a snapshot of a controller.
type Status struct {
	Mode     Mode             `json:"mode"`
	State    domain.ScanState `json:"state"`
	Active   bool             `json:"active"`
	Disabled bool             `json:"disabled"`
	Last     *domain.Outcome  `json:"last,omitempty"`
}

// Controller owns one capture session: it opens and closes the device, turns
// decoded candidates into cart additions, and drives the visible status.
//
// Every activation and deactivation bumps the generation; lookups that finish
// under an older generation are dropped without touching state or cart.
type Controller struct {
	mode     Mode
	dev      Device
	resolver Resolver
	cart     Cart
	notes    Notifier
	opts     Options

	mu         sync.Mutex
	state      domain.ScanState
	active     bool
	disabled   bool
	generation uint64
	seq        uint64
	last       string
	lastOut    *domain.Outcome
	revert     *time.Timer
	cooldown   *time.Timer
}

func NewController(mode Mode, dev Device, r Resolver, c Cart, n Notifier, opts Options) *Controller {
	return &Controller{mode: mode, dev: dev, resolver: r, cart: c, notes: n, opts: opts, state: domain.ScanIdle}
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Mode: c.mode, State: c.state, Active: c.active, Disabled: c.disabled, Last: c.lastOut}
}

// Activate checks permission and opens the device.
func (c *Controller) Activate(ctx context.Context) domain.Outcome {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return c.fail(domain.Outcome{Kind: domain.OutcomeUnsupported})
	}
	if c.active {
		c.mu.Unlock()
		return c.activated()
	}
	gen := c.generation
	c.mu.Unlock()

	perm, err := c.dev.Permission(ctx)
	if err != nil {
		// the permission query is advisory; opening the device decides
		applog.Warn(nil, "scan.permission.query", err, map[string]any{"mode": c.mode})
	} else if perm == PermissionDenied {
		return c.fail(domain.Outcome{Kind: domain.OutcomePermissionDenied})
	}

	if err := c.dev.Open(ctx, c.handle); err != nil {
		return c.fail(domain.Outcome{Kind: openFailure(err)})
	}

	c.mu.Lock()
	if c.active {
		// a concurrent Activate already owns the device
		c.mu.Unlock()
		return c.activated()
	}
	if gen != c.generation {
		// deactivated while opening: the device must not stay open behind an idle controller
		c.mu.Unlock()
		if err := c.dev.Close(); err != nil {
			applog.Warn(nil, "scan.close.fail", err, map[string]any{"mode": c.mode})
		}
		applog.Info(nil, "scan.activate.superseded", map[string]any{"mode": c.mode})
		out := domain.Outcome{Kind: domain.OutcomeInactive}
		out.Message = message(c.mode, out)
		return out
	}
	c.active = true
	c.generation++
	c.state = domain.ScanScanning
	c.last = ""
	c.lastOut = nil
	c.mu.Unlock()

	out := c.activated()
	c.notes.Success(string(c.mode)+"-reader-activated", out.Message)
	applog.Info(nil, "scan.activate", map[string]any{"mode": c.mode})
	return out
}

func (c *Controller) activated() domain.Outcome {
	out := domain.Outcome{Kind: domain.OutcomeActivated}
	out.Message = message(c.mode, out)
	return out
}

func openFailure(err error) domain.OutcomeKind {
	switch {
	case errors.Is(err, ErrUnsupported):
		return domain.OutcomeUnsupported
	case errors.Is(err, ErrDisabled):
		return domain.OutcomeDisabled
	case errors.Is(err, ErrInUse):
		return domain.OutcomeInUse
	case errors.Is(err, ErrPermissionDenied):
		return domain.OutcomePermissionDenied
	}
	applog.Error(nil, "scan.open.fail", err, nil)
	return domain.OutcomeDeviceError
}

// fail records an activation failure. Unsupported hardware disables the
// controller until it is rebuilt; the other kinds can be retried.
func (c *Controller) fail(out domain.Outcome) domain.Outcome {
	out.Message = message(c.mode, out)
	c.mu.Lock()
	if c.active {
		// lost a race with an activation that succeeded
		c.mu.Unlock()
		return c.activated()
	}
	c.state = domain.ScanError
	if out.Kind == domain.OutcomeUnsupported {
		c.disabled = true
	}
	c.lastOut = &out
	c.mu.Unlock()

	c.notes.Error(noteKey(c.mode, out), out.Message)
	applog.Info(nil, "scan.activate.fail", map[string]any{"mode": c.mode, "kind": out.Kind})
	return out
}

// Deactivate releases the device. Events and lookups still in flight are discarded.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.generation++
	c.stopTimers()
	c.state = domain.ScanIdle
	c.last = ""
	c.mu.Unlock()

	if err := c.dev.Close(); err != nil {
		applog.Warn(nil, "scan.close.fail", err, map[string]any{"mode": c.mode})
	}
	if wasActive {
		applog.Info(nil, "scan.deactivate", map[string]any{"mode": c.mode})
	}
}

func (c *Controller) stopTimers() {
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	if c.cooldown != nil {
		c.cooldown.Stop()
		c.cooldown = nil
	}
}

// handle is the device callback.
func (c *Controller) handle(ctx context.Context, e Event) domain.Outcome {
	if e.Err != nil {
		applog.Warn(nil, "scan.read.fail", e.Err, map[string]any{"mode": c.mode})
		return c.transient(domain.Outcome{Kind: domain.OutcomeReadError})
	}
	if e.Message != nil {
		id, ok := DecodeNFC(*e.Message)
		if !ok {
			return c.transient(domain.Outcome{Kind: domain.OutcomeInvalidTag})
		}
		return c.Process(ctx, id)
	}
	id, ok := DecodeQR(e.Text)
	if !ok {
		return domain.Outcome{Kind: domain.OutcomeIgnored}
	}
	return c.Process(ctx, id)
}

// transient shows an error that is not tied to a lookup and schedules the revert.
func (c *Controller) transient(out domain.Outcome) domain.Outcome {
	out.Message = message(c.mode, out)
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return domain.Outcome{Kind: domain.OutcomeInactive}
	}
	c.seq++
	c.finish(out, c.generation, c.seq)
	c.mu.Unlock()
	c.notes.Error(noteKey(c.mode, out), out.Message)
	return out
}

// Process runs one candidate through debounce, lookup, duplicate check and cart add.
func (c *Controller) Process(ctx context.Context, candidate string) domain.Outcome {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return domain.Outcome{Kind: domain.OutcomeInactive, Candidate: candidate}
	}
	if candidate == c.last {
		c.mu.Unlock()
		applog.Info(nil, "scan.debounce", map[string]any{"mode": c.mode, "candidate": candidate})
		return domain.Outcome{Kind: domain.OutcomeIgnored, Candidate: candidate}
	}
	c.last = candidate
	c.seq++
	gen, seq := c.generation, c.seq
	c.state = domain.ScanScanning
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	c.mu.Unlock()

	applog.Info(nil, "scan.lookup", map[string]any{"mode": c.mode, "candidate": candidate})
	product, found := c.resolver.GetProductByID(ctx, candidate)

	if c.opts.SettleDelay > 0 {
		t := time.NewTimer(c.opts.SettleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	c.mu.Lock()
	if !c.active || gen != c.generation {
		c.mu.Unlock()
		applog.Info(nil, "scan.stale", map[string]any{"mode": c.mode, "candidate": candidate})
		return domain.Outcome{Kind: domain.OutcomeInactive, Candidate: candidate}
	}
	var out domain.Outcome
	if !found {
		out = domain.Outcome{Kind: domain.OutcomeNotFound, Candidate: candidate}
	} else {
		out = Admit(c.cart, product)
		out.Candidate = candidate
	}
	out.Message = message(c.mode, out)
	c.finish(out, gen, seq)
	c.mu.Unlock()

	if out.Kind == domain.OutcomeAdded {
		c.notes.Success(noteKey(c.mode, out), out.Message)
		if c.opts.OnProductAdded != nil {
			c.opts.OnProductAdded(*out.Product)
		}
	} else {
		c.notes.Error(noteKey(c.mode, out), out.Message)
	}
	applog.Info(nil, "scan.result", map[string]any{"mode": c.mode, "candidate": candidate, "kind": out.Kind})
	return out
}

// finish flips the state for out and arms the revert and cooldown timers.
// Caller holds c.mu.
func (c *Controller) finish(out domain.Outcome, gen, seq uint64) {
	if out.Kind == domain.OutcomeAdded {
		c.state = domain.ScanSuccess
	} else {
		c.state = domain.ScanError
	}
	c.lastOut = &out

	c.stopTimers()
	c.revert = time.AfterFunc(c.opts.RevertDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.active && gen == c.generation && seq == c.seq {
			c.state = domain.ScanScanning
			c.last = ""
		}
	})
	candidate := out.Candidate
	c.cooldown = time.AfterFunc(c.opts.Cooldown, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen == c.generation && c.last == candidate {
			c.last = ""
		}
	})
}

// Admit adds p to the cart once. Products already in the cart are reported as duplicates.
func Admit(cart Cart, p domain.Product) domain.Outcome {
	if cart.IsItemInCart(p.ID) || !cart.AddItemOnce(p) {
		return domain.Outcome{Kind: domain.OutcomeDuplicate, Candidate: p.ID, Product: &p}
	}
	return domain.Outcome{Kind: domain.OutcomeAdded, Candidate: p.ID, Product: &p}
}
