package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"tappinpay/internal/cart"
	"tappinpay/internal/domain"
	applog "tappinpay/internal/log"
	"tappinpay/internal/notify"
	"tappinpay/internal/scan"
)

var ErrUnknownMode = errors.New("unknown scan mode")

// Kiosk is everything one shopper session owns: the cart, the notification
// feed and one controller per capture mode.
type Kiosk struct {
	SID   string
	Cart  *cart.Store
	Feed  *notify.Feed
	Notes *notify.Notifier

	devices     map[scan.Mode]*scan.RemoteDevice
	controllers map[scan.Mode]*scan.Controller

	mu        sync.Mutex
	lastAdded *domain.Product

	seen time.Time // guarded by SessionService.mu
}

// LastAdded is the product the scanner paused on, if any.
func (k *Kiosk) LastAdded() *domain.Product {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastAdded
}

func (k *Kiosk) setLastAdded(p *domain.Product) {
	k.mu.Lock()
	k.lastAdded = p
	k.mu.Unlock()
}

func (k *Kiosk) Controller(m scan.Mode) *scan.Controller { return k.controllers[m] }

// SessionView is what the browser polls for one mode.
type SessionView struct {
	scan.Status
	LastAdded *domain.Product `json:"lastAdded,omitempty"`
	ItemCount int             `json:"itemCount"`
}

// DefaultIdleTTL is how long an untouched session stays in memory.
const DefaultIdleTTL = 30 * time.Minute

type SessionService struct {
	KV       cart.Storage
	Products scan.Resolver
	Opts     scan.Options
	// IdleTTL evicts sessions not seen for this long. Zero keeps them forever.
	IdleTTL time.Duration

	mu     sync.Mutex
	kiosks map[string]*Kiosk
	now    func() time.Time
}

func NewSessionService(kv cart.Storage, products scan.Resolver, opts scan.Options) *SessionService {
	return &SessionService{KV: kv, Products: products, Opts: opts, IdleTTL: DefaultIdleTTL, kiosks: map[string]*Kiosk{}, now: time.Now}
}

// Lookup returns the session's kiosk without building one.
func (s *SessionService) Lookup(sid string) (*Kiosk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kiosks[sid]
	if ok {
		k.seen = s.now()
	}
	return k, ok
}

// Len is the number of sessions held in memory.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kiosks)
}

// EvictIdle drops sessions not seen since now-IdleTTL and releases their
// devices. Carts stay in the KV store and are reloaded on the next visit.
func (s *SessionService) EvictIdle(now time.Time) int {
	if s.IdleTTL <= 0 {
		return 0
	}
	var idle []*Kiosk
	s.mu.Lock()
	for sid, k := range s.kiosks {
		if now.Sub(k.seen) > s.IdleTTL {
			idle = append(idle, k)
			delete(s.kiosks, sid)
		}
	}
	s.mu.Unlock()

	for _, k := range idle {
		for _, c := range k.controllers {
			c.Deactivate()
		}
	}
	if len(idle) > 0 {
		applog.Info(nil, "session.evict", map[string]any{"count": len(idle)})
	}
	return len(idle)
}

// Run evicts idle sessions every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.EvictIdle(now)
		}
	}
}

// Kiosk returns the session's kiosk, building it (and loading its cart) on first use.
func (s *SessionService) Kiosk(sid string) *Kiosk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.kiosks[sid]; ok {
		k.seen = s.now()
		return k
	}

	feed := notify.NewFeed()
	k := &Kiosk{
		SID:         sid,
		Cart:        cart.NewStore(s.KV, cart.StorageKey+":"+sid),
		Feed:        feed,
		Notes:       notify.New(feed),
		devices:     map[scan.Mode]*scan.RemoteDevice{},
		controllers: map[scan.Mode]*scan.Controller{},
	}
	for _, m := range []scan.Mode{scan.ModeQR, scan.ModeNFC} {
		mode := m
		opts := s.Opts
		// a successful add pauses the scanner so the shopper sees what was added
		opts.OnProductAdded = func(p domain.Product) {
			k.setLastAdded(&p)
			k.controllers[mode].Deactivate()
		}
		dev := scan.NewRemoteDevice()
		k.devices[mode] = dev
		k.controllers[mode] = scan.NewController(mode, dev, s.Products, k.Cart, k.Notes, opts)
	}
	k.seen = s.now()
	s.kiosks[sid] = k
	applog.Info(nil, "session.create", map[string]any{"sid": sid, "items": k.Cart.ItemCount()})
	return k
}

// Activate reports the browser's permission and hardware state, then starts the
// mode's controller. The other mode is stopped first so only one reader runs.
func (s *SessionService) Activate(ctx context.Context, sid string, m scan.Mode, perm scan.Permission, hw scan.Hardware) (domain.Outcome, error) {
	k := s.Kiosk(sid)
	ctrl, ok := k.controllers[m]
	if !ok {
		return domain.Outcome{}, ErrUnknownMode
	}
	for other, c := range k.controllers {
		if other != m {
			c.Deactivate()
		}
	}
	k.setLastAdded(nil)
	k.devices[m].Report(perm, hw)
	return ctrl.Activate(ctx), nil
}

func (s *SessionService) Deactivate(sid string, m scan.Mode) error {
	ctrl := s.Kiosk(sid).Controller(m)
	if ctrl == nil {
		return ErrUnknownMode
	}
	ctrl.Deactivate()
	return nil
}

func (s *SessionService) View(sid string, m scan.Mode) (SessionView, error) {
	k := s.Kiosk(sid)
	ctrl := k.Controller(m)
	if ctrl == nil {
		return SessionView{}, ErrUnknownMode
	}
	return SessionView{Status: ctrl.Status(), LastAdded: k.LastAdded(), ItemCount: k.Cart.ItemCount()}, nil
}

// Push hands a browser event to the mode's device. scan.ErrClosed means the
// session is not listening.
func (s *SessionService) Push(ctx context.Context, sid string, m scan.Mode, e scan.Event) (domain.Outcome, error) {
	dev, ok := s.Kiosk(sid).devices[m]
	if !ok {
		return domain.Outcome{}, ErrUnknownMode
	}
	return dev.Push(ctx, e)
}

// Close releases every capture device.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.kiosks {
		for _, c := range k.controllers {
			c.Deactivate()
		}
	}
}
