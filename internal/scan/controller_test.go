package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tappinpay/internal/domain"
)

type fakeResolver struct {
	products map[string]domain.Product
	entered  chan string
	release  chan struct{}
}

func (r *fakeResolver) GetProductByID(_ context.Context, id string) (domain.Product, bool) {
	if r.entered != nil {
		r.entered <- id
		<-r.release
	}
	p, ok := r.products[id]
	return p, ok
}

type fakeCart struct {
	mu    sync.Mutex
	items []domain.Product
	adds  int
}

func (c *fakeCart) IsItemInCart(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.items {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c *fakeCart) AddItemOnce(p domain.Product) bool {
	if c.IsItemInCart(p.ID) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, p)
	c.adds++
	return true
}

func (c *fakeCart) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type note struct{ level, key, msg string }

type fakeNotes struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotes) add(level, key, msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level, key, msg})
	return true
}
func (n *fakeNotes) Success(key, msg string) bool { return n.add("success", key, msg) }
func (n *fakeNotes) Error(key, msg string) bool   { return n.add("error", key, msg) }
func (n *fakeNotes) Info(key, msg string) bool    { return n.add("info", key, msg) }

func (n *fakeNotes) last() note {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return note{}
	}
	return n.notes[len(n.notes)-1]
}

var catalog = map[string]domain.Product{
	"FOOD001": {ID: "FOOD001", Name: "Organic Apples", Price: 120},
	"ELEC002": {ID: "ELEC002", Name: "USB-C Cable", Price: 299},
}

type rig struct {
	ctrl  *Controller
	dev   *RemoteDevice
	res   *fakeResolver
	cart  *fakeCart
	notes *fakeNotes
	added []domain.Product
	mu    sync.Mutex
}

func newRig(t *testing.T, mode Mode, opts Options) *rig {
	t.Helper()
	r := &rig{dev: NewRemoteDevice(), res: &fakeResolver{products: catalog}, cart: &fakeCart{}, notes: &fakeNotes{}}
	opts.OnProductAdded = func(p domain.Product) {
		r.mu.Lock()
		r.added = append(r.added, p)
		r.mu.Unlock()
	}
	r.ctrl = NewController(mode, r.dev, r.res, r.cart, r.notes, opts)
	t.Cleanup(r.ctrl.Deactivate)
	return r
}

func (r *rig) addedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added)
}

func slow() Options {
	return Options{RevertDelay: time.Hour, Cooldown: time.Hour}
}

func activate(t *testing.T, r *rig) {
	t.Helper()
	out := r.ctrl.Activate(context.Background())
	require.Equal(t, domain.OutcomeActivated, out.Kind)
	require.Equal(t, domain.ScanScanning, r.ctrl.Status().State)
}

func TestController_AddsNewProduct(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	activate(t, r)

	out, err := r.dev.Push(context.Background(), Event{Text: "FOOD001"})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeAdded, out.Kind)
	require.NotNil(t, out.Product)
	assert.Equal(t, "Organic Apples", out.Product.Name)
	assert.Equal(t, "Added Organic Apples to cart!", out.Message)
	assert.Equal(t, domain.ScanSuccess, r.ctrl.Status().State)
	assert.Equal(t, 1, r.cart.count())
	assert.Equal(t, 1, r.addedCount())
	assert.Equal(t, note{"success", "qr-added-FOOD001", "Added Organic Apples to cart!"}, r.notes.last())
}

func TestController_DebouncesRepeatedCandidate(t *testing.T) {
	r := newRig(t, ModeNFC, slow())
	activate(t, r)
	ctx := context.Background()

	first := r.ctrl.Process(ctx, "FOOD001")
	require.Equal(t, domain.OutcomeAdded, first.Kind)
	notesBefore := len(r.notes.notes)

	second := r.ctrl.Process(ctx, "FOOD001")
	assert.Equal(t, domain.OutcomeIgnored, second.Kind)
	assert.Equal(t, domain.ScanSuccess, r.ctrl.Status().State)
	assert.Equal(t, 1, r.cart.adds)
	assert.Equal(t, 1, r.addedCount())
	assert.Len(t, r.notes.notes, notesBefore)
}

func TestController_DuplicateIsDistinctFromNotFound(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	activate(t, r)
	ctx := context.Background()
	r.cart.AddItemOnce(catalog["ELEC002"])

	dup := r.ctrl.Process(ctx, "ELEC002")
	assert.Equal(t, domain.OutcomeDuplicate, dup.Kind)
	assert.Equal(t, "USB-C Cable is already in your cart!", dup.Message)
	assert.Equal(t, domain.ScanError, r.ctrl.Status().State)
	assert.Equal(t, 1, r.cart.count())
	assert.Equal(t, "qr-duplicate-ELEC002", r.notes.last().key)

	nf := r.ctrl.Process(ctx, "ZZZZ999")
	assert.Equal(t, domain.OutcomeNotFound, nf.Kind)
	assert.Equal(t, "Product ZZZZ999 not found", nf.Message)
	assert.Equal(t, "qr-not_found-ZZZZ999", r.notes.last().key)
	assert.NotEqual(t, dup.Message, nf.Message)
	assert.Equal(t, 0, r.addedCount())
}

func TestController_RevertsAndClearsDebounce(t *testing.T) {
	r := newRig(t, ModeQR, Options{RevertDelay: 20 * time.Millisecond, Cooldown: time.Hour})
	activate(t, r)
	ctx := context.Background()

	require.Equal(t, domain.OutcomeNotFound, r.ctrl.Process(ctx, "ZZZZ999").Kind)
	assert.Eventually(t, func() bool {
		return r.ctrl.Status().State == domain.ScanScanning
	}, time.Second, 5*time.Millisecond)

	// the slot was cleared by the revert, so the same code is looked up again
	assert.Equal(t, domain.OutcomeNotFound, r.ctrl.Process(ctx, "ZZZZ999").Kind)
}

func TestController_CooldownClearsDebounce(t *testing.T) {
	r := newRig(t, ModeQR, Options{RevertDelay: time.Hour, Cooldown: 20 * time.Millisecond})
	activate(t, r)
	ctx := context.Background()

	require.Equal(t, domain.OutcomeAdded, r.ctrl.Process(ctx, "FOOD001").Kind)
	assert.Eventually(t, func() bool {
		return r.ctrl.Process(ctx, "FOOD001").Kind == domain.OutcomeDuplicate
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.cart.count())
}

func TestController_NFCTransientErrors(t *testing.T) {
	r := newRig(t, ModeNFC, slow())
	activate(t, r)
	ctx := context.Background()

	out, err := r.dev.Push(ctx, Event{Message: &Message{Records: []Record{EncodeTextRecord("hello", "en")}}})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidTag, out.Kind)
	assert.Equal(t, domain.ScanError, r.ctrl.Status().State)

	out, err = r.dev.Push(ctx, Event{Err: errors.New("NotReadableError")})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeReadError, out.Kind)

	out, err = r.dev.Push(ctx, Event{Message: &Message{Records: []Record{EncodeURLRecord("https://s.example/p/", "FOOD001")}}})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAdded, out.Kind)
	assert.Equal(t, "Added Organic Apples to cart via NFC!", out.Message)
}

func TestController_EmptyQRTextIgnored(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	activate(t, r)
	out, err := r.dev.Push(context.Background(), Event{Text: ""})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, out.Kind)
	assert.Equal(t, domain.ScanScanning, r.ctrl.Status().State)
}

func TestController_PermissionDenied(t *testing.T) {
	r := newRig(t, ModeNFC, slow())
	r.dev.Report(PermissionDenied, HardwareReady)

	out := r.ctrl.Activate(context.Background())
	assert.Equal(t, domain.OutcomePermissionDenied, out.Kind)
	st := r.ctrl.Status()
	assert.False(t, st.Active)
	assert.False(t, st.Disabled)
	assert.Equal(t, domain.ScanError, st.State)

	// the user may retry once permission is granted
	r.dev.Report(PermissionGranted, "")
	assert.Equal(t, domain.OutcomeActivated, r.ctrl.Activate(context.Background()).Kind)
}

func TestController_UnsupportedDisablesPermanently(t *testing.T) {
	r := newRig(t, ModeNFC, slow())
	r.dev.Report(PermissionGranted, HardwareUnsupported)

	assert.Equal(t, domain.OutcomeUnsupported, r.ctrl.Activate(context.Background()).Kind)
	assert.True(t, r.ctrl.Status().Disabled)

	r.dev.Report("", HardwareReady)
	assert.Equal(t, domain.OutcomeUnsupported, r.ctrl.Activate(context.Background()).Kind)
	assert.False(t, r.ctrl.Status().Active)
}

func TestController_DeviceFailuresHaveDistinctMessages(t *testing.T) {
	seen := map[string]domain.OutcomeKind{}
	for hw, kind := range map[Hardware]domain.OutcomeKind{
		HardwareUnsupported: domain.OutcomeUnsupported,
		HardwareDisabled:    domain.OutcomeDisabled,
		HardwareBusy:        domain.OutcomeInUse,
	} {
		r := newRig(t, ModeQR, slow())
		r.dev.Report(PermissionGranted, hw)
		out := r.ctrl.Activate(context.Background())
		assert.Equal(t, kind, out.Kind)
		assert.NotEmpty(t, out.Message)
		seen[out.Message] = out.Kind
	}
	assert.Len(t, seen, 3)
}

func TestController_DisabledHardwareCanRetry(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	r.dev.Report(PermissionGranted, HardwareDisabled)
	assert.Equal(t, domain.OutcomeDisabled, r.ctrl.Activate(context.Background()).Kind)

	r.dev.Report("", HardwareReady)
	assert.Equal(t, domain.OutcomeActivated, r.ctrl.Activate(context.Background()).Kind)
}

func TestController_DeactivateReleasesDevice(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	activate(t, r)

	r.ctrl.Deactivate()
	assert.Equal(t, domain.ScanIdle, r.ctrl.Status().State)
	_, err := r.dev.Push(context.Background(), Event{Text: "FOOD001"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, domain.OutcomeInactive, r.ctrl.Process(context.Background(), "FOOD001").Kind)
	assert.Equal(t, 0, r.cart.count())
}

func TestController_StaleLookupAfterDeactivate(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	r.res.entered = make(chan string, 1)
	r.res.release = make(chan struct{})
	activate(t, r)

	done := make(chan domain.Outcome, 1)
	go func() { done <- r.ctrl.Process(context.Background(), "FOOD001") }()

	<-r.res.entered
	r.ctrl.Deactivate()
	close(r.res.release)

	out := <-done
	assert.Equal(t, domain.OutcomeInactive, out.Kind)
	assert.Equal(t, 0, r.cart.count())
	assert.Equal(t, 0, r.addedCount())
	assert.Equal(t, domain.ScanIdle, r.ctrl.Status().State)
}

func TestController_StaleLookupAfterReactivate(t *testing.T) {
	r := newRig(t, ModeQR, slow())
	r.res.entered = make(chan string, 1)
	r.res.release = make(chan struct{})
	activate(t, r)

	done := make(chan domain.Outcome, 1)
	go func() { done <- r.ctrl.Process(context.Background(), "FOOD001") }()

	<-r.res.entered
	r.ctrl.Deactivate()
	activate(t, r)
	close(r.res.release)

	assert.Equal(t, domain.OutcomeInactive, (<-done).Kind)
	assert.Equal(t, 0, r.cart.count())
	assert.Equal(t, domain.ScanScanning, r.ctrl.Status().State)
}

// gatedDevice holds its first Open until released.
type gatedDevice struct {
	*RemoteDevice
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDevice) Open(ctx context.Context, h Handler) error {
	d.once.Do(func() {
		d.entered <- struct{}{}
		<-d.release
	})
	return d.RemoteDevice.Open(ctx, h)
}

func TestController_DeactivateDuringOpen(t *testing.T) {
	dev := &gatedDevice{RemoteDevice: NewRemoteDevice(), entered: make(chan struct{}), release: make(chan struct{})}
	cart, notes := &fakeCart{}, &fakeNotes{}
	ctrl := NewController(ModeQR, dev, &fakeResolver{products: catalog}, cart, notes, slow())
	t.Cleanup(ctrl.Deactivate)
	ctx := context.Background()

	done := make(chan domain.Outcome, 1)
	go func() { done <- ctrl.Activate(ctx) }()

	<-dev.entered
	ctrl.Deactivate()
	close(dev.release)

	out := <-done
	assert.Equal(t, domain.OutcomeInactive, out.Kind)
	st := ctrl.Status()
	assert.False(t, st.Active)
	assert.Equal(t, domain.ScanIdle, st.State)
	_, err := dev.Push(ctx, Event{Text: "FOOD001"})
	assert.ErrorIs(t, err, ErrClosed)

	// the next activation really opens the device again
	require.Equal(t, domain.OutcomeActivated, ctrl.Activate(ctx).Kind)
	got, err := dev.Push(ctx, Event{Text: "FOOD001"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAdded, got.Kind)
	assert.Equal(t, 1, cart.count())
}

func TestAdmit(t *testing.T) {
	c := &fakeCart{}
	assert.Equal(t, domain.OutcomeAdded, Admit(c, catalog["FOOD001"]).Kind)
	assert.Equal(t, domain.OutcomeDuplicate, Admit(c, catalog["FOOD001"]).Kind)
	assert.Equal(t, 1, c.count())
}
