package scan

import (
	"context"
	"errors"
	"sync"

	"tappinpay/internal/domain"
)

// Mode is the capture modality a controller drives.
type Mode string

const (
	ModeQR  Mode = "qr"
	ModeNFC Mode = "nfc"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeQR, ModeNFC:
		return Mode(s), true
	}
	return "", false
}

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionPrompt  Permission = "prompt"
	PermissionDenied  Permission = "denied"
)

var (
	ErrUnsupported      = errors.New("capture device not supported")
	ErrDisabled         = errors.New("capture device disabled")
	ErrInUse            = errors.New("capture device already in use")
	ErrPermissionDenied = errors.New("capture permission denied")
	ErrClosed           = errors.New("capture device closed")
)

// Event is one delivery from a capture device: QR text, an NFC message, or a read error.
type Event struct {
	Text    string
	Message *Message
	Err     error
}

// Handler receives device events while the device is open.
type Handler func(ctx context.Context, e Event) domain.Outcome

// Device is the capture hardware seen by a controller.
type Device interface {
	Permission(ctx context.Context) (Permission, error)
	Open(ctx context.Context, h Handler) error
	Close() error
}

type Hardware string

const (
	HardwareReady       Hardware = "ready"
	HardwareUnsupported Hardware = "unsupported"
	HardwareDisabled    Hardware = "disabled"
	HardwareBusy        Hardware = "busy"
)

// RemoteDevice is a Device whose hardware lives in the shopper's browser. The
// browser reports permission and hardware state before activation and then
// pushes decoded events; pushes after Close are rejected.
type RemoteDevice struct {
	mu         sync.Mutex
	permission Permission
	hardware   Hardware
	handler    Handler
}

func NewRemoteDevice() *RemoteDevice {
	return &RemoteDevice{permission: PermissionPrompt, hardware: HardwareReady}
}

// Report records what the browser knows about the permission and hardware.
func (d *RemoteDevice) Report(p Permission, h Hardware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p != "" {
		d.permission = p
	}
	if h != "" {
		d.hardware = h
	}
}

func (d *RemoteDevice) Permission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission, nil
}

func (d *RemoteDevice) Open(ctx context.Context, h Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.hardware {
	case HardwareUnsupported:
		return ErrUnsupported
	case HardwareDisabled:
		return ErrDisabled
	case HardwareBusy:
		return ErrInUse
	}
	if d.permission == PermissionDenied {
		return ErrPermissionDenied
	}
	if d.handler != nil {
		return ErrInUse
	}
	d.handler = h
	return nil
}

func (d *RemoteDevice) Close() error {
	d.mu.Lock()
	d.handler = nil
	d.mu.Unlock()
	return nil
}

// Push delivers e to the open handler.
func (d *RemoteDevice) Push(ctx context.Context, e Event) (domain.Outcome, error) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h == nil {
		return domain.Outcome{}, ErrClosed
	}
	return h(ctx, e), nil
}
