// Package notify delivers user-facing notifications, dropping repeats of the
// same key that arrive within a short window.
package notify

import (
	"sync"
	"time"

	applog "tappinpay/internal/log"
)

// DuplicateWindow is how long a key stays suppressed after it was shown.
const DuplicateWindow = time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	Key     string    `json:"key"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Sink receives notifications that survived de-duplication.
type Sink interface {
	Push(Notification)
}

type Notifier struct {
	mu     sync.Mutex
	sink   Sink
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

func New(sink Sink) *Notifier {
	return &Notifier{sink: sink, window: DuplicateWindow, last: map[string]time.Time{}, now: time.Now}
}

func (n *Notifier) Success(key, msg string) bool { return n.notify(LevelSuccess, key, msg) }
func (n *Notifier) Error(key, msg string) bool   { return n.notify(LevelError, key, msg) }
func (n *Notifier) Info(key, msg string) bool    { return n.notify(LevelInfo, key, msg) }

// notify reports whether the notification was delivered.
func (n *Notifier) notify(level Level, key, msg string) bool {
	if key == "" {
		key = msg
	}
	n.mu.Lock()
	now := n.now()
	if at, ok := n.last[key]; ok && now.Sub(at) < n.window {
		n.mu.Unlock()
		applog.Info(nil, "notify.duplicate", map[string]any{"key": key})
		return false
	}
	n.prune(now)
	n.last[key] = now
	n.mu.Unlock()

	n.sink.Push(Notification{Key: key, Level: level, Message: msg, At: now})
	return true
}

// prune drops keys whose window has passed. Caller holds n.mu.
func (n *Notifier) prune(now time.Time) {
	for k, at := range n.last {
		if now.Sub(at) >= n.window {
			delete(n.last, k)
		}
	}
}

// Reset forgets every key.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.last = map[string]time.Time{}
	n.mu.Unlock()
}
