package notify

import (
	"sync"

	applog "tappinpay/internal/log"
)

const feedSize = 50

// Feed buffers notifications until the browser polls for them. Oldest entries
// are dropped once the buffer is full.
type Feed struct {
	mu    sync.Mutex
	items []Notification
}

func NewFeed() *Feed { return &Feed{} }

func (f *Feed) Push(n Notification) {
	applog.Info(nil, "notify."+string(n.Level), map[string]any{"key": n.Key, "message": n.Message})
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if len(f.items) > feedSize {
		f.items = f.items[len(f.items)-feedSize:]
	}
}

// Drain returns pending notifications oldest first and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
