package api

import (
	"context"
	"sync"
	"time"
)

// Notice is a user-visible, non-blocking failure message. The UI shows it as
// a toast; nothing in the engine blocks on it.
type Notice struct {
	ItemID  string    `json:"itemId"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notices buffers failure notices for the UI to poll. It implements
// engine.Notifier.
type Notices struct {
	mu      sync.Mutex
	pending []Notice
	signal  chan struct{}
}

// NewNotices creates an empty notice buffer.
func NewNotices() *Notices {
	return &Notices{signal: make(chan struct{}, 1)}
}

// MoveFailed implements engine.Notifier.
func (n *Notices) MoveFailed(itemID string, err error) {
	n.mu.Lock()
	n.pending = append(n.pending, Notice{ItemID: itemID, Message: "could not move task: " + err.Error(), Time: time.Now()})
	n.mu.Unlock()
	select {
	case n.signal <- struct{}{}:
	default:
	}
}

// Drain returns and clears all pending notices.
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

// Await blocks until at least one notice is pending or the context ends,
// then drains. It returns nil on a timed-out wait.
func (n *Notices) Await(ctx context.Context) []Notice {
	if out := n.Drain(); len(out) > 0 {
		return out
	}
	select {
	case <-n.signal:
		return n.Drain()
	case <-ctx.Done():
		return nil
	}
}
