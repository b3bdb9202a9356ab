package server

import (
	"context"
	"sync"
	"time"

	"github.com/wvoelker/larynx/internal/bridge"
)

// CallTracker keeps track of in-flight bridge sessions so the server can
// report on them and force-close them during shutdown. All methods are safe
// for concurrent use.
type CallTracker struct {
	mu     sync.Mutex
	nextID uint64
	calls  map[uint64]*trackedCall
}

type trackedCall struct {
	sess      *bridge.Session
	cancel    context.CancelFunc
	startedAt time.Time
}

// NewCallTracker creates an empty tracker.
func NewCallTracker() *CallTracker {
	return &CallTracker{calls: make(map[uint64]*trackedCall)}
}

// Add registers a session together with the cancel func that unblocks its
// telephony read loop, and returns a tracking id.
func (t *CallTracker) Add(sess *bridge.Session, cancel context.CancelFunc) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.calls[t.nextID] = &trackedCall{sess: sess, cancel: cancel, startedAt: time.Now()}
	return t.nextID
}

// Remove forgets a session by its tracking id.
func (t *CallTracker) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.calls, id)
}

// Len reports the number of in-flight calls.
func (t *CallTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// CloseAll unblocks every tracked read loop and closes every tracked
// session. Used during shutdown after the listener has stopped accepting new
// streams. Sessions are not removed here; their owning handlers do that as
// their read loops unwind. Close is idempotent, so the handlers closing the
// same sessions again is harmless.
func (t *CallTracker) CloseAll(ctx context.Context) {
	t.mu.Lock()
	calls := make([]*trackedCall, 0, len(t.calls))
	for _, c := range t.calls {
		calls = append(calls, c)
	}
	t.mu.Unlock()

	for _, c := range calls {
		c.cancel()
		_ = c.sess.Close(ctx)
	}
}
