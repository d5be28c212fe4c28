package browser

import (
	"sync"
	"time"
)

// idleTracker decides when a page has settled: at most limit requests in
// flight, continuously, for window. Requests are counted from reset, but the
// window only starts once arm is called after the load event.
type idleTracker struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	gen      uint64
	timer    *time.Timer
	idle     chan struct{}
	armed    bool
	fired    bool
}

func newIdleTracker(limit int, window time.Duration) *idleTracker {
	t := &idleTracker{limit: limit, window: window}
	t.reset()
	return t
}

// reset starts tracking a new navigation.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.inflight = make(map[string]struct{})
	t.idle = make(chan struct{})
	t.armed = false
	t.fired = false
}

// arm starts the quiet window for the current navigation.
func (t *idleTracker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.evaluateLocked()
}

func (t *idleTracker) started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.evaluateLocked()
}

func (t *idleTracker) finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.evaluateLocked()
}

// wait returns a channel closed once the current navigation settles.
func (t *idleTracker) wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}

func (t *idleTracker) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *idleTracker) evaluateLocked() {
	if !t.armed || t.fired {
		return
	}
	if len(t.inflight) > t.limit {
		t.stopLocked()
		return
	}
	if t.timer != nil {
		return
	}
	// Each arming gets a fresh generation so a stale callback never fires.
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.window, func() { t.fire(gen) })
}

func (t *idleTracker) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.fired || len(t.inflight) > t.limit {
		return
	}
	t.fired = true
	t.timer = nil
	close(t.idle)
}

func (t *idleTracker) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
