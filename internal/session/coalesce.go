package session

import (
	"sync"
	"time"
)

// Coalescer collapses bursts of work into at most one execution per window:
// the first call arms a timer, later calls within the window replace the
// pending function, and the latest one runs when the window closes. The last
// function submitted before a quiet period is therefore always executed.
type Coalescer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	stopped bool
}

// NewCoalescer creates a coalescer with the given minimum interval between
// executions.
func NewCoalescer(window time.Duration) *Coalescer {
	return &Coalescer{window: window}
}

// Do schedules fn. If an execution is already pending, fn replaces it; the
// earlier candidate is superseded, not queued.
func (c *Coalescer) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending = fn
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.fire)
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	fn := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs any pending function immediately. Used on shutdown and in
// synchronous paths that must observe the final state.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	fn := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops any pending work and rejects further submissions.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
