package state

import "sync"

// Cleanups collects teardown callbacks (unsubscribes, effect cleanups,
// finalizers) and runs them once, most recent first.
type Cleanups struct {
	mu  sync.Mutex
	fns []func()
}

// Add registers a cleanup callback.
func (c *Cleanups) Add(fn func()) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

// Len reports the number of pending callbacks.
func (c *Cleanups) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	n := len(c.fns)
	c.mu.Unlock()
	return n
}

// Take removes and returns the pending callbacks in run order.
func (c *Cleanups) Take() []func() {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()
	for i, j := 0, len(fns)-1; i < j; i, j = i+1, j-1 {
		fns[i], fns[j] = fns[j], fns[i]
	}
	return fns
}

// Run executes and clears all pending callbacks.
func (c *Cleanups) Run() {
	for _, fn := range c.Take() {
		fn()
	}
}
