package runtime

import "sync/atomic"

// coalescer posts a message at most once until reset. A failed post
// clears the pending flag so the next request tries again.
type coalescer struct {
	post    PostFunc
	pending atomic.Bool
}

func (c *coalescer) request(msg Message) {
	if c.post == nil {
		return
	}
	if c.pending.CompareAndSwap(false, true) {
		if !c.post(msg) {
			c.pending.Store(false)
		}
	}
}

func (c *coalescer) reset() {
	c.pending.Store(false)
}

// Invalidator posts an invalidate message with coalescing. A Root wired
// with WithInvalidate(inv.Invalidate) wakes the app loop whenever a scope
// needs rendering.
type Invalidator struct {
	c coalescer
}

// NewInvalidator creates an invalidator wired to a post function.
func NewInvalidator(post PostFunc) *Invalidator {
	return &Invalidator{c: coalescer{post: post}}
}

// Invalidate requests a render pass.
func (i *Invalidator) Invalidate() {
	if i == nil {
		return
	}
	i.c.request(InvalidateMsg{})
}

func (i *Invalidator) resetPending() {
	if i == nil {
		return
	}
	i.c.reset()
}
