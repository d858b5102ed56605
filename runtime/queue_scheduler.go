package runtime

import "github.com/odvcencio/furry-rx/state"

// QueueScheduler enqueues callbacks and wakes the app to flush. The app
// hands it to its Root, so registry node removals land in the root queue.
type QueueScheduler struct {
	queue *state.Queue
	c     coalescer
}

var _ state.Scheduler = (*QueueScheduler)(nil)

// NewQueueScheduler wires a queue to a post function.
func NewQueueScheduler(queue *state.Queue, post PostFunc) *QueueScheduler {
	if queue == nil {
		queue = state.NewQueue()
	}
	return &QueueScheduler{
		queue: queue,
		c:     coalescer{post: post},
	}
}

// Queue returns the queue callbacks are added to.
func (s *QueueScheduler) Queue() *state.Queue {
	if s == nil {
		return nil
	}
	return s.queue
}

// Schedule enqueues the callback and posts a flush message.
func (s *QueueScheduler) Schedule(fn func()) {
	if s == nil || s.queue == nil || fn == nil {
		return
	}
	s.queue.Schedule(fn)
	s.c.request(QueueFlushMsg{})
}

func (s *QueueScheduler) resetPending() {
	if s == nil {
		return
	}
	s.c.reset()
}
