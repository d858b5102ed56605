package runtime

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEvery_Invalid(t *testing.T) {
	calls := 0
	effect := Every(0, func(time.Time) Message { return TickMsg{} })
	effect.Run(context.Background(), func(Message) bool {
		calls++
		return true
	})
	if calls != 0 {
		t.Fatalf("expected no posts for invalid interval, got %d", calls)
	}

	effect = Every(10*time.Millisecond, nil)
	effect.Run(context.Background(), func(Message) bool {
		calls++
		return true
	})
	if calls != 0 {
		t.Fatalf("expected no posts for nil callback, got %d", calls)
	}
}

func TestEvery_PostsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu     sync.Mutex
		posted []Message
		ticks  int
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Every(time.Millisecond, func(now time.Time) Message {
			mu.Lock()
			defer mu.Unlock()
			ticks++
			if ticks%2 == 0 {
				return nil
			}
			return TickMsg{Time: now}
		}).Run(ctx, func(msg Message) bool {
			if ctx.Err() != nil {
				return false
			}
			mu.Lock()
			posted = append(posted, msg)
			n := len(posted)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
			return true
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		cancel()
		t.Fatal("expected Every to stop after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(posted) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posted))
	}
	if ticks < 3 {
		t.Fatalf("expected nil messages to be skipped, got %d ticks for 2 posts", ticks)
	}
	for _, msg := range posted {
		if _, ok := msg.(TickMsg); !ok {
			t.Fatalf("expected TickMsg, got %T", msg)
		}
	}
}
