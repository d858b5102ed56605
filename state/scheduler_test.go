package state

import "testing"

func TestQueue_Flush(t *testing.T) {
	queue := NewQueue()
	calls := make([]int, 0, 2)

	queue.Schedule(func() {
		calls = append(calls, 1)
	})
	queue.Schedule(func() {
		calls = append(calls, 2)
	})

	if queue.Len() != 2 {
		t.Fatalf("expected 2 queued callbacks, got %d", queue.Len())
	}
	if flushed := queue.Flush(); flushed != 2 {
		t.Fatalf("expected 2 callbacks flushed, got %d", flushed)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("unexpected callback order: %v", calls)
	}
	if flushed := queue.Flush(); flushed != 0 {
		t.Fatalf("expected empty flush, got %d", flushed)
	}
}

func TestQueue_FlushDefersNested(t *testing.T) {
	queue := NewQueue()
	calls := 0
	queue.Schedule(func() {
		calls++
		queue.Schedule(func() { calls++ })
	})

	if flushed := queue.Flush(); flushed != 1 {
		t.Fatalf("expected 1 callback flushed, got %d", flushed)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected nested callback to wait, got %d queued", queue.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	queue := NewQueue()
	calls := 0
	queue.Schedule(func() {
		calls++
		queue.Schedule(func() {
			calls++
			queue.Schedule(func() { calls++ })
		})
	})

	if drained := queue.Drain(); drained != 3 {
		t.Fatalf("expected 3 callbacks drained, got %d", drained)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestQueue_Nil(t *testing.T) {
	var queue *Queue
	queue.Schedule(func() {})
	if queue.Flush() != 0 || queue.Len() != 0 {
		t.Fatalf("expected nil queue to be inert")
	}
}

func TestSchedulerFunc(t *testing.T) {
	calls := 0
	DirectScheduler.Schedule(func() { calls++ })
	if calls != 1 {
		t.Fatalf("expected direct scheduler to run inline, got %d", calls)
	}

	var nilFunc SchedulerFunc
	nilFunc.Schedule(func() { calls++ })
	if calls != 1 {
		t.Fatalf("expected nil scheduler func to drop callback, got %d", calls)
	}
}
