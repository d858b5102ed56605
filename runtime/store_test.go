package runtime

import (
	"sync"
	"testing"
)

type testStore struct {
	mu          sync.Mutex
	value       int
	next        int
	listeners   map[int]func()
	subscribes  int
	onSubscribe func()
}

func newTestStore(value int) *testStore {
	return &testStore{value: value, listeners: make(map[int]func())}
}

func (st *testStore) Subscribe(fn func()) func() {
	st.mu.Lock()
	id := st.next
	st.next++
	st.listeners[id] = fn
	st.subscribes++
	hook := st.onSubscribe
	st.mu.Unlock()
	if hook != nil {
		hook()
	}
	return func() {
		st.mu.Lock()
		delete(st.listeners, id)
		st.mu.Unlock()
	}
}

func (st *testStore) Snapshot() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.value
}

func (st *testStore) set(value int) {
	st.mu.Lock()
	st.value = value
	fns := make([]func(), 0, len(st.listeners))
	for _, fn := range st.listeners {
		fns = append(fns, fn)
	}
	st.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (st *testStore) listenerCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.listeners)
}

func TestUseSyncExternalStore_SubscribesAfterCommit(t *testing.T) {
	st := newTestStore(1)
	var duringRender []int
	root := NewRoot(func(s *Scope) Element {
		duringRender = append(duringRender, st.listenerCount())
		return Textf("%d", UseSyncExternalStore[int](s, st))
	})

	root.Render()
	if duringRender[0] != 0 {
		t.Fatalf("expected no subscription during first render, got %d", duringRender[0])
	}
	if st.listenerCount() != 1 {
		t.Fatalf("expected 1 subscription after commit, got %d", st.listenerCount())
	}
	if got := root.View(); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
}

func TestUseSyncExternalStore_RerendersOnChange(t *testing.T) {
	st := newTestStore(1)
	renders := 0
	root := NewRoot(func(s *Scope) Element {
		renders++
		return Textf("%d", UseSyncExternalStore[int](s, st))
	})
	root.Render()

	st.set(2)
	if !root.Dirty() {
		t.Fatal("expected store change to invalidate")
	}
	root.Render()
	if got := root.View(); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}

	st.set(2)
	if root.Dirty() {
		t.Fatal("expected unchanged snapshot not to invalidate")
	}
	if renders != 2 {
		t.Fatalf("expected 2 renders, got %d", renders)
	}
	if st.subscribes != 1 {
		t.Fatalf("expected the subscription to survive re-renders, got %d subscribes", st.subscribes)
	}
}

func TestUseSyncExternalStore_SwapUnsubscribesOld(t *testing.T) {
	a, b := newTestStore(1), newTestStore(7)
	var current ExternalStore[int] = a
	var scope *Scope
	root := NewRoot(func(s *Scope) Element {
		scope = s
		return Textf("%d", UseSyncExternalStore(s, current))
	})
	root.Render()

	current = b
	scope.Invalidate()
	root.Render()
	if a.listenerCount() != 0 {
		t.Fatalf("expected old store to be unsubscribed, got %d listeners", a.listenerCount())
	}
	if b.listenerCount() != 1 {
		t.Fatalf("expected new store to be subscribed, got %d listeners", b.listenerCount())
	}
	if got := root.View(); got != "7" {
		t.Fatalf("expected 7, got %q", got)
	}

	a.set(100)
	if root.Dirty() {
		t.Fatal("expected old store changes to be ignored")
	}
}

func TestUseSyncExternalStore_ChangeBeforeSubscribe(t *testing.T) {
	st := newTestStore(1)
	st.onSubscribe = func() {
		st.mu.Lock()
		st.value = 2
		st.mu.Unlock()
	}
	root := NewRoot(func(s *Scope) Element {
		return Textf("%d", UseSyncExternalStore[int](s, st))
	})

	root.Render()
	if got := root.View(); got != "2" {
		t.Fatalf("expected change made during subscribe to render, got %q", got)
	}
}

func TestUseSyncExternalStore_UnmountUnsubscribes(t *testing.T) {
	st := newTestStore(1)
	root := NewRoot(func(s *Scope) Element {
		return Textf("%d", UseSyncExternalStore[int](s, st))
	})
	root.Render()
	root.Unmount()
	if st.listenerCount() != 0 {
		t.Fatalf("expected unmount to unsubscribe, got %d listeners", st.listenerCount())
	}
}
