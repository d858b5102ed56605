package runtime

import (
	"sync"

	"github.com/odvcencio/furry-rx/state"
)

// ExternalStore is a source of values owned outside the component tree.
// Stores are compared by identity: handing UseSyncExternalStore a different
// store value tears down the old subscription.
type ExternalStore[T any] interface {
	// Subscribe registers onChange and returns a function removing it.
	Subscribe(onChange func()) (unsubscribe func())
	// Snapshot returns the current value.
	Snapshot() T
}

type storeSlot[T any] struct {
	mu       sync.Mutex
	store    ExternalStore[T]
	rendered T
}

// changed reports whether the store's snapshot differs from the one last
// rendered.
func (st *storeSlot[T]) changed() bool {
	st.mu.Lock()
	store, rendered := st.store, st.rendered
	st.mu.Unlock()
	return !state.Same(store.Snapshot(), rendered)
}

// UseSyncExternalStore returns store's current snapshot and re-renders the
// scope whenever the snapshot changes.
//
// The snapshot is read during render. The subscription is made after the
// render commits and is replaced only when store itself changes. A change
// that lands between render and subscription is caught by re-checking the
// snapshot right after subscribing.
func UseSyncExternalStore[T any](s *Scope, store ExternalStore[T]) T {
	slot, created := s.slot(hookStore)
	if created {
		slot.value = &storeSlot[T]{}
	}
	st := slot.value.(*storeSlot[T])

	value := store.Snapshot()
	st.mu.Lock()
	st.store = store
	st.rendered = value
	st.mu.Unlock()

	UseEffect(s, func() func() {
		onChange := func() {
			if st.changed() {
				s.Invalidate()
			}
		}
		unsubscribe := store.Subscribe(onChange)
		onChange()
		return unsubscribe
	}, store)

	return value
}
