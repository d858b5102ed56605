// Package rxui binds rx handles to runtime components.
//
// A component reads a handle with UseRxValue and re-renders exactly when
// the value changes. Writes and refreshes go through UseSetRx and
// UseRefreshRx. All hooks resolve the registry from RegistryContext: each
// root gets its own default registry, and RegistryProvider overrides it for
// a subtree.
package rxui

import (
	"sync"

	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
	"github.com/odvcencio/furry-rx/rx"
)

// store adapts one (registry, handle) pair to runtime.ExternalStore.
// Nothing touches the registry until Snapshot or Subscribe is called.
type store[A any] struct {
	reg *registry.Registry
	h   rx.Rx[A]

	mu  sync.Mutex
	get func() A
}

var _ runtime.ExternalStore[int] = (*store[int])(nil)

func makeStore[A any](reg *registry.Registry, h rx.Rx[A]) *store[A] {
	return &store[A]{reg: reg, h: h}
}

// Snapshot reads through the getter of the latest subscription, or from
// the registry directly before the first one.
func (st *store[A]) Snapshot() A {
	st.mu.Lock()
	get := st.get
	st.mu.Unlock()
	if get != nil {
		return get()
	}
	return registry.Get(st.reg, st.h)
}

// Subscribe registers onChange with the registry and makes its getter the
// active one. The registry's unsubscribe is returned as is.
func (st *store[A]) Subscribe(onChange func()) func() {
	get, unsubscribe := registry.SubscribeGetter(st.reg, st.h, onChange)
	st.mu.Lock()
	st.get = get
	st.mu.Unlock()
	return unsubscribe
}

// matches reports whether the adapter is bound to exactly reg and h.
func (st *store[A]) matches(reg *registry.Registry, h rx.Rx[A]) bool {
	return st.reg == reg && st.h == h
}

// useStore returns the scope's adapter for this call site, replacing it
// during render when the registry or the handle changed identity.
func useStore[A any](s *runtime.Scope, reg *registry.Registry, h rx.Rx[A]) *store[A] {
	slot := runtime.UseRef[*store[A]](s, nil)
	current := slot.Current()
	if current == nil || !current.matches(reg, h) {
		current = makeStore(reg, h)
		slot.Set(current)
	}
	return current
}
