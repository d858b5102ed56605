package rxui

import (
	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
	"github.com/odvcencio/furry-rx/rx"
)

// UseRxValue returns the current value of h and re-renders s whenever it
// changes.
func UseRxValue[A any](s *runtime.Scope, h rx.Rx[A]) A {
	reg := UseRegistry(s)
	return runtime.UseSyncExternalStore[A](s, useStore(s, reg, h))
}

// Setter writes to one handle in one registry.
type Setter[R, W any] struct {
	reg *registry.Registry
	h   rx.Writeable[R, W]
}

// Set writes value.
func (st *Setter[R, W]) Set(value W) {
	registry.Set(st.reg, st.h, value)
}

// Update writes fn applied to the current value.
func (st *Setter[R, W]) Update(fn func(R) W) {
	registry.Update(st.reg, st.h, fn)
}

// UseSetRx returns a Setter for h. The same Setter is returned for as long
// as the registry and h are unchanged.
func UseSetRx[R, W any](s *runtime.Scope, h rx.Writeable[R, W]) *Setter[R, W] {
	reg := UseRegistry(s)
	return runtime.UseMemo(s, func() *Setter[R, W] {
		return &Setter[R, W]{reg: reg, h: h}
	}, reg, h)
}

// UseRefreshRx returns a function that refreshes h. The function is stable
// for as long as the registry and h are unchanged.
func UseRefreshRx(s *runtime.Scope, h rx.Refreshable) func() {
	reg := UseRegistry(s)
	return runtime.UseCallback(s, func() { reg.Refresh(h) }, reg, h)
}

// UseRx is UseRxValue and UseSetRx in one call.
func UseRx[R, W any](s *runtime.Scope, h rx.Writeable[R, W]) (R, *Setter[R, W]) {
	return UseRxValue[R](s, h), UseSetRx(s, h)
}

// UseRxMount keeps h mounted in the registry while s is mounted, without
// reading it or re-rendering on change.
func UseRxMount(s *runtime.Scope, h rx.Atom) {
	reg := UseRegistry(s)
	runtime.UseEffect(s, func() func() {
		return reg.Mount(h)
	}, reg, h)
}

// UseRxSubscribe calls fn with every new value of h while s is mounted.
// fn does not cause a render by itself. The latest fn is always used.
func UseRxSubscribe[A any](s *runtime.Scope, h rx.Rx[A], fn func(A)) {
	reg := UseRegistry(s)
	latest := runtime.UseRef(s, fn)
	latest.Set(fn)
	runtime.UseEffect(s, func() func() {
		return registry.Subscribe(reg, h, func(v A) {
			if fn := latest.Current(); fn != nil {
				fn(v)
			}
		})
	}, reg, h)
}
