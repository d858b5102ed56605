package runtime

import (
	"sync"

	"github.com/odvcencio/furry-rx/state"
)

// Ref is a mutable cell that persists across renders of a scope.
// Ref is safe for concurrent access.
type Ref[T any] struct {
	mu    sync.RWMutex
	value T
}

// Current returns the stored value.
func (r *Ref[T]) Current() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set replaces the stored value. It does not trigger a render.
func (r *Ref[T]) Set(value T) {
	r.mu.Lock()
	r.value = value
	r.mu.Unlock()
}

// UseRef returns the scope's Ref for this call site, holding initial on
// the first render.
func UseRef[T any](s *Scope, initial T) *Ref[T] {
	slot, created := s.slot(hookRef)
	if created {
		slot.value = &Ref[T]{value: initial}
	}
	return slot.value.(*Ref[T])
}

type memoSlot struct {
	deps  []any
	value any
}

// depsChanged compares dependency lists element by element with state.Same.
func depsChanged(prev, next []any) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if !state.Same(prev[i], next[i]) {
			return true
		}
	}
	return false
}

// UseMemo returns fn's result, recomputing it only when deps change.
// With no deps the value is computed once.
func UseMemo[T any](s *Scope, fn func() T, deps ...any) T {
	slot, created := s.slot(hookMemo)
	if created {
		slot.value = &memoSlot{deps: deps, value: fn()}
	} else if memo := slot.value.(*memoSlot); depsChanged(memo.deps, deps) {
		memo.value = fn()
		memo.deps = deps
	}
	v, _ := slot.value.(*memoSlot).value.(T)
	return v
}

// UseCallback returns fn as it was when deps last changed, so the result is
// stable across renders with the same deps.
func UseCallback[F any](s *Scope, fn F, deps ...any) F {
	return UseMemo(s, func() F { return fn }, deps...)
}

type effectSlot struct {
	deps    []any
	run     func() func()
	cleanup func()
}

func (e *effectSlot) disposeCleanup() {
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		cleanup()
	}
}

func (e *effectSlot) dispose() {
	e.run = nil
	e.disposeCleanup()
}

// UseEffect runs fn after the render that first mounts the scope and after
// every render in which deps changed. The function fn returns, if any, runs
// before the next run and when the scope unmounts. With no deps fn runs
// once.
func UseEffect(s *Scope, fn func() func(), deps ...any) {
	slot, created := s.slot(hookEffect)
	if created {
		effect := &effectSlot{deps: deps, run: fn}
		slot.value = effect
		s.pendingEffects = append(s.pendingEffects, effect)
		return
	}
	effect := slot.value.(*effectSlot)
	if depsChanged(effect.deps, deps) {
		effect.deps = deps
		effect.run = fn
		s.pendingEffects = append(s.pendingEffects, effect)
	}
}
