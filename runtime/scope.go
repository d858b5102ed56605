package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/furry-rx/state"
)

// Scope is one mounted component instance. It owns the instance's hook
// slots, its cleanups and its child scopes.
type Scope struct {
	id        ulid.ULID
	root      *Root
	parent    *Scope
	depth     int
	key       string
	component Component
	frame     *frame

	hooks     []*hookSlot
	hookIndex int
	rendering bool
	renders   int

	children map[string]*Scope
	order    []string
	view     Element

	pendingEffects []*effectSlot
	cleanups       state.Cleanups

	dirty     atomic.Bool
	mounted   atomic.Bool
	unmounted atomic.Bool
}

func newScope(root *Root, parent *Scope, key string, c Component, f *frame) *Scope {
	s := &Scope{
		id:        ulid.Make(),
		root:      root,
		parent:    parent,
		key:       key,
		component: c,
		frame:     f,
		children:  make(map[string]*Scope),
	}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	s.dirty.Store(true)
	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() ulid.ULID {
	return s.id
}

// Root returns the root the scope belongs to.
func (s *Scope) Root() *Root {
	return s.root
}

// Parent returns the enclosing scope, or nil for the root component.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Depth is 0 for the root component.
func (s *Scope) Depth() int {
	return s.depth
}

// Key returns the key the scope was embedded with.
func (s *Scope) Key() string {
	return s.key
}

// Mounted reports whether the scope has been committed and not yet
// unmounted.
func (s *Scope) Mounted() bool {
	return s.mounted.Load() && !s.unmounted.Load()
}

// Invalidate marks the scope for re-rendering on the next Render.
// It is safe to call from any goroutine.
func (s *Scope) Invalidate() {
	if s == nil || s.unmounted.Load() {
		return
	}
	if s.dirty.CompareAndSwap(false, true) {
		s.root.requestRender()
	}
}

// OnCleanup registers fn to run when the scope unmounts.
func (s *Scope) OnCleanup(fn func()) {
	s.cleanups.Add(fn)
}

type hookKind uint8

const (
	hookRef hookKind = iota
	hookMemo
	hookEffect
	hookStore
)

func (k hookKind) String() string {
	switch k {
	case hookRef:
		return "UseRef"
	case hookMemo:
		return "UseMemo"
	case hookEffect:
		return "UseEffect"
	case hookStore:
		return "UseSyncExternalStore"
	default:
		return "unknown"
	}
}

type hookSlot struct {
	kind  hookKind
	value any
}

// slot returns the next hook slot and whether it was created by this call.
func (s *Scope) slot(kind hookKind) (*hookSlot, bool) {
	if !s.rendering {
		panic(fmt.Sprintf("runtime: %s called outside render", kind))
	}
	idx := s.hookIndex
	s.hookIndex++
	if idx < len(s.hooks) {
		slot := s.hooks[idx]
		if slot.kind != kind {
			panic(fmt.Sprintf("runtime: hook order changed at index %d: expected %s, got %s", idx, slot.kind, kind))
		}
		return slot, false
	}
	if s.renders > 0 {
		panic(fmt.Sprintf("runtime: hook order changed: extra %s at index %d", kind, idx))
	}
	slot := &hookSlot{kind: kind}
	s.hooks = append(s.hooks, slot)
	return slot, true
}

func (s *Scope) beginRender() {
	s.dirty.Store(false)
	s.rendering = true
	s.hookIndex = 0
	s.pendingEffects = s.pendingEffects[:0]
}

func (s *Scope) endRender() {
	s.rendering = false
	if s.renders > 0 && s.hookIndex != len(s.hooks) {
		panic(fmt.Sprintf("runtime: hook order changed: rendered %d hooks, expected %d", s.hookIndex, len(s.hooks)))
	}
	s.renders++
}

// dispose runs effect cleanups in reverse declaration order, then the
// cleanups registered with OnCleanup.
func (s *Scope) dispose() {
	if !s.unmounted.CompareAndSwap(false, true) {
		return
	}
	for i := len(s.hooks) - 1; i >= 0; i-- {
		if effect, ok := s.hooks[i].value.(*effectSlot); ok {
			effect.dispose()
		}
	}
	s.cleanups.Run()
	s.pendingEffects = nil
}
