package registry

import (
	"maps"
	"slices"

	"github.com/odvcencio/furry-rx/rx"
	"github.com/odvcencio/furry-rx/state"
)

type nodeState uint8

const (
	nodeUninitialized nodeState = iota
	nodeStale
	nodeValid
)

func (s nodeState) String() string {
	switch s {
	case nodeUninitialized:
		return "uninitialized"
	case nodeStale:
		return "stale"
	case nodeValid:
		return "valid"
	default:
		return "unknown"
	}
}

// node holds the live value of one atom. All fields are guarded by the
// registry mutex.
type node struct {
	reg   *Registry
	atom  rx.Atom
	state nodeState
	value any

	life     *lifetime
	children map[*node]struct{}

	listeners    map[int]func()
	nextListener int

	removed        bool
	removalPending bool
}

func newNode(reg *Registry, atom rx.Atom) *node {
	return &node{
		reg:       reg,
		atom:      atom,
		children:  make(map[*node]struct{}),
		listeners: make(map[int]func()),
	}
}

func (n *node) removableLocked() bool {
	return !n.removed &&
		!n.atom.KeepAlive() &&
		len(n.listeners) == 0 &&
		len(n.children) == 0
}

func (n *node) valueLocked() any {
	if n.state != nodeValid {
		n.recomputeLocked()
	}
	return n.value
}

func (n *node) recomputeLocked() {
	var previous map[*node]struct{}
	if n.life != nil {
		previous = n.life.parents
	}
	n.disposeLifetimeLocked()
	life := &lifetime{node: n, parents: make(map[*node]struct{}), active: true}
	n.life = life
	value := n.readLocked(life)
	n.reg.metrics.recomputed()
	for parent := range previous {
		if _, ok := life.parents[parent]; !ok {
			n.reg.markRemovalLocked(parent)
		}
	}
	// the read function may have called SetSelf
	switch n.state {
	case nodeUninitialized:
		n.value = value
		n.state = nodeValid
	case nodeStale:
		n.setValueLocked(value)
	}
}

// readLocked runs the read function. If it panics the node keeps its
// previous state, so the next read computes it again.
func (n *node) readLocked(life *lifetime) any {
	defer func() { life.active = false }()
	return n.atom.ReadAny(life)
}

func (n *node) setValueLocked(value any) {
	if n.state == nodeUninitialized {
		n.value = value
		n.state = nodeValid
		n.notifyLocked()
		return
	}
	n.state = nodeValid
	if n.atom.Equal(n.value, value) {
		return
	}
	n.value = value
	n.notifyLocked()
	n.reg.changedLocked(n)
}

// invalidateLocked marks the value stale. Nodes that are observed, by
// listeners or by dependents, recompute right away so observers only hear
// about actual changes.
func (n *node) invalidateLocked() {
	if n.state == nodeValid {
		n.state = nodeStale
	}
	if n.observedLocked() {
		n.recomputeLocked()
		return
	}
	n.disposeLifetimeLocked()
}

func (n *node) observedLocked() bool {
	return len(n.listeners) > 0 || len(n.children) > 0
}

// dependentsLocked returns every node that transitively depends on n,
// each one after all of its parents.
func (n *node) dependentsLocked() []*node {
	seen := map[*node]bool{n: true}
	var order []*node
	var visit func(*node)
	visit = func(from *node) {
		for child := range from.children {
			if seen[child] {
				continue
			}
			seen[child] = true
			visit(child)
			order = append(order, child)
		}
	}
	visit(n)
	slices.Reverse(order)
	return order
}

func (n *node) parentChangedLocked(changed map[*node]bool) bool {
	if n.life == nil {
		return true
	}
	for parent := range n.life.parents {
		if changed[parent] {
			return true
		}
	}
	return false
}

func (n *node) notifyLocked() {
	if len(n.listeners) == 0 {
		return
	}
	for _, id := range slices.Sorted(maps.Keys(n.listeners)) {
		n.reg.pendingNotify = append(n.reg.pendingNotify, n.listeners[id])
	}
	n.reg.metrics.notified(len(n.listeners))
}

func (n *node) ensureLifetimeLocked() *lifetime {
	if n.life == nil {
		n.life = &lifetime{node: n, parents: make(map[*node]struct{})}
	}
	return n.life
}

func (n *node) disposeLifetimeLocked() {
	life := n.life
	if life == nil {
		return
	}
	n.life = nil
	life.disposed = true
	// Without a scheduler a parent is only released along with its child;
	// recomputeLocked releases the parents a new computation stopped reading.
	release := n.removed || n.reg.scheduler != nil
	for parent := range life.parents {
		delete(parent.children, n)
		if release {
			n.reg.markRemovalLocked(parent)
		}
	}
	n.reg.pendingFinalize = append(n.reg.pendingFinalize, life.finalizers.Take()...)
}

func (n *node) addListenerLocked(fn func()) int {
	id := n.nextListener
	n.nextListener++
	n.listeners[id] = fn
	n.reg.metrics.listenerAdded()
	return id
}

func (n *node) removeListenerLocked(id int) {
	if _, ok := n.listeners[id]; !ok {
		return
	}
	delete(n.listeners, id)
	n.reg.metrics.listenerRemoved()
	n.reg.markRemovalLocked(n)
}

// guard runs fn under the registry lock. Contexts handed to read and write
// functions are used synchronously while the lock is already held; calls
// made later, for example from a goroutine the read function started, take
// the lock themselves.
type guard struct {
	reg    *Registry
	active bool
}

func (g *guard) do(fn func()) {
	if g.active {
		fn()
		return
	}
	g.reg.run(fn)
}

// lifetime is the rx.Context of one computation of a node's value.
// It records the atoms read through it as dependencies.
type lifetime struct {
	node       *node
	parents    map[*node]struct{}
	finalizers state.Cleanups
	disposed   bool
	active     bool
}

var _ rx.Context = (*lifetime)(nil)

func (l *lifetime) guard() *guard {
	return &guard{reg: l.node.reg, active: l.active}
}

func (l *lifetime) Get(a rx.Atom) any {
	var value any
	l.guard().do(func() {
		reg := l.node.reg
		if l.disposed {
			value = reg.getLocked(a)
			return
		}
		parent := reg.ensureNodeLocked(a)
		if parent != l.node {
			l.parents[parent] = struct{}{}
			parent.children[l.node] = struct{}{}
		}
		value = parent.valueLocked()
	})
	return value
}

func (l *lifetime) Once(a rx.Atom) any {
	var value any
	l.guard().do(func() {
		value = l.node.reg.getLocked(a)
	})
	return value
}

func (l *lifetime) Self() (any, bool) {
	var (
		value any
		ok    bool
	)
	l.guard().do(func() {
		if l.node.state != nodeUninitialized {
			value, ok = l.node.value, true
		}
	})
	return value, ok
}

func (l *lifetime) SetSelf(value any) {
	l.guard().do(func() {
		if l.disposed {
			return
		}
		l.node.setValueLocked(value)
	})
}

func (l *lifetime) Set(a rx.WriteAtom, value any) {
	l.guard().do(func() {
		l.node.reg.setLocked(a, value)
	})
}

func (l *lifetime) Refresh(a rx.Atom) {
	l.guard().do(func() {
		l.node.reg.refreshLocked(a)
	})
}

func (l *lifetime) RefreshSelf() {
	l.guard().do(func() {
		reg := l.node.reg
		reg.pendingRefresh = append(reg.pendingRefresh, func() {
			if !l.disposed {
				l.node.invalidateLocked()
			}
		})
	})
}

func (l *lifetime) AddFinalizer(fn func()) {
	if fn == nil {
		return
	}
	if l.disposed {
		fn()
		return
	}
	l.finalizers.Add(fn)
}

func (l *lifetime) Subscribe(a rx.Atom, fn func()) {
	if fn == nil {
		return
	}
	var unsubscribe func()
	l.guard().do(func() {
		if l.disposed {
			return
		}
		unsubscribe = l.node.reg.subscribeLocked(a, fn)
	})
	l.finalizers.Add(unsubscribe)
}

// writeContext is the rx.Context handed to write functions. Reads made
// through it are not tracked.
type writeContext struct {
	node   *node
	active bool
}

var _ rx.Context = (*writeContext)(nil)

func (w *writeContext) guard() *guard {
	return &guard{reg: w.node.reg, active: w.active}
}

func (w *writeContext) Get(a rx.Atom) any {
	var value any
	w.guard().do(func() {
		value = w.node.reg.getLocked(a)
	})
	return value
}

func (w *writeContext) Once(a rx.Atom) any {
	return w.Get(a)
}

func (w *writeContext) Self() (any, bool) {
	var (
		value any
		ok    bool
	)
	w.guard().do(func() {
		value = w.node.valueLocked()
		ok = true
	})
	return value, ok
}

func (w *writeContext) SetSelf(value any) {
	w.guard().do(func() {
		if w.node.removed {
			return
		}
		w.node.setValueLocked(value)
	})
}

func (w *writeContext) Set(a rx.WriteAtom, value any) {
	w.guard().do(func() {
		w.node.reg.setLocked(a, value)
	})
}

func (w *writeContext) Refresh(a rx.Atom) {
	w.guard().do(func() {
		w.node.reg.refreshLocked(a)
	})
}

func (w *writeContext) RefreshSelf() {
	w.guard().do(func() {
		w.node.invalidateLocked()
	})
}

func (w *writeContext) AddFinalizer(fn func()) {
	if fn == nil {
		return
	}
	var life *lifetime
	w.guard().do(func() {
		if !w.node.removed {
			life = w.node.ensureLifetimeLocked()
		}
	})
	if life == nil {
		fn()
		return
	}
	life.AddFinalizer(fn)
}

func (w *writeContext) Subscribe(a rx.Atom, fn func()) {
	if fn == nil {
		return
	}
	var (
		life        *lifetime
		unsubscribe func()
	)
	w.guard().do(func() {
		if w.node.removed {
			return
		}
		life = w.node.ensureLifetimeLocked()
		unsubscribe = w.node.reg.subscribeLocked(a, fn)
	})
	if life != nil {
		life.AddFinalizer(unsubscribe)
	}
}
