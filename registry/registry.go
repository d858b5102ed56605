// Package registry owns the live reactive graph behind rx handles.
//
// A Registry maps each handle to a node holding its current value. Values
// are computed lazily on first read; atoms read through the rx.Context
// become dependencies, and a change to a dependency recomputes observed
// dependents. Listeners are notified only when a value actually changes
// according to the handle's equality.
//
// Nodes that are neither observed nor kept alive are removed. With a
// scheduler configured, removal of untouched nodes is deferred and
// re-checked when the scheduled task runs; without one, nodes are removed
// as soon as their last listener or dependent goes away.
//
// All graph mutation is serialized by one mutex. Listeners and finalizers
// run after it is released, so they may call back into the registry. Read
// and write functions must use the rx.Context they are handed rather than
// the Registry itself.
package registry

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/furry-rx/rx"
	"github.com/odvcencio/furry-rx/state"
)

// Option configures a Registry.
type Option func(*Registry)

// WithScheduler defers removal of unused nodes through scheduler.
func WithScheduler(scheduler state.Scheduler) Option {
	return func(r *Registry) {
		r.scheduler = scheduler
	}
}

// WithLogger sets the logger used for node lifecycle records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// InitialValue seeds a node before its read function ever runs.
type InitialValue struct {
	Atom  rx.Atom
	Value any
}

// Seed builds a typed InitialValue.
func Seed[A any](h rx.Rx[A], value A) InitialValue {
	return InitialValue{Atom: h, Value: value}
}

// WithInitialValues seeds nodes at construction.
func WithInitialValues(values ...InitialValue) Option {
	return func(r *Registry) {
		r.initial = append(r.initial, values...)
	}
}

// Registry holds the nodes for a set of handles.
type Registry struct {
	mu        sync.Mutex
	nodes     map[rx.Atom]*node
	scheduler state.Scheduler
	logger    *slog.Logger
	metrics   *Metrics
	initial   []InitialValue
	disposed  bool

	// work collected under mu and settled before it is released
	pendingNotify   []func()
	pendingFinalize []func()
	pendingRefresh  []func()
	pendingRemoval  []*node
	pass            *propagation
}

// Make creates an empty registry.
func Make(opts ...Option) *Registry {
	r := &Registry{
		nodes:  make(map[rx.Atom]*node),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	for _, seed := range r.initial {
		if seed.Atom == nil {
			continue
		}
		n := r.ensureNodeLocked(seed.Atom)
		n.value = seed.Value
		n.state = nodeValid
	}
	r.initial = nil
	return r
}

// Get returns the current value of a, computing it if needed.
func (r *Registry) Get(a rx.Atom) any {
	var value any
	r.run(func() {
		value = r.getLocked(a)
	})
	return value
}

// Set writes value through a's write function.
func (r *Registry) Set(a rx.WriteAtom, value any) {
	r.run(func() {
		r.setLocked(a, value)
	})
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	immediate bool
}

// Immediate invokes the listener once right after subscribing.
func Immediate() SubscribeOption {
	return func(c *subscribeConfig) {
		c.immediate = true
	}
}

// Subscribe registers fn to run after every change of a. The node is
// computed before fn is attached. The returned function unsubscribes and
// is safe to call more than once.
func (r *Registry) Subscribe(a rx.Atom, fn func(), opts ...SubscribeOption) func() {
	var config subscribeConfig
	for _, opt := range opts {
		opt(&config)
	}
	if fn == nil {
		fn = func() {}
	}
	unsubscribe := func() {}
	r.run(func() {
		unsubscribe = r.subscribeLocked(a, fn)
		if config.immediate {
			r.pendingNotify = append(r.pendingNotify, fn)
		}
	})
	return unsubscribe
}

// SubscribeGetter subscribes fn to a and returns a getter bound to a's
// node. After a notification the getter returns the value that caused it.
func (r *Registry) SubscribeGetter(a rx.Atom, fn func()) (get func() any, unsubscribe func()) {
	var n *node
	unsubscribe = func() {}
	if fn == nil {
		fn = func() {}
	}
	r.run(func() {
		n = r.ensureNodeLocked(a)
		unsubscribe = r.subscribeLocked(a, fn)
	})
	if n == nil {
		return func() any { return nil }, unsubscribe
	}
	get = func() any {
		var value any
		r.run(func() {
			if n.removed {
				value = r.getLocked(a)
				return
			}
			value = n.valueLocked()
		})
		return value
	}
	return get, unsubscribe
}

// Refresh forces recomputation. Refreshable handles decide what gets
// invalidated; other atoms invalidate their own node.
func (r *Registry) Refresh(a rx.Atom) {
	r.run(func() {
		r.refreshLocked(a)
	})
}

// Mount keeps a's node alive until the returned function is called.
func (r *Registry) Mount(a rx.Atom) func() {
	return r.Subscribe(a, nil)
}

// NodeInfo describes one node for inspection.
type NodeInfo struct {
	ID           ulid.ULID
	Label        string
	State        string
	Value        any
	Listeners    int
	Dependents   int
	Dependencies int
	KeepAlive    bool
}

// Nodes returns a description of every live node, ordered by handle ID.
func (r *Registry) Nodes() []NodeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		info := NodeInfo{
			ID:         n.atom.ID(),
			Label:      n.atom.Label(),
			State:      n.state.String(),
			Listeners:  len(n.listeners),
			Dependents: len(n.children),
			KeepAlive:  n.atom.KeepAlive(),
		}
		if n.state != nodeUninitialized {
			info.Value = n.value
		}
		if n.life != nil {
			info.Dependencies = len(n.life.parents)
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b NodeInfo) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return infos
}

// Dispose removes every node and runs all finalizers. Operations on a
// disposed registry do nothing and reads return nil.
func (r *Registry) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	var (
		finalizers []func()
		listeners  int
	)
	for _, n := range r.nodes {
		n.removed = true
		listeners += len(n.listeners)
		if n.life != nil {
			n.life.disposed = true
			finalizers = append(finalizers, n.life.finalizers.Take()...)
			n.life = nil
		}
	}
	count := len(r.nodes)
	r.nodes = make(map[rx.Atom]*node)
	r.pendingNotify = nil
	r.pendingRefresh = nil
	r.pendingRemoval = nil
	finalizers = append(r.pendingFinalize, finalizers...)
	r.pendingFinalize = nil
	r.metrics.reset(count, listeners)
	r.mu.Unlock()

	r.logger.Debug("registry disposed", "nodes", count)
	for _, fn := range finalizers {
		fn()
	}
}

// run executes fn under the lock, settles the work it produced, and then
// runs finalizers and listeners outside the lock.
func (r *Registry) run(fn func()) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	finalizers, scheduled, notify := r.settleLocked(fn)
	r.mu.Unlock()

	for _, f := range finalizers {
		f()
	}
	for _, n := range scheduled {
		r.scheduleRemoval(n)
	}
	for _, f := range notify {
		f()
	}
}

// settleLocked runs fn and the refreshes and removals it queued. If any of
// it panics, pending notifications and refreshes are dropped, collected
// finalizers run, and the panic continues with the lock released.
func (r *Registry) settleLocked(fn func()) (finalizers []func(), scheduled []*node, notify []func()) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		r.logger.Error("registry operation panicked", "panic", p)
		pending := r.pendingFinalize
		r.pendingFinalize = nil
		r.pendingNotify = nil
		r.pendingRefresh = nil
		r.pass = nil
		r.mu.Unlock()
		for _, f := range pending {
			f()
		}
		panic(p)
	}()
	fn()
	for len(r.pendingRefresh) > 0 {
		refresh := r.pendingRefresh
		r.pendingRefresh = nil
		for _, f := range refresh {
			f()
		}
	}
	scheduled = r.settleRemovalsLocked()
	finalizers = r.pendingFinalize
	notify = r.pendingNotify
	r.pendingFinalize = nil
	r.pendingNotify = nil
	return finalizers, scheduled, notify
}

// changedLocked brings the dependents of n up to date after its value
// changed. Inside a running propagation a changed member is only recorded;
// the running pass reaches its dependents in order.
func (r *Registry) changedLocked(n *node) {
	if _, ok := r.pass.member(n); ok {
		r.pass.changed[n] = true
		return
	}
	r.propagateLocked(n)
}

// propagation is one pass over the dependents of a changed node. members
// records, per dependent, whether this pass marked it stale.
type propagation struct {
	members map[*node]bool
	changed map[*node]bool
}

func (p *propagation) member(n *node) (marked, ok bool) {
	if p == nil {
		return false, false
	}
	marked, ok = p.members[n]
	return marked, ok
}

// propagateLocked marks every transitive dependent of source stale, then
// visits them parents first. A dependent none of whose parents changed is
// valid again as is; an observed one recomputes and an unobserved one drops
// its lifetime. Each dependent therefore reads consistent parents and
// notifies at most once per change of source.
func (r *Registry) propagateLocked(source *node) {
	order := source.dependentsLocked()
	if len(order) == 0 {
		return
	}
	p := &propagation{
		members: make(map[*node]bool, len(order)),
		changed: map[*node]bool{source: true},
	}
	for _, d := range order {
		p.members[d] = d.state == nodeValid
		if d.state == nodeValid {
			d.state = nodeStale
		}
	}
	outer := r.pass
	r.pass = p
	defer func() { r.pass = outer }()
	for _, d := range order {
		if d.removed || d.state != nodeStale || (d.life != nil && d.life.active) {
			continue
		}
		marked, _ := p.member(d)
		switch {
		case marked && !d.parentChangedLocked(p.changed):
			d.state = nodeValid
		case d.observedLocked():
			d.recomputeLocked()
		default:
			d.disposeLifetimeLocked()
		}
	}
}

func (r *Registry) ensureNodeLocked(a rx.Atom) *node {
	if n, ok := r.nodes[a]; ok {
		return n
	}
	n := newNode(r, a)
	r.nodes[a] = n
	r.metrics.nodeAdded()
	r.logger.Debug("node created", "atom", a.Label())
	return n
}

func (r *Registry) getLocked(a rx.Atom) any {
	n := r.ensureNodeLocked(a)
	value := n.valueLocked()
	r.touchLocked(n)
	return value
}

func (r *Registry) setLocked(a rx.WriteAtom, value any) {
	n := r.ensureNodeLocked(a)
	w := &writeContext{node: n, active: true}
	func() {
		defer func() { w.active = false }()
		a.WriteAny(w, value)
	}()
	r.touchLocked(n)
}

func (r *Registry) refreshLocked(a rx.Atom) {
	r.metrics.refreshed()
	r.logger.Debug("refresh", "atom", a.Label())
	if refreshable, ok := a.(rx.Refreshable); ok {
		refreshable.Refresh(r.invalidateAtomLocked)
		return
	}
	r.invalidateAtomLocked(a)
}

func (r *Registry) invalidateAtomLocked(a rx.Atom) {
	if n, ok := r.nodes[a]; ok {
		n.invalidateLocked()
	}
}

func (r *Registry) subscribeLocked(a rx.Atom, fn func()) func() {
	n := r.ensureNodeLocked(a)
	n.valueLocked()
	id := n.addListenerLocked(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			r.run(func() {
				n.removeListenerLocked(id)
			})
		})
	}
}

// touchLocked queues an unobserved node for deferred removal after a plain
// read or write. Without a scheduler such nodes linger until observed and
// released.
func (r *Registry) touchLocked(n *node) {
	if r.scheduler == nil {
		return
	}
	r.markRemovalLocked(n)
}

func (r *Registry) markRemovalLocked(n *node) {
	r.pendingRemoval = append(r.pendingRemoval, n)
}

// settleRemovalsLocked removes unused nodes, or returns them for deferred
// removal when a scheduler is configured.
func (r *Registry) settleRemovalsLocked() []*node {
	var scheduled []*node
	for len(r.pendingRemoval) > 0 {
		batch := r.pendingRemoval
		r.pendingRemoval = nil
		for _, n := range batch {
			if !n.removableLocked() {
				continue
			}
			if r.scheduler == nil {
				r.removeLocked(n)
				continue
			}
			if !n.removalPending {
				n.removalPending = true
				scheduled = append(scheduled, n)
			}
		}
	}
	return scheduled
}

func (r *Registry) scheduleRemoval(n *node) {
	r.scheduler.Schedule(func() {
		r.run(func() {
			n.removalPending = false
			r.removeLocked(n)
		})
	})
}

func (r *Registry) removeLocked(n *node) {
	if !n.removableLocked() || r.nodes[n.atom] != n {
		return
	}
	delete(r.nodes, n.atom)
	n.removed = true
	n.disposeLifetimeLocked()
	r.metrics.nodeRemoved(true)
	r.logger.Debug("node removed", "atom", n.atom.Label())
}

// Len reports the number of live nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// Has reports whether a currently has a node.
func (r *Registry) Has(a rx.Atom) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.nodes[a]
	return ok
}
