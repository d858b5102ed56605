package runtime

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/odvcencio/furry-rx/state"
)

// maxPasses bounds the render passes a single Render call makes while
// effects keep invalidating scopes.
const maxPasses = 64

// RootOption configures a Root.
type RootOption func(*Root)

// WithInvalidate sets the function called when a scope requests a render.
// It may be called from any goroutine.
func WithInvalidate(fn func()) RootOption {
	return func(r *Root) {
		r.onInvalidate = fn
	}
}

// WithLogger sets the logger for render and unmount records.
func WithLogger(logger *slog.Logger) RootOption {
	return func(r *Root) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStateQueue sets the queue drained after every commit.
func WithStateQueue(queue *state.Queue) RootOption {
	return func(r *Root) {
		if queue != nil {
			r.queue = queue
		}
	}
}

// WithScheduler sets the scheduler returned by Scheduler. It should feed
// the root's queue; the default is the queue itself.
func WithScheduler(scheduler state.Scheduler) RootOption {
	return func(r *Root) {
		r.scheduler = scheduler
	}
}

// Root renders a component tree.
type Root struct {
	mu        sync.Mutex
	scope     *Scope
	queue     *state.Queue
	scheduler state.Scheduler
	logger    *slog.Logger

	onInvalidate func()
	pending      atomic.Bool
	unmounted    bool

	defaultsMu sync.Mutex
	defaults   map[*contextKey]any
}

// NewRoot creates a root for c. Nothing renders until Render is called.
func NewRoot(c Component, opts ...RootOption) *Root {
	r := &Root{
		queue:    state.NewQueue(),
		logger:   slog.New(slog.DiscardHandler),
		defaults: make(map[*contextKey]any),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.scheduler == nil {
		r.scheduler = r.queue
	}
	r.scope = newScope(r, nil, "", c, nil)
	r.pending.Store(true)
	return r
}

// Scheduler returns the scheduler for work that should run after commit.
func (r *Root) Scheduler() state.Scheduler {
	return r.scheduler
}

// Queue returns the queue drained after every commit.
func (r *Root) Queue() *state.Queue {
	return r.queue
}

// Dirty reports whether a scope is waiting to be rendered.
func (r *Root) Dirty() bool {
	return r.pending.Load()
}

func (r *Root) requestRender() {
	r.pending.Store(true)
	if r.onInvalidate != nil {
		r.onInvalidate()
	}
}

func (r *Root) contextDefault(key *contextKey) any {
	r.defaultsMu.Lock()
	defer r.defaultsMu.Unlock()
	if value, ok := r.defaults[key]; ok {
		return value
	}
	value := key.init(r)
	r.defaults[key] = value
	return value
}

// renderPass collects the scopes rendered and unmounted in one pass, both
// in child-before-parent order.
type renderPass struct {
	rendered  []*Scope
	unmounted []*Scope
}

// Render renders every invalidated scope, commits effects and drains the
// root queue. It repeats while effects invalidate more scopes and reports
// whether anything rendered.
func (r *Root) Render() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unmounted {
		return false
	}
	rendered := false
	for passes := 0; r.pending.Load(); passes++ {
		if passes == maxPasses {
			r.logger.Warn("render did not settle", "passes", passes)
			break
		}
		r.pending.Store(false)
		var pass renderPass
		r.renderDirty(r.scope, &pass)
		if len(pass.rendered) > 0 || len(pass.unmounted) > 0 {
			rendered = true
			r.logger.Debug("render pass",
				"rendered", len(pass.rendered),
				"unmounted", len(pass.unmounted))
		}
		r.commit(&pass)
		r.queue.Drain()
	}
	return rendered
}

func (r *Root) renderDirty(s *Scope, pass *renderPass) {
	if s.dirty.Load() {
		r.renderScope(s, pass)
		return
	}
	for _, key := range s.order {
		r.renderDirty(s.children[key], pass)
	}
}

func (r *Root) renderScope(s *Scope, pass *renderPass) {
	s.beginRender()
	var el Element
	if s.component != nil {
		el = s.component(s)
	}
	s.endRender()

	previous := s.children
	s.children = make(map[string]*Scope, len(previous))
	s.order = s.order[:0]
	s.view = r.reconcile(s, el, s.frame, previous, pass)
	for _, key := range slices.Sorted(maps.Keys(previous)) {
		if _, kept := s.children[key]; !kept {
			collectUnmount(previous[key], &pass.unmounted)
		}
	}
	pass.rendered = append(pass.rendered, s)
}

// reconcile resolves embedded components in el to child scopes, reusing a
// previous child with the same key and rendering it.
func (r *Root) reconcile(s *Scope, el Element, f *frame, previous map[string]*Scope, pass *renderPass) Element {
	switch e := el.(type) {
	case nil:
		return nil
	case textElement:
		return e
	case groupElement:
		return groupElement{children: r.reconcileAll(s, e.children, f, previous, pass)}
	case provideElement:
		inner := &frame{parent: f, key: e.key, value: e.value}
		return groupElement{children: r.reconcileAll(s, e.children, inner, previous, pass)}
	case embedElement:
		if _, dup := s.children[e.key]; dup {
			panic(fmt.Sprintf("runtime: duplicate key %q", e.key))
		}
		child, ok := previous[e.key]
		if !ok {
			child = newScope(r, s, e.key, e.component, f)
		}
		child.component = e.component
		child.frame = f
		s.children[e.key] = child
		s.order = append(s.order, e.key)
		r.renderScope(child, pass)
		return scopeElement{scope: child}
	default:
		panic(fmt.Sprintf("runtime: unknown element %T", el))
	}
}

func (r *Root) reconcileAll(s *Scope, els []Element, f *frame, previous map[string]*Scope, pass *renderPass) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		if resolved := r.reconcile(s, el, f, previous, pass); resolved != nil {
			out = append(out, resolved)
		}
	}
	return out
}

func collectUnmount(s *Scope, out *[]*Scope) {
	for _, key := range s.order {
		collectUnmount(s.children[key], out)
	}
	*out = append(*out, s)
}

// commit unmounts removed scopes, then runs the cleanups of re-triggered
// effects, then the effects themselves. Children go before parents.
func (r *Root) commit(pass *renderPass) {
	for _, s := range pass.unmounted {
		s.dispose()
		r.logger.Debug("scope unmounted", "scope", s.id.String(), "key", s.key)
	}
	for _, s := range pass.rendered {
		for _, effect := range s.pendingEffects {
			effect.disposeCleanup()
		}
	}
	for _, s := range pass.rendered {
		effects := s.pendingEffects
		s.pendingEffects = nil
		s.mounted.Store(true)
		for _, effect := range effects {
			if effect.run != nil {
				effect.cleanup = effect.run()
			}
		}
	}
}

// View returns the text of the last render, one line per Text element.
func (r *Root) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(Lines(r.scope.view), "\n")
}

// Lines returns the lines of the last render.
func (r *Root) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Lines(r.scope.view)
}

// Unmount disposes every scope, children first, and drains the queue.
// The root cannot render again.
func (r *Root) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unmounted {
		return
	}
	r.unmounted = true
	var scopes []*Scope
	collectUnmount(r.scope, &scopes)
	for _, s := range scopes {
		s.dispose()
	}
	r.queue.Drain()
	r.logger.Debug("root unmounted", "scopes", len(scopes))
}
