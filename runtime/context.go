package runtime

type contextKey struct {
	init func(*Root) any
}

// Context carries a value down the component tree without threading it
// through every component. Components read it with UseContext; a subtree
// overrides it with Provide.
type Context[T any] struct {
	key *contextKey
}

// CreateContext returns a context whose value is def when no provider is
// present.
func CreateContext[T any](def T) *Context[T] {
	return &Context[T]{key: &contextKey{init: func(*Root) any { return def }}}
}

// CreateContextFunc returns a context whose default is built by fn the first
// time a root needs it. Each root gets its own default.
func CreateContextFunc[T any](fn func(*Root) T) *Context[T] {
	return &Context[T]{key: &contextKey{init: func(r *Root) any { return fn(r) }}}
}

// frame is one Provide binding; frames link toward the root.
type frame struct {
	parent *frame
	key    *contextKey
	value  any
}

func (f *frame) lookup(key *contextKey) (any, bool) {
	for ; f != nil; f = f.parent {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// UseContext returns the value of ctx provided by the nearest enclosing
// Provide, or the root's default.
func UseContext[T any](s *Scope, ctx *Context[T]) T {
	value, ok := s.frame.lookup(ctx.key)
	if !ok {
		value = s.root.contextDefault(ctx.key)
	}
	v, _ := value.(T)
	return v
}
