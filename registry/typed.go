package registry

import "github.com/odvcencio/furry-rx/rx"

// Get returns the current value of h in r.
func Get[A any](r *Registry, h rx.Rx[A]) A {
	v, _ := r.Get(h).(A)
	return v
}

// Set writes value to h in r.
func Set[R, W any](r *Registry, h rx.Writeable[R, W], value W) {
	r.Set(h, value)
}

// Update writes fn applied to the current value of h.
func Update[R, W any](r *Registry, h rx.Writeable[R, W], fn func(R) W) {
	r.Set(h, fn(Get[R](r, h)))
}

// SubscribeGetter is the typed form of Registry.SubscribeGetter.
func SubscribeGetter[A any](r *Registry, h rx.Rx[A], fn func()) (get func() A, unsubscribe func()) {
	raw, unsubscribe := r.SubscribeGetter(h, fn)
	return func() A {
		v, _ := raw().(A)
		return v
	}, unsubscribe
}

// Subscribe calls fn with the new value of h after every change.
func Subscribe[A any](r *Registry, h rx.Rx[A], fn func(A), opts ...SubscribeOption) func() {
	var config subscribeConfig
	for _, opt := range opts {
		opt(&config)
	}
	var get func() A
	get, unsubscribe := SubscribeGetter(r, h, func() { fn(get()) })
	if config.immediate {
		fn(get())
	}
	return unsubscribe
}
