package rx

import (
	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/furry-rx/state"
)

// Option configures a handle at construction.
type Option func(*meta)

// WithLabel names the handle for logs and inspection.
func WithLabel(label string) Option {
	return func(m *meta) {
		m.label = label
	}
}

// WithKeepAlive keeps the handle's node in the registry after its last
// listener goes away.
func WithKeepAlive() Option {
	return func(m *meta) {
		m.keepAlive = true
	}
}

// WithEqual sets the equality used to suppress redundant notifications.
func WithEqual[A any](fn func(a, b A) bool) Option {
	return func(m *meta) {
		if fn == nil {
			m.equal = nil
			return
		}
		m.equal = func(a, b any) bool {
			av, aok := a.(A)
			bv, bok := b.(A)
			if !aok || !bok {
				return false
			}
			return fn(av, bv)
		}
	}
}

type meta struct {
	id        ulid.ULID
	label     string
	keepAlive bool
	equal     func(a, b any) bool
}

func newMeta(opts []Option) meta {
	m := meta{id: ulid.Make()}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// derive copies the settings of an existing atom under a fresh identity.
func derive(from Atom) meta {
	return meta{
		id:        ulid.Make(),
		label:     from.Label(),
		keepAlive: from.KeepAlive(),
		equal:     from.Equal,
	}
}

// ID returns the handle's unique identifier.
func (m *meta) ID() ulid.ULID {
	return m.id
}

// Label returns the handle label, or its ID when unlabeled.
func (m *meta) Label() string {
	if m.label != "" {
		return m.label
	}
	return m.id.String()
}

// KeepAlive reports whether the node outlives its listeners.
func (m *meta) KeepAlive() bool {
	return m.keepAlive
}

// Equal reports whether two values of this handle are the same.
func (m *meta) Equal(a, b any) bool {
	if m.equal != nil {
		return m.equal(a, b)
	}
	return state.Same(a, b)
}

type readable[A any] struct {
	meta
	read func(Context) A
}

func (h *readable[A]) Read(ctx Context) A {
	return h.read(ctx)
}

func (h *readable[A]) ReadAny(ctx Context) any {
	return h.read(ctx)
}

type writable[R, W any] struct {
	readable[R]
	write func(Context, W)
}

func (h *writable[R, W]) Write(ctx Context, value W) {
	h.write(ctx, value)
}

func (h *writable[R, W]) WriteAny(ctx Context, value any) {
	if value == nil {
		var zero W
		h.write(ctx, zero)
		return
	}
	h.write(ctx, value.(W))
}

type refreshableReadable[A any] struct {
	readable[A]
}

func (h *refreshableReadable[A]) Refresh(invalidate func(Atom)) {
	invalidate(h)
}

type refreshableWritable[R, W any] struct {
	writable[R, W]
}

func (h *refreshableWritable[R, W]) Refresh(invalidate func(Atom)) {
	invalidate(h)
}

// Make returns a state handle holding initial until written.
func Make[A any](initial A, opts ...Option) Writeable[A, A] {
	return &writable[A, A]{
		readable: readable[A]{
			meta: newMeta(opts),
			read: func(Context) A { return initial },
		},
		write: func(ctx Context, value A) { ctx.SetSelf(value) },
	}
}

// Readable returns a computed handle. Dependencies read through
// the context are tracked and trigger recomputation.
func Readable[A any](read func(Context) A, opts ...Option) Rx[A] {
	if read == nil {
		read = func(Context) A {
			var zero A
			return zero
		}
	}
	return &readable[A]{meta: newMeta(opts), read: read}
}

// Writable returns a handle with custom read and write functions.
func Writable[R, W any](read func(Context) R, write func(Context, W), opts ...Option) Writeable[R, W] {
	if write == nil {
		write = func(Context, W) {}
	}
	return &writable[R, W]{
		readable: *Readable(read, opts...).(*readable[R]),
		write:    write,
	}
}

// MakeRefreshable returns a refreshable copy of h with a new identity.
func MakeRefreshable[A any](h Rx[A]) RefreshableRx[A] {
	return &refreshableReadable[A]{
		readable: readable[A]{meta: derive(h), read: h.Read},
	}
}

// MakeRefreshableWritable returns a refreshable copy of h with a new identity.
func MakeRefreshableWritable[R, W any](h Writeable[R, W]) RefreshableWriteable[R, W] {
	return &refreshableWritable[R, W]{
		writable: writable[R, W]{
			readable: readable[R]{meta: derive(h), read: h.Read},
			write:    h.Write,
		},
	}
}
