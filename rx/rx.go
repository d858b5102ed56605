// Package rx defines reactive value handles.
//
// A handle is an identity: it describes how a value is read (and possibly
// written or refreshed) but holds no value itself. Values live in a
// registry, keyed by handle identity. Two handles built from the same
// arguments are distinct atoms; use Family to share handles per key.
//
// Capabilities are carried by the static type returned from each
// constructor:
//
//	count := rx.Make(0)                          // Writeable[int, int]
//	double := rx.Readable(func(ctx rx.Context) int {
//	    return rx.Get(ctx, count) * 2
//	})                                           // Rx[int]
//	latest := rx.MakeRefreshable(double)         // RefreshableRx[int]
package rx

import "github.com/oklog/ulid/v2"

// Atom is the untyped identity of a reactive value.
type Atom interface {
	ID() ulid.ULID
	Label() string
	KeepAlive() bool
	Equal(a, b any) bool
	ReadAny(ctx Context) any
}

// Rx is a readable handle producing values of type A.
type Rx[A any] interface {
	Atom
	Read(ctx Context) A
}

// WriteAtom is the untyped view of a writeable handle.
type WriteAtom interface {
	Atom
	WriteAny(ctx Context, value any)
}

// Writeable is a handle that reads R and accepts writes of W.
type Writeable[R, W any] interface {
	Rx[R]
	WriteAtom
	Write(ctx Context, value W)
}

// Refreshable is a handle that supports forced recomputation.
// Refresh receives the registry's invalidate function and decides which
// atoms to invalidate.
type Refreshable interface {
	Atom
	Refresh(invalidate func(Atom))
}

// RefreshableRx is a readable, refreshable handle.
type RefreshableRx[A any] interface {
	Rx[A]
	Refreshable
}

// RefreshableWriteable is a writeable, refreshable handle.
type RefreshableWriteable[R, W any] interface {
	Writeable[R, W]
	Refreshable
}

// Context is handed to read and write functions by the registry.
type Context interface {
	// Get reads a and records it as a dependency of the current atom.
	Get(a Atom) any
	// Once reads a without recording a dependency.
	Once(a Atom) any
	// Self returns the previous value of the current atom, if any.
	Self() (any, bool)
	// SetSelf replaces the current atom's value and notifies dependents.
	SetSelf(value any)
	// Set writes to another atom.
	Set(a WriteAtom, value any)
	// Refresh refreshes another atom.
	Refresh(a Atom)
	// RefreshSelf invalidates the current atom.
	RefreshSelf()
	// AddFinalizer registers fn to run when the current value is discarded.
	AddFinalizer(fn func())
	// Subscribe listens to a for as long as the current value lives.
	Subscribe(a Atom, fn func())
}

// Get reads h through ctx, tracking it as a dependency.
func Get[A any](ctx Context, h Rx[A]) A {
	v, _ := ctx.Get(h).(A)
	return v
}

// Once reads h through ctx without tracking it.
func Once[A any](ctx Context, h Rx[A]) A {
	v, _ := ctx.Once(h).(A)
	return v
}

// Self returns the previous value of the atom being computed.
func Self[A any](ctx Context) (A, bool) {
	raw, ok := ctx.Self()
	if !ok {
		var zero A
		return zero, false
	}
	v, ok := raw.(A)
	return v, ok
}

// Set writes value to h through ctx.
func Set[R, W any](ctx Context, h Writeable[R, W], value W) {
	ctx.Set(h, value)
}
