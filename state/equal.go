package state

import "reflect"

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// Same reports whether a and b hold the same comparable value.
// Values of different or non-comparable dynamic types are never the same,
// so callers treat them as changed.
func Same(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	// comparable structs may still hold non-comparable interface fields
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
