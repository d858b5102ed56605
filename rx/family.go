package rx

import "sync"

// Family memoizes handle construction per key, so that the same key always
// yields the same identity and therefore the same registry node.
//
//	userName := rx.Family(func(id int) rx.Rx[string] {
//	    return rx.Readable(func(ctx rx.Context) string { return lookup(id) })
//	})
func Family[K comparable, A any](build func(K) A) func(K) A {
	var mu sync.Mutex
	members := make(map[K]A)
	return func(key K) A {
		mu.Lock()
		defer mu.Unlock()
		if member, ok := members[key]; ok {
			return member
		}
		member := build(key)
		members[key] = member
		return member
	}
}
