package interceptz

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

type chainKey struct {
	typ   reflect.Type
	shape Shape
}

// flightKey is unique per key: reflect.Type values are pointers to the
// runtime type descriptor, so two distinct types never share an address even
// when their String forms collide.
func (k chainKey) flightKey() string {
	return fmt.Sprintf("%d/%p", k.shape, k.typ)
}

// chainCache memoizes composed chains by (result type, shape). Entries are
// never evicted. Concurrent first use of a key is collapsed by singleflight
// and settled by LoadOrStore, so the first stored chain is the one every
// caller sees; no lock is held while a chain is built.
type chainCache struct {
	entries sync.Map // chainKey -> any (a shape Next func)
	flight  singleflight.Group
	size    int64
	mu      sync.Mutex
}

// getOrBuild returns the cached chain for key, building it on a miss. hit is
// false only for the caller whose build ran; callers that waited on another
// caller's build see a hit. Failed builds are not stored.
func (c *chainCache) getOrBuild(key chainKey, build func() (any, error)) (chain any, hit bool, err error) {
	if v, ok := c.entries.Load(key); ok {
		return v, true, nil
	}
	var leader bool
	v, err, _ := c.flight.Do(key.flightKey(), func() (any, error) {
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		leader = true
		built, err := build()
		if err != nil {
			return nil, err
		}
		if built == nil {
			return nil, fmt.Errorf("%w: empty chain for %s", ErrUnsupportedShape, Call{Shape: key.shape, Type: key.typ})
		}
		actual, loaded := c.entries.LoadOrStore(key, built)
		if !loaded {
			c.mu.Lock()
			c.size++
			c.mu.Unlock()
		}
		return actual, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, !leader, nil
}

// len returns the number of cached chains.
func (c *chainCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.size)
}
