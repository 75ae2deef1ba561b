package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const defaultSize = 4096

// Config controls size and freshness of a HeadCache.
type Config struct {
	// Size bounds the number of entries kept.
	Size int
	// MaxHeadLag is how many blocks an entry stays valid after the head it was filled at.
	MaxHeadLag uint64
}

type entry[V any] struct {
	value V
	head  uint64
}

// HeadCache is a read-through cache whose entries are scoped to the chain head
// observed when they were filled. Concurrent fills of one key share a single call.
type HeadCache[K comparable, V any] struct {
	entries *lru.Cache[K, entry[V]]
	group   singleflight.Group
	head    atomic.Uint64
	maxLag  uint64
}

// New builds a HeadCache.
func New[K comparable, V any](cfg Config) (*HeadCache[K, V], error) {
	size := cfg.Size
	if size <= 0 {
		size = defaultSize
	}
	entries, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &HeadCache[K, V]{entries: entries, maxLag: cfg.MaxHeadLag}, nil
}

// Advance moves the known chain head forward. Lower values are ignored.
func (c *HeadCache[K, V]) Advance(head uint64) {
	for {
		current := c.head.Load()
		if head <= current {
			return
		}
		if c.head.CompareAndSwap(current, head) {
			return
		}
	}
}

// Head returns the current chain head.
func (c *HeadCache[K, V]) Head() uint64 {
	return c.head.Load()
}

// Get returns the cached value for key, calling fill on a miss or a stale entry.
// Errors from fill are returned and not cached.
func (c *HeadCache[K, V]) Get(key K, fill func() (V, error)) (V, error) {
	head := c.head.Load()
	if value, ok := c.lookup(key, head); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(fmt.Sprintf("%v", key), func() (interface{}, error) {
		if value, ok := c.lookup(key, head); ok {
			return value, nil
		}
		value, err := fill()
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, entry[V]{value: value, head: head})
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	value, _ := result.(V)
	return value, nil
}

func (c *HeadCache[K, V]) lookup(key K, head uint64) (V, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if head > e.head && head-e.head > c.maxLag {
		c.entries.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}
