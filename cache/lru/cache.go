// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lru

import (
	"sync"

	"github.com/ava-labs/shardchain/cache"
	"github.com/ava-labs/shardchain/utils"
	"github.com/ava-labs/shardchain/utils/linked"
)

var _ cache.Cacher[struct{}, struct{}] = (*Cache[struct{}, struct{}])(nil)

// Cache holds at most size entries. Inserting into a full cache drops the
// least recently used entry.
type Cache[K comparable, V any] struct {
	lock sync.Mutex
	// entries is ordered from least to most recently used.
	entries *linked.Hashmap[K, V]
	size    int
}

func NewCache[K comparable, V any](size int) *Cache[K, V] {
	return &Cache[K, V]{
		entries: linked.NewHashmap[K, V](),
		size:    max(size, 1),
	}
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.entries.Get(key); !ok && c.entries.Len() >= c.size {
		oldest, _, _ := c.entries.Oldest()
		c.entries.Delete(oldest)
	}
	// Put moves an existing key to the back.
	c.entries.Put(key, value)
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	value, ok := c.entries.Get(key)
	if !ok {
		return utils.Zero[V](), false
	}
	c.entries.Put(key, value)
	return value, true
}

func (c *Cache[K, _]) Evict(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries.Delete(key)
}

func (c *Cache[K, V]) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries = linked.NewHashmap[K, V]()
}

func (c *Cache[_, _]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.entries.Len()
}

func (c *Cache[_, _]) PortionFilled() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return float64(c.entries.Len()) / float64(c.size)
}
