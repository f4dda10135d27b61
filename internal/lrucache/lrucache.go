// Package lrucache wraps hashicorp/golang-lru/v2 with the move-to-end
// semantics the politeness enforcer's two caches need (robots data and
// exclusion lookups, each capacity ~100,000 per spec §4.2).
//
// Grounded on dankinder-walker's cassandra/datastore.go, which uses
// the same hashicorp/golang-lru package for a per-domain cache; we use
// the generic v2 API instead of that example's untyped v1 API.
package lrucache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity, least-recently-used cache. Get and Add
// both count as an access for recency purposes, matching golang-lru's
// semantics and the spec's "lookup must update recency" requirement.
type Cache[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

// New creates a Cache with the given capacity.
func New[K comparable, V any](size int) (*Cache[K, V], error) {
	inner, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{inner: inner}, nil
}

// Get returns the cached value and whether it was present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

// Add inserts or updates a value, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache[K, V]) Add(key K, value V) {
	c.inner.Add(key, value)
}

// Remove drops a key from the cache, if present.
func (c *Cache[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	return c.inner.Len()
}
