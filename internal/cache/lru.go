// Package cache provides a generic fixed-capacity least-recently-used cache.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// EvictFunc is called with the key and value of every entry pushed out by capacity.
type EvictFunc[K comparable, V any] func(key K, value V)

// LRU is a fixed-capacity key/value cache with least-recently-used eviction.
// Put and Get are O(1) and promote the entry to most recently used.
//
// Thread-safety: LRU is safe for concurrent use.
type LRU[K comparable, V any] struct {
	inner    *lru.Cache[K, V]
	capacity int
}

// New creates an LRU holding at most capacity entries.
// Returns a ValidationError if capacity is less than one.
func New[K comparable, V any](capacity int) (*LRU[K, V], error) {
	return NewWithEvict[K, V](capacity, nil)
}

// NewWithEvict is like New but calls onEvict for every entry the cache drops.
func NewWithEvict[K comparable, V any](capacity int, onEvict EvictFunc[K, V]) (*LRU[K, V], error) {
	if capacity < 1 {
		return nil, domain.NewValidationError("capacity", capacity, "must be at least 1")
	}

	var (
		inner *lru.Cache[K, V]
		err   error
	)
	if onEvict != nil {
		inner, err = lru.NewWithEvict[K, V](capacity, func(key K, value V) { onEvict(key, value) })
	} else {
		inner, err = lru.New[K, V](capacity)
	}
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &LRU[K, V]{inner: inner, capacity: capacity}, nil
}

// Put inserts or updates key and marks it most recently used.
// When the cache is full the least recently used entry is evicted first.
// Reports whether an eviction happened.
func (c *LRU[K, V]) Put(key K, value V) bool {
	return c.inner.Add(key, value)
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

// Peek returns the value for key without touching its recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	return c.inner.Peek(key)
}

// Contains reports whether key is cached without touching its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	return c.inner.Contains(key)
}

// Remove drops key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	return c.inner.Remove(key)
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.inner.Purge()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.inner.Len()
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from least to most recently used.
func (c *LRU[K, V]) Keys() []K {
	return c.inner.Keys()
}
