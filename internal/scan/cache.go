package scan

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheKey identifies one scanned file state. Size plus mtime is enough
// for watch-mode reuse; hashing content would cost the read the cache is
// there to avoid.
type CacheKey struct {
	Path  string
	Size  int64
	MTime int64 // UnixNano
}

// Cache memoizes scan results across rebuilds of the same corpus. A nil
// *Cache is valid and caches nothing.
type Cache struct {
	lru *lru.Cache[CacheKey, Result]
}

// NewCache creates a cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	l, err := lru.New[CacheKey, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached result for k, if present.
func (c *Cache) Get(k CacheKey) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	return c.lru.Get(k)
}

// Put stores the result for k.
func (c *Cache) Put(k CacheKey, r Result) {
	if c == nil {
		return
	}
	c.lru.Add(k, r)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
