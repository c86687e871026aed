// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lrucache

import "time"

// ComputeValue is the closure passed to Get to compute a value that
// is not yet cached. Returned values are the value to store, the
// duration until it expires, and a size estimate charged against the
// cache's memory budget.
type ComputeValue func() (value interface{}, ttl time.Duration, size int)

type cacheEntry struct {
	key        string
	value      interface{}
	expiration time.Time
	size       int

	next, prev *cacheEntry
}

// Cache is a single-threaded LRU memoization cache. The driver FSM
// that is ByteSlab's only caller never calls Get from more than one
// goroutine at a time, so there is no locking or wait/broadcast
// coordination here — just a map plus an intrusive LRU list.
type Cache struct {
	maxmemory, usedmemory int
	entries               map[string]*cacheEntry
	head, tail            *cacheEntry
}

// New returns a new LRU in-memory cache bounded by maxmemory, the sum
// of the size estimates of its live entries.
func New(maxmemory int) *Cache {
	return &Cache{
		maxmemory: maxmemory,
		entries:   map[string]*cacheEntry{},
	}
}

// Get returns the cached value for key, or calls computeValue and
// stores its result. If computeValue is nil and key is not cached,
// nil is returned.
func (c *Cache) Get(key string, computeValue ComputeValue) interface{} {
	now := time.Now()

	if entry, ok := c.entries[key]; ok {
		if now.After(entry.expiration) {
			c.evictEntry(entry)
		} else {
			if entry != c.head {
				c.unlinkEntry(entry)
				c.insertFront(entry)
			}
			return entry.value
		}
	}

	if computeValue == nil {
		return nil
	}

	value, ttl, size := computeValue()
	entry := &cacheEntry{
		key:        key,
		value:      value,
		expiration: now.Add(ttl),
		size:       size,
	}
	c.entries[key] = entry
	c.usedmemory += size
	c.insertFront(entry)

	for c.usedmemory > c.maxmemory && c.tail != nil {
		c.evictEntry(c.tail)
	}

	return value
}

func (c *Cache) insertFront(e *cacheEntry) {
	e.next = c.head
	c.head = e

	e.prev = nil
	if e.next != nil {
		e.next.prev = e
	}

	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlinkEntry(e *cacheEntry) {
	if e == c.head {
		c.head = e.next
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if e == c.tail {
		c.tail = e.prev
	}
}

func (c *Cache) evictEntry(e *cacheEntry) {
	c.unlinkEntry(e)
	c.usedmemory -= e.size
	delete(c.entries, e.key)
}
