/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagecache provides a small TTL cache owned by whoever constructs
// it. There is no package-level instance; the host decides lifetime and
// invalidation.
package pagecache

import (
	"sync"
	"time"
)

// Config controls expiry and capacity. TTL <= 0 keeps entries until they are
// invalidated; MaxEntries <= 0 means unbounded.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

type entry[V any] struct {
	v   V
	exp time.Time
	at  time.Time
}

// Cache is safe for concurrent use; page sources fill it from worker goroutines.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	cfg Config
	m   map[K]entry[V]
}

func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache[K, V]{cfg: cfg, m: make(map[K]entry[V])}
}

// Get returns the value for k unless it is missing or expired. Expired
// entries are dropped on access.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.exp.IsZero() && !c.cfg.Now().Before(e.exp) {
		delete(c.m, k)
		var zero V
		return zero, false
	}
	return e.v, true
}

func (c *Cache[K, V]) Put(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.cfg.Now()
	e := entry[V]{v: v, at: now}
	if c.cfg.TTL > 0 {
		e.exp = now.Add(c.cfg.TTL)
	}
	c.m[k] = e
	c.evictLocked()
}

// Invalidate drops a single key.
func (c *Cache[K, V]) Invalidate(k K) {
	c.mu.Lock()
	delete(c.m, k)
	c.mu.Unlock()
}

// InvalidateFunc drops every key for which match returns true.
func (c *Cache[K, V]) InvalidateFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.m {
		if match(k) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Purge empties the cache.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	c.m = make(map[K]entry[V])
	c.mu.Unlock()
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// evictLocked removes expired entries, then the oldest ones over capacity.
func (c *Cache[K, V]) evictLocked() {
	now := c.cfg.Now()
	for k, e := range c.m {
		if !e.exp.IsZero() && !now.Before(e.exp) {
			delete(c.m, k)
		}
	}
	for c.cfg.MaxEntries > 0 && len(c.m) > c.cfg.MaxEntries {
		var oldest K
		var oldestAt time.Time
		first := true
		for k, e := range c.m {
			if first || e.at.Before(oldestAt) {
				oldest, oldestAt, first = k, e.at, false
			}
		}
		delete(c.m, oldest)
	}
}
