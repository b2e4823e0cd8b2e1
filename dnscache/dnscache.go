// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dnscache

import (
	"net/netip"
	"strings"
	"sync"
	"time"
)

// DefaultCache is the cache used by clients that have none injected.
// Its TTL is zero, meaning caching is off. Raise the TTL with SetTTL to
// turn on address caching process-wide:
//
//	dnscache.DefaultCache.SetTTL(time.Minute)
var DefaultCache = New(0)

// A Cache maps hostnames to previously resolved IP addresses for a
// bounded lifetime.
//
// Every entry stored while the cache's TTL is d expires d after it was
// stored. A TTL of zero disables the cache completely: Store keeps
// nothing and Lookup always misses. Expired entries are evicted lazily
// when a lookup touches them; there is no background sweeper.
//
// A Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	addr    netip.Addr
	expires time.Time
}

// New constructs a cache whose entries live for ttl. A ttl of zero (or
// less) disables the cache.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// TTL returns the cache's current entry lifetime.
func (c *Cache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// SetTTL changes the lifetime applied to entries stored from now on.
// Entries already stored keep their original expiry. Setting a TTL of
// zero (or less) disables the cache for future stores.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Store records host as resolving to addr until the cache's TTL
// elapses. When the TTL is zero, or addr is not a valid address, Store
// keeps nothing.
func (c *Cache) Store(host string, addr netip.Addr) {
	if !addr.IsValid() {
		return
	}
	key := strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return
	}
	c.entries[key] = entry{
		addr:    addr.Unmap(),
		expires: c.now().Add(c.ttl),
	}
}

// Lookup returns the unexpired address stored for host, if any. An
// expired entry is evicted and reported as a miss.
func (c *Cache) Lookup(host string) (netip.Addr, bool) {
	key := strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[key]
	if !ok {
		return netip.Addr{}, false
	}
	if !c.now().Before(ent.expires) {
		delete(c.entries, key)
		return netip.Addr{}, false
	}
	return ent.addr, true
}

// Flush discards every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries currently held, including expired
// entries that no lookup has evicted yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
