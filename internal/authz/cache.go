// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package authz

import (
	"sync"
	"time"
)

// enforcementCache caches (client_id, resource_type, value) decisions.
// Kept unchanged from the teacher's generic (subject, object, action)
// cache; only the field names at the call site changed meaning.
type enforcementCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]*cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

// newEnforcementCache creates a new cache.
func newEnforcementCache(ttl time.Duration) *enforcementCache {
	// A non-positive TTL falls back to the 5-minute default
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &enforcementCache{
		ttl:      ttl,
		items:    make(map[string]*cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// key generates a cache key.
func (c *enforcementCache) key(clientID, resourceType, value string) string {
	return clientID + ":" + resourceType + ":" + value
}

// get retrieves a cached decision.
func (c *enforcementCache) get(clientID, resourceType, value string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[c.key(clientID, resourceType, value)]
	if !ok {
		return false, false
	}

	if time.Now().After(item.expiresAt) {
		return false, false
	}

	return item.allowed, true
}

// set stores a decision in the cache.
func (c *enforcementCache) set(clientID, resourceType, value string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[c.key(clientID, resourceType, value)] = &cacheItem{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// clear removes all cached decisions.
func (c *enforcementCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem)
}

// cleanup periodically removes expired items.
func (c *enforcementCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// stop stops the cleanup goroutine.
// It is safe to call multiple times (idempotent).
func (c *enforcementCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
