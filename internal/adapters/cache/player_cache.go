// Package cache provides the in-memory caches the sync core depends
// on: the read-through player cache and a generic TTL cache used for
// link update-check results.
package cache

import (
	"sync"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/player"
)

// PlayerCache is an in-memory map of players with synchronous
// subscriber fan-out. Values are cloned on the way in and out so
// observers never share mutable state with the cache.
type PlayerCache struct {
	mu          sync.Mutex
	entries     map[string]*player.Player
	subscribers map[string]map[int]ports.CacheSubscriber
	nextSubID   int
}

// NewPlayerCache creates an empty player cache.
func NewPlayerCache() *PlayerCache {
	return &PlayerCache{
		entries:     make(map[string]*player.Player),
		subscribers: make(map[string]map[int]ports.CacheSubscriber),
	}
}

// Get returns a copy of the cached player, or nil on a miss.
func (c *PlayerCache) Get(id string) *player.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[id]
	if !ok {
		return nil
	}
	return p.Clone()
}

// Set stores the player and notifies every subscriber for that id
// synchronously, each with its own copy.
func (c *PlayerCache) Set(p *player.Player) {
	c.mu.Lock()
	c.entries[p.ID] = p.Clone()
	subs := make([]ports.CacheSubscriber, 0, len(c.subscribers[p.ID]))
	for _, fn := range c.subscribers[p.ID] {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(p.Clone())
	}
}

// Invalidate drops the cached entry for id. Subscribers are not
// notified; the next read falls through to the store.
func (c *PlayerCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Subscribe registers a callback for writes to the given id. The
// returned func unregisters it.
func (c *PlayerCache) Subscribe(id string, fn ports.CacheSubscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribers[id] == nil {
		c.subscribers[id] = make(map[int]ports.CacheSubscriber)
	}
	subID := c.nextSubID
	c.nextSubID++
	c.subscribers[id][subID] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers[id], subID)
		if len(c.subscribers[id]) == 0 {
			delete(c.subscribers, id)
		}
	}
}

// Reset clears all entries and subscribers, for test isolation and
// sign-out.
func (c *PlayerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*player.Player)
	c.subscribers = make(map[string]map[int]ports.CacheSubscriber)
}

var _ ports.RangeCache = (*PlayerCache)(nil)
