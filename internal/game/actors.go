package game

import (
	"sync"

	"DialogueRuntime/internal/dialogue"
)

// ActorCache keeps the most recently used actors resolved. Misses go to the
// lookup function, which normally searches the dialogue library.
type ActorCache struct {
	mu     sync.Mutex
	size   int
	order  []string // most recent first
	actors map[string]*dialogue.Actor
	lookup func(id string) *dialogue.Actor
}

func NewActorCache(size int, lookup func(id string) *dialogue.Actor) *ActorCache {
	if size <= 0 {
		size = ActorCacheSize
	}
	return &ActorCache{
		size:   size,
		actors: make(map[string]*dialogue.Actor, size),
		lookup: lookup,
	}
}

// Get resolves an actor id, or returns nil when nobody defines it.
func (c *ActorCache) Get(id string) *dialogue.Actor {
	if id == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.actors[id]; ok {
		c.touch(id)
		return a
	}
	if c.lookup == nil {
		return nil
	}
	a := c.lookup(id)
	if a == nil {
		return nil
	}
	c.actors[id] = a
	c.order = append([]string{id}, c.order...)
	if len(c.order) > c.size {
		evicted := c.order[len(c.order)-1]
		c.order = c.order[:len(c.order)-1]
		delete(c.actors, evicted)
	}
	return a
}

func (c *ActorCache) touch(id string) {
	for i, k := range c.order {
		if k == id {
			copy(c.order[1:i+1], c.order[:i])
			c.order[0] = id
			return
		}
	}
}

// Len returns how many actors are cached.
func (c *ActorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Purge empties the cache, for example after the library reloads.
func (c *ActorCache) Purge() {
	c.mu.Lock()
	c.order = nil
	c.actors = make(map[string]*dialogue.Actor, c.size)
	c.mu.Unlock()
}
