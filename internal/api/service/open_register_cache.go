package service

import (
	"sync"

	"github.com/google/uuid"
)

// OpenRegisterCache remembers the id of the drawer believed to be currently
// open. It is advisory only: readers must revalidate against the store and
// clear the entry when validation fails. The store stays authoritative.
type OpenRegisterCache struct {
	mu sync.Mutex
	id uuid.UUID
	ok bool
}

func NewOpenRegisterCache() *OpenRegisterCache {
	return &OpenRegisterCache{}
}

// Set records the drawer id as the advisory open register.
func (c *OpenRegisterCache) Set(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.ok = true
}

// Get returns the advisory id and whether one is set.
func (c *OpenRegisterCache) Get() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.ok
}

// Clear removes the advisory entry.
func (c *OpenRegisterCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = uuid.Nil
	c.ok = false
}

// ClearIf removes the entry only when it matches the given id.
func (c *OpenRegisterCache) ClearIf(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ok && c.id == id {
		c.id = uuid.Nil
		c.ok = false
	}
}
