package storage

import (
	"sync"

	"crm-segment-engine/internal/segment"
)

// CustomerCache keeps each shop's customer collection in memory so segment
// recomputes do not hit the database per request. The listener refreshes it
// on data-change notifications.
type CustomerCache struct {
	mu        sync.RWMutex
	customers map[string][]segment.Customer
}

func NewCustomerCache() *CustomerCache {
	return &CustomerCache{customers: map[string][]segment.Customer{}}
}

func (c *CustomerCache) Get(shop string) ([]segment.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cs, ok := c.customers[shop]
	if !ok {
		return nil, false
	}
	return append([]segment.Customer(nil), cs...), true
}

func (c *CustomerCache) Update(shop string, cs []segment.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customers[shop] = append([]segment.Customer(nil), cs...)
}

func (c *CustomerCache) Invalidate(shop string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.customers, shop)
}

// Shops lists cached shop names.
func (c *CustomerCache) Shops() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.customers))
	for name := range c.customers {
		out = append(out, name)
	}
	return out
}
