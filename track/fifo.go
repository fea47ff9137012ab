package track

// FIFOCache is a bounded map that evicts the oldest inserted entry once
// capacity is exceeded. It is a performance aid, not a source of truth:
// callers must tolerate misses and never depend on eviction timing.
type FIFOCache[K comparable, V any] struct {
	capacity int
	values   map[K]V
	order    []K
}

// NewFIFOCache creates a cache holding at most capacity entries.
// A capacity below 1 is treated as 1.
func NewFIFOCache[K comparable, V any](capacity int) *FIFOCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFOCache[K, V]{
		capacity: capacity,
		values:   make(map[K]V, capacity),
		order:    make([]K, 0, capacity),
	}
}

// Get returns the cached value for key, if present.
func (c *FIFOCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Put inserts a value, evicting the oldest entry when over capacity.
// Re-inserting an existing key updates the value without changing its
// insertion position.
func (c *FIFOCache[K, V]) Put(key K, value V) {
	if _, ok := c.values[key]; ok {
		c.values[key] = value
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.values, oldest)
	}
	c.values[key] = value
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *FIFOCache[K, V]) Len() int {
	return len(c.order)
}
