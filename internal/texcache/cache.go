package texcache

import (
	"sort"

	"mangad/internal/media"
)

// Entry describes one cached texture.
type Entry[H any] struct {
	Handle H
	Width  int
	Height int
	Kind   media.Kind
	// LastUsed is the frame tick of the most recent lookup or insert.
	LastUsed uint64
}

// Cache holds at most Capacity entries keyed by item index. Handles are
// opaque; release, when set, is called for every entry that leaves the
// cache through eviction, Remove, Clear or replacement.
type Cache[H any] struct {
	max     int
	tick    uint64
	entries map[int]*Entry[H]
	release func(index int, handle H)
}

// New returns a cache bounded to max entries (at least 1).
func New[H any](max int) *Cache[H] {
	return NewWithRelease[H](max, nil)
}

// NewWithRelease is New with a callback for handles leaving the cache.
func NewWithRelease[H any](max int, release func(index int, handle H)) *Cache[H] {
	if max < 1 {
		max = 1
	}
	return &Cache[H]{max: max, entries: make(map[int]*Entry[H], max), release: release}
}

// Tick advances the frame counter. Call once per UI frame.
func (c *Cache[H]) Tick() { c.tick++ }

// CurrentTick returns the frame counter.
func (c *Cache[H]) CurrentTick() uint64 { return c.tick }

// Get returns the handle for index and marks it used this frame.
func (c *Cache[H]) Get(index int) (H, bool) {
	e, ok := c.touch(index)
	if !ok {
		var zero H
		return zero, false
	}
	return e.Handle, true
}

// Info returns handle, size and kind for index and marks it used this frame.
func (c *Cache[H]) Info(index int) (Entry[H], bool) {
	e, ok := c.touch(index)
	if !ok {
		return Entry[H]{}, false
	}
	return *e, true
}

func (c *Cache[H]) touch(index int) (*Entry[H], bool) {
	e, ok := c.entries[index]
	if !ok {
		return nil, false
	}
	e.LastUsed = c.tick
	return e, true
}

// Contains reports membership without refreshing recency.
func (c *Cache[H]) Contains(index int) bool {
	_, ok := c.entries[index]
	return ok
}

// Insert stores a static image texture. See InsertWithType.
func (c *Cache[H]) Insert(index int, handle H, width, height int) []int {
	return c.InsertWithType(index, handle, width, height, media.StaticImage)
}

// InsertWithType stores a texture at the current tick and returns the
// indices evicted to make room, oldest first. Re-inserting an existing index
// replaces it in place and evicts nothing.
func (c *Cache[H]) InsertWithType(index int, handle H, width, height int, kind media.Kind) []int {
	if old, ok := c.entries[index]; ok {
		c.releaseHandle(index, old.Handle)
		*old = Entry[H]{Handle: handle, Width: width, Height: height, Kind: kind, LastUsed: c.tick}
		return nil
	}
	var evicted []int
	for len(c.entries) >= c.max {
		victim := c.oldest()
		c.evict(victim)
		evicted = append(evicted, victim)
	}
	c.entries[index] = &Entry[H]{Handle: handle, Width: width, Height: height, Kind: kind, LastUsed: c.tick}
	entriesGauge.Inc()
	return evicted
}

// oldest returns the index with the smallest LastUsed; ties go to the
// smaller index so eviction is deterministic.
func (c *Cache[H]) oldest() int {
	victim := -1
	var best uint64
	for idx, e := range c.entries {
		if victim == -1 || e.LastUsed < best || (e.LastUsed == best && idx < victim) {
			victim, best = idx, e.LastUsed
		}
	}
	return victim
}

func (c *Cache[H]) evict(index int) {
	e := c.entries[index]
	delete(c.entries, index)
	entriesGauge.Dec()
	evictionsTotal.Inc()
	c.releaseHandle(index, e.Handle)
}

// UpdateTexture swaps the handle and size of an existing entry, e.g. for a
// new video frame, and refreshes its tick. It reports false if index is not
// cached.
func (c *Cache[H]) UpdateTexture(index int, handle H, width, height int) bool {
	e, ok := c.entries[index]
	if !ok {
		return false
	}
	c.releaseHandle(index, e.Handle)
	e.Handle, e.Width, e.Height = handle, width, height
	e.LastUsed = c.tick
	return true
}

// Remove deletes index and reports whether it was present.
func (c *Cache[H]) Remove(index int) bool {
	e, ok := c.entries[index]
	if !ok {
		return false
	}
	delete(c.entries, index)
	c.releaseHandle(index, e.Handle)
	entriesGauge.Dec()
	return true
}

// Clear drops every entry. The tick keeps counting.
func (c *Cache[H]) Clear() {
	for idx, e := range c.entries {
		c.releaseHandle(idx, e.Handle)
	}
	entriesGauge.Sub(float64(len(c.entries)))
	c.entries = make(map[int]*Entry[H], c.max)
}

func (c *Cache[H]) releaseHandle(index int, h H) {
	if c.release != nil {
		c.release(index, h)
	}
}

func (c *Cache[H]) Len() int      { return len(c.entries) }
func (c *Cache[H]) Capacity() int { return c.max }

// CachedIndices returns all cached indices in ascending order.
func (c *Cache[H]) CachedIndices() []int {
	out := make([]int, 0, len(c.entries))
	for idx := range c.entries {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
