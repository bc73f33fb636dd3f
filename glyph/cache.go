package glyph

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/textware/atlas"
	"github.com/gogpu/textware/raster"
)

// Cache errors.
var (
	// ErrGlyphTooLarge means a single glyph exceeds what the atlas can
	// ever hold, even after growth. Fatal for that glyph only.
	ErrGlyphTooLarge = errors.New("glyph: glyph larger than atlas capacity")

	// ErrAtlasExhausted means the atlas hit its growth limit and
	// eviction could not free enough contiguous space. Callers degrade
	// by skipping the glyph.
	ErrAtlasExhausted = errors.New("glyph: atlas exhausted")
)

// Entry is a cached glyph: its atlas placement plus the metrics needed to
// position its quad. A whitespace glyph has a zero Rect and Width ==
// Height == 0; only its Advance matters.
type Entry struct {
	// Rect is the glyph's bitmap region in the atlas.
	Rect atlas.Rect

	// BearingX is the offset from the pen position to the bitmap's left
	// edge.
	BearingX float64

	// BearingY is the distance from the baseline up to the bitmap's top
	// edge.
	BearingY float64

	// Advance is the horizontal pen advance.
	Advance float64

	// Width, Height are the bitmap dimensions in pixels.
	Width  int
	Height int

	// lastUsed is the frame counter stamp from the most recent lookup.
	lastUsed uint64
}

// Empty reports whether the entry has no bitmap (whitespace).
func (e *Entry) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// Stats holds cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Growths   uint64
}

// Cache maps Keys to atlas entries. It owns all atlas mutation: packing on
// miss, LRU eviction on allocation failure, and growth when eviction is
// not enough. Eviction is lazy: nothing is evicted until an allocation
// fails, and entries touched in the current frame are never victims, so
// geometry already resolved this frame stays valid.
//
// Cache is safe for concurrent use, though the intended model is
// single-threaded frame stepping.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	atlas   *atlas.Atlas
	frame   uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	growths   atomic.Uint64
}

// NewCache creates a cache over the given atlas. The cache assumes
// exclusive ownership of the atlas's allocations.
func NewCache(a *atlas.Atlas) *Cache {
	return &Cache{
		entries: make(map[Key]*Entry, 256),
		atlas:   a,
	}
}

// BeginFrame advances the frame counter and returns it. Entries looked up
// after this call are protected from eviction until the next BeginFrame.
func (c *Cache) BeginFrame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame++
	return c.frame
}

// Frame returns the current frame counter.
func (c *Cache) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Atlas returns the cache's atlas.
func (c *Cache) Atlas() *atlas.Atlas {
	return c.atlas
}

// GetOrInsert returns the entry for key, rasterizing and packing it on
// miss. render is only called on miss; its bitmap is copied into the
// atlas and the staging region is marked dirty.
//
// On packing failure the cache evicts the least recently used entry not
// touched this frame and retries once, then grows the atlas until either
// the allocation fits or the height limit is reached. Returns
// ErrGlyphTooLarge or ErrAtlasExhausted when nothing helps; render errors
// are returned as-is.
func (c *Cache) GetOrInsert(key Key, render func() (*raster.Bitmap, error)) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.lastUsed = c.frame
		c.hits.Add(1)
		return e, nil
	}
	c.misses.Add(1)

	bm, err := render()
	if err != nil {
		return nil, err
	}

	e := &Entry{
		BearingX: bm.BearingX,
		BearingY: bm.BearingY,
		Advance:  bm.Advance,
		Width:    bm.Width,
		Height:   bm.Height,
		lastUsed: c.frame,
	}

	if !bm.IsEmpty() {
		rect, err := c.allocate(bm.Width, bm.Height)
		if err != nil {
			return nil, err
		}
		if err := c.atlas.CopyBitmap(rect, bm.Pixels); err != nil {
			// Allocation succeeded, so a copy failure is a
			// packer/staging inconsistency.
			return nil, fmt.Errorf("glyph: copy bitmap to %v: %w", rect, err)
		}
		e.Rect = rect
	}

	c.entries[key] = e
	return e, nil
}

// allocate finds atlas space, escalating through eviction and growth.
// Caller holds c.mu.
func (c *Cache) allocate(width, height int) (atlas.Rect, error) {
	rect, err := c.atlas.Allocate(width, height)
	if err == nil {
		return rect, nil
	}

	// Evict the coldest entry and retry once.
	if c.evictOne() {
		rect, err = c.atlas.Allocate(width, height)
		if err == nil {
			return rect, nil
		}
	}

	// Grow until it fits or the limit is reached.
	for {
		if _, gerr := c.atlas.Grow(); gerr != nil {
			break
		}
		c.growths.Add(1)
		rect, err = c.atlas.Allocate(width, height)
		if err == nil {
			return rect, nil
		}
	}

	pad := c.atlas.Padding()
	if width+pad > c.atlas.Width() || height+pad > c.atlas.MaxHeight() {
		return atlas.Rect{}, ErrGlyphTooLarge
	}
	return atlas.Rect{}, ErrAtlasExhausted
}

// evictOne removes the entry with the smallest last-used frame, returning
// its atlas space to the free list. Entries stamped in the current frame
// are never evicted: their rects may already be referenced by this frame's
// geometry. Reports whether an entry was evicted.
func (c *Cache) evictOne() bool {
	var victimKey Key
	var victim *Entry

	for k, e := range c.entries {
		if e.lastUsed >= c.frame {
			continue
		}
		if e.Empty() {
			// Freeing a whitespace entry reclaims no space.
			continue
		}
		if victim == nil || e.lastUsed < victim.lastUsed {
			victimKey = k
			victim = e
		}
	}
	if victim == nil {
		return false
	}

	if err := c.atlas.Free(victim.Rect); err != nil {
		// A live entry's rect must free cleanly; refuse to drop the
		// entry if it did not.
		return false
	}
	delete(c.entries, victimKey)
	c.evictions.Add(1)
	return true
}

// Lookup returns the cached entry for key without inserting. A hit stamps
// the entry's last-used frame. Lookup never mutates the atlas, which makes
// it safe to call while emitted geometry depends on the atlas dimensions
// staying fixed.
func (c *Cache) Lookup(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = c.frame
	return e, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Growths:   c.growths.Load(),
	}
}

// HitRate returns the hit fraction of all lookups, 0 when none happened.
func (c *Cache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
