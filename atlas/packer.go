package atlas

import "fmt"

// Rect is a rectangular region within the atlas, in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsValid reports whether the rect has positive dimensions.
func (r Rect) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Intersects reports whether two rects overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a compact representation for logs and tests.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one horizontal packing row: everything placed on it shares the
// row's vertical span.
type shelf struct {
	y       int // top edge
	height  int // padded row height
	cursorX int // next free X
}

// Packer is a shelf (skyline) rectangle allocator over a fixed-width,
// vertically growable area. Freed rectangles go to a free list that is
// consulted when no shelf can take a request; there is no defragmentation.
//
// Packer is not safe for concurrent use; Atlas serializes access to it.
type Packer struct {
	width     int
	height    int
	maxHeight int
	padding   int

	// shelves ordered by y, never overlapping vertically.
	shelves []shelf

	// free holds reclaimed padded footprints for first-fit reuse.
	free []Rect

	allocCount int
	usedArea   int
}

// NewPacker creates a packer. The width stays fixed for the packer's
// lifetime; height may later grow up to maxHeight.
func NewPacker(width, height, maxHeight, padding int) *Packer {
	return &Packer{
		width:     width,
		height:    height,
		maxHeight: maxHeight,
		padding:   padding,
		shelves:   make([]shelf, 0, 16),
	}
}

// Allocate finds space for a width x height rectangle and returns its
// position. The rectangle is placed with the packer's padding reserved to
// its right and bottom, so neighboring allocations never touch.
//
// Placement order: existing shelf within the height tolerance band, then a
// new shelf at the atlas bottom, then the free list (first fit). Returns
// ErrAtlasFull when all three fail.
func (p *Packer) Allocate(width, height int) (Rect, error) {
	if width <= 0 || height <= 0 {
		return Rect{}, ErrInvalidRect
	}

	pw := width + p.padding
	ph := height + p.padding
	if pw > p.width {
		return Rect{}, ErrAtlasFull
	}

	// Existing shelves: accept a shelf up to 1.5x taller than needed so
	// rows are shared without wasting too much vertical space.
	for i := range p.shelves {
		s := &p.shelves[i]
		if ph > s.height || s.height > ph+ph/2 {
			continue
		}
		if s.cursorX+pw > p.width {
			continue
		}
		r := Rect{X: s.cursorX, Y: s.y, Width: width, Height: height}
		s.cursorX += pw
		p.commit(r)
		return r, nil
	}

	// New shelf at the current bottom.
	bottom := 0
	if n := len(p.shelves); n > 0 {
		last := &p.shelves[n-1]
		bottom = last.y + last.height
	}
	if bottom+ph <= p.height {
		p.shelves = append(p.shelves, shelf{y: bottom, height: ph, cursorX: pw})
		r := Rect{X: 0, Y: bottom, Width: width, Height: height}
		p.commit(r)
		return r, nil
	}

	// Free list, first fit on the padded footprint.
	for i, f := range p.free {
		if f.Width < pw || f.Height < ph {
			continue
		}
		r := Rect{X: f.X, Y: f.Y, Width: width, Height: height}
		p.free = append(p.free[:i], p.free[i+1:]...)
		p.splitFree(f, pw, ph)
		p.commit(r)
		return r, nil
	}

	return Rect{}, ErrAtlasFull
}

// commit records a successful allocation.
func (p *Packer) commit(r Rect) {
	p.allocCount++
	p.usedArea += r.Width * r.Height
}

// splitFree returns the unused parts of a consumed free rectangle to the
// free list using a guillotine split.
func (p *Packer) splitFree(f Rect, pw, ph int) {
	if right := f.Width - pw; right > p.padding {
		p.free = append(p.free, Rect{X: f.X + pw, Y: f.Y, Width: right, Height: ph})
	}
	if below := f.Height - ph; below > p.padding {
		p.free = append(p.free, Rect{X: f.X, Y: f.Y + ph, Width: f.Width, Height: below})
	}
}

// Free returns a previously allocated rectangle's space to the free list
// for best-effort reuse. The padded footprint reserved by Allocate is
// reclaimed along with it.
func (p *Packer) Free(r Rect) error {
	if !r.IsValid() {
		return ErrInvalidRect
	}
	if r.X < 0 || r.Y < 0 || r.X+r.Width > p.width || r.Y+r.Height > p.height {
		return ErrOutOfBounds
	}
	p.free = append(p.free, Rect{
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width + p.padding,
		Height: r.Height + p.padding,
	})
	p.usedArea -= r.Width * r.Height
	return nil
}

// Grow doubles the atlas height, capped at the configured maximum. New
// space is appended below existing shelves, so no allocation is
// invalidated. Returns the new height, or ErrHeightLimit when the maximum
// has been reached.
func (p *Packer) Grow() (int, error) {
	if p.height >= p.maxHeight {
		return p.height, ErrHeightLimit
	}
	p.height *= 2
	if p.height > p.maxHeight {
		p.height = p.maxHeight
	}
	return p.height, nil
}

// Width returns the fixed atlas width.
func (p *Packer) Width() int { return p.width }

// Height returns the current atlas height.
func (p *Packer) Height() int { return p.height }

// MaxHeight returns the growth limit.
func (p *Packer) MaxHeight() int { return p.maxHeight }

// Padding returns the inter-rectangle padding.
func (p *Packer) Padding() int { return p.padding }

// AllocCount returns the number of successful allocations.
func (p *Packer) AllocCount() int { return p.allocCount }

// FreeCount returns the number of rectangles on the free list.
func (p *Packer) FreeCount() int { return len(p.free) }

// UsedArea returns the total area of live allocations.
func (p *Packer) UsedArea() int { return p.usedArea }

// Utilization returns the used fraction of the current atlas area.
func (p *Packer) Utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}
