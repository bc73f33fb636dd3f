// Package raster defines the glyph rasterization boundary of textware and
// provides a default implementation on top of golang.org/x/image.
//
// A Rasterizer turns (font, glyph id, pixel size) into a single-channel
// coverage bitmap plus placement metrics. Results are deterministic for a
// given input, which is what lets the glyph cache treat them as
// content-addressed.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Sentinel errors for the raster package.
var (
	// ErrMissingGlyph is returned when the font has no outline for the
	// requested glyph id.
	ErrMissingGlyph = errors.New("raster: glyph not found in font")

	// ErrInvalidSize is returned for non-positive pixel sizes.
	ErrInvalidSize = errors.New("raster: size must be positive")
)

// Bitmap is a rasterized glyph: an 8-bit coverage image plus the metrics
// needed to place it relative to the pen position.
//
// Pixels holds Width*Height bytes, row-major, one byte per pixel, where 255
// means fully covered. A whitespace glyph has Width == Height == 0 and a nil
// Pixels slice; its Advance is still meaningful.
type Bitmap struct {
	Pixels []byte
	Width  int
	Height int

	// BearingX is the horizontal offset from the pen position to the
	// bitmap's left edge.
	BearingX float64

	// BearingY is the distance from the baseline up to the bitmap's top
	// edge (positive above the baseline).
	BearingY float64

	// Advance is the horizontal pen advance for this glyph.
	Advance float64
}

// IsEmpty reports whether the bitmap has no coverage area.
func (b *Bitmap) IsEmpty() bool {
	return b.Width == 0 || b.Height == 0
}

// Rasterizer produces coverage bitmaps for glyphs.
//
// Implementations must be deterministic: the same (font, glyph, size,
// fractional offset) always yields the same bitmap. Implementations need not
// be safe for concurrent use; textware serializes calls within a frame.
type Rasterizer interface {
	// Rasterize renders the glyph gid of f at the given pixel size. fracX
	// is a fractional horizontal offset in 26.6 fixed point, in [0, 1px),
	// used for subpixel positioning buckets; pass 0 for whole-pixel
	// snapping.
	Rasterize(f *sfnt.Font, gid sfnt.GlyphIndex, size float64, fracX fixed.Int26_6) (*Bitmap, error)
}

// Coverage is the default Rasterizer. It loads glyph outlines with
// x/image/font/sfnt and fills them with x/image/vector.
//
// Coverage is not safe for concurrent use; it reuses an internal sfnt
// buffer and vector rasterizer across calls.
type Coverage struct {
	buf sfnt.Buffer
	ras vector.Rasterizer
}

// NewCoverage creates a Coverage rasterizer.
func NewCoverage() *Coverage {
	return &Coverage{}
}

// Rasterize implements Rasterizer.
func (c *Coverage) Rasterize(f *sfnt.Font, gid sfnt.GlyphIndex, size float64, fracX fixed.Int26_6) (*Bitmap, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	ppem := fixed.Int26_6(size * 64)

	segments, err := f.LoadGlyph(&c.buf, gid, ppem, nil)
	if err != nil {
		if errors.Is(err, sfnt.ErrNotFound) {
			return nil, ErrMissingGlyph
		}
		return nil, fmt.Errorf("raster: load glyph %d: %w", gid, err)
	}

	advance, err := f.GlyphAdvance(&c.buf, gid, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("raster: glyph advance %d: %w", gid, err)
	}

	if !hasArea(segments) {
		// Whitespace and other blank glyphs carry no bitmap.
		return &Bitmap{Advance: fixedToFloat(advance)}, nil
	}

	// Glyph coordinates are y-down with the origin on the baseline, so
	// Min.Y is negative above the baseline.
	bounds := segments.Bounds()
	minX := (bounds.Min.X + fracX).Floor()
	minY := bounds.Min.Y.Floor()
	maxX := (bounds.Max.X + fracX).Ceil()
	maxY := bounds.Max.Y.Ceil()

	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return &Bitmap{Advance: fixedToFloat(advance)}, nil
	}

	c.ras.Reset(w, h)
	c.ras.DrawOp = draw.Src

	// Translate the outline into the positive quadrant, keeping the
	// requested subpixel phase.
	dx := fracX - fixed.I(minX)
	dy := -fixed.I(minY)
	walkSegments(&c.ras, segments, dx, dy)

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	c.ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	pixels := make([]byte, len(mask.Pix))
	copy(pixels, mask.Pix)

	return &Bitmap{
		Pixels:   pixels,
		Width:    w,
		Height:   h,
		BearingX: float64(minX),
		BearingY: float64(-minY),
		Advance:  fixedToFloat(advance),
	}, nil
}

// walkSegments replays an sfnt outline into the vector rasterizer,
// translated by (dx, dy).
func walkSegments(ras *vector.Rasterizer, segments sfnt.Segments, dx, dy fixed.Int26_6) {
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X+dx) / 64, float32(p.Y+dy) / 64
	}

	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			x, y := pt(seg.Args[0])
			ras.MoveTo(x, y)
		case sfnt.SegmentOpLineTo:
			x, y := pt(seg.Args[0])
			ras.LineTo(x, y)
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(seg.Args[0])
			x, y := pt(seg.Args[1])
			ras.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := pt(seg.Args[0])
			c2x, c2y := pt(seg.Args[1])
			x, y := pt(seg.Args[2])
			ras.CubeTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
}

// hasArea reports whether the outline contains anything beyond bare moves.
func hasArea(segments sfnt.Segments) bool {
	for _, seg := range segments {
		if seg.Op != sfnt.SegmentOpMoveTo {
			return true
		}
	}
	return false
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
