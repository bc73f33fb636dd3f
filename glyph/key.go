// Package glyph implements the content-addressed glyph cache: it maps
// (font, glyph, size) keys to atlas entries, owns insertion and LRU
// eviction, and delegates space management to the atlas packer.
package glyph

import (
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/textware/font"
)

// SubpixelBuckets is the number of horizontal subpixel phases a glyph can
// be rasterized at. Fractional pen positions are snapped to the nearest
// bucket.
const SubpixelBuckets = 4

// Key uniquely identifies a cached glyph bitmap. Two lookups producing the
// same Key share one atlas entry.
type Key struct {
	// Font is the registry handle of the source font.
	Font font.Handle

	// GID is the glyph index as assigned by the shaper.
	GID uint16

	// SizeQ is the pixel size quantized to quarter pixels. Quantization
	// bounds cache cardinality under continuous zoom.
	SizeQ uint16

	// Subpixel is the horizontal subpixel bucket in [0, SubpixelBuckets).
	Subpixel uint8
}

// MakeKey builds a Key, quantizing size to the nearest quarter pixel and
// wrapping the subpixel bucket into range.
func MakeKey(h font.Handle, gid uint16, size float64, subpixel uint8) Key {
	q := math.Round(size * 4)
	if q < 0 {
		q = 0
	}
	if q > math.MaxUint16 {
		q = math.MaxUint16
	}
	return Key{
		Font:     h,
		GID:      gid,
		SizeQ:    uint16(q),
		Subpixel: subpixel % SubpixelBuckets,
	}
}

// Size returns the quantized pixel size the key encodes.
func (k Key) Size() float64 {
	return float64(k.SizeQ) / 4
}

// SubpixelOffset returns the key's horizontal phase as a 26.6 fixed-point
// fraction of a pixel, for the rasterizer.
func (k Key) SubpixelOffset() fixed.Int26_6 {
	return fixed.Int26_6(int32(k.Subpixel) * (64 / SubpixelBuckets))
}

// String returns a compact representation for logs and diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("Key(%v gid=%d size=%.2f sub=%d)", k.Font, k.GID, k.Size(), k.Subpixel)
}

// SubpixelBucket snaps a fractional pen X position in [0, 1) to its
// bucket.
func SubpixelBucket(frac float64) uint8 {
	b := int(math.Round(frac * SubpixelBuckets))
	return uint8(b % SubpixelBuckets)
}
