package glyph

import (
	"testing"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/textware/font"
)

// TestMakeKey_Quantization verifies quarter-pixel size quantization.
func TestMakeKey_Quantization(t *testing.T) {
	tests := []struct {
		size float64
		want float64
	}{
		{32, 32},
		{32.25, 32.25},
		{32.1, 32},
		{32.13, 32.25},
		{32.37, 32.25},
		{0, 0},
	}
	for _, tt := range tests {
		k := MakeKey(font.Handle{}, 1, tt.size, 0)
		if got := k.Size(); got != tt.want {
			t.Errorf("size %f quantized to %f, want %f", tt.size, got, tt.want)
		}
	}

	// Same quantized size means same key.
	a := MakeKey(font.Handle{}, 1, 32.26, 0)
	b := MakeKey(font.Handle{}, 1, 32.24, 0)
	if a != b {
		t.Errorf("sizes 32.26 and 32.24 produced different keys: %v vs %v", a, b)
	}
}

// TestKey_Subpixel verifies bucket wrapping and fixed-point offsets.
func TestKey_Subpixel(t *testing.T) {
	if k := MakeKey(font.Handle{}, 1, 16, 5); k.Subpixel != 1 {
		t.Errorf("bucket 5 wrapped to %d, want 1", k.Subpixel)
	}

	k := MakeKey(font.Handle{}, 1, 16, 2)
	if got, want := k.SubpixelOffset(), fixed.Int26_6(32); got != want {
		t.Errorf("bucket 2 offset %d, want %d", got, want)
	}

	tests := []struct {
		frac float64
		want uint8
	}{
		{0, 0},
		{0.2, 1},
		{0.5, 2},
		{0.7, 3},
		{0.9, 0}, // rounds to the next whole pixel
	}
	for _, tt := range tests {
		if got := SubpixelBucket(tt.frac); got != tt.want {
			t.Errorf("SubpixelBucket(%f) = %d, want %d", tt.frac, got, tt.want)
		}
	}
}
