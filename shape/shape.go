// Package shape turns strings into positioned glyphs ready for atlas lookup
// and mesh generation.
//
// A Shaper resolves Unicode text through bidi segmentation, script detection,
// and OpenType shaping, then lays the shaped glyphs out into lines with
// wrapping and alignment applied. Positions are in pixels: X grows rightward,
// Y grows downward, and each glyph's Y is the baseline of its line.
package shape

import (
	"errors"
	"unicode"

	"github.com/gogpu/textware/font"
)

// Sentinel errors for the shape package.
var (
	ErrNilFace     = errors.New("shape: nil font face")
	ErrInvalidSize = errors.New("shape: size must be positive")
)

// GlyphID identifies a glyph within a font.
type GlyphID uint16

// PositionedGlyph is a shaped glyph with its absolute layout position.
type PositionedGlyph struct {
	// GID is the glyph index in the font. Not a rune: ligatures and
	// substitutions mean there is no 1:1 mapping to characters.
	GID GlyphID

	// Cluster is the rune index in the source string this glyph maps to.
	// Multiple glyphs can share a cluster, and a glyph can cover several
	// runes.
	Cluster int

	// X, Y is the pen position for this glyph. Y is the baseline of the
	// glyph's line.
	X, Y float64

	// XAdvance is the horizontal pen advance contributed by this glyph.
	XAdvance float64
}

// Line is one laid-out line of text.
type Line struct {
	// Glyphs holds this line's glyphs with absolute positions.
	Glyphs []PositionedGlyph

	// Width is the advance width of the line before alignment.
	Width float64

	// Y is the baseline position of the line.
	Y float64
}

// Result is the output of shaping and layout.
type Result struct {
	// Glyphs is every glyph of every line, in logical order.
	Glyphs []PositionedGlyph

	// Lines holds the per-line breakdown of Glyphs.
	Lines []Line

	// Width is the widest line's advance width.
	Width float64

	// Height is the total layout height in pixels.
	Height float64
}

// WrapMode specifies how text is wrapped when it exceeds the wrap width.
type WrapMode uint8

const (
	// WrapWordChar breaks at word boundaries, falling back to character
	// boundaries for words wider than the wrap width. The zero value.
	WrapWordChar WrapMode = iota

	// WrapNone disables wrapping; lines may exceed the wrap width.
	WrapNone

	// WrapWord breaks at word boundaries only. Overlong words overflow.
	WrapWord

	// WrapChar breaks at any character boundary.
	WrapChar
)

// String returns the string representation of the wrap mode.
func (m WrapMode) String() string {
	switch m {
	case WrapNone:
		return "None"
	case WrapWord:
		return "Word"
	case WrapChar:
		return "Char"
	case WrapWordChar:
		return "WordChar"
	default:
		return "Unknown"
	}
}

// Alignment specifies horizontal alignment of lines within the wrap width.
type Alignment uint8

const (
	// AlignLeft aligns lines to the left edge. The zero value.
	AlignLeft Alignment = iota
	// AlignCenter centers lines within the wrap width.
	AlignCenter
	// AlignRight aligns lines to the right edge of the wrap width.
	AlignRight
)

// String returns the string representation of the alignment.
func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "Left"
	case AlignCenter:
		return "Center"
	case AlignRight:
		return "Right"
	default:
		return "Unknown"
	}
}

// Direction is the base paragraph direction.
type Direction uint8

const (
	// DirectionLTR lays paragraphs out left to right. The zero value.
	DirectionLTR Direction = iota
	// DirectionRTL lays paragraphs out right to left.
	DirectionRTL
)

// Options configures shaping and layout.
type Options struct {
	// WrapWidth is the maximum line width in pixels. Zero disables
	// wrapping regardless of Wrap.
	WrapWidth float64

	// LineHeight is the baseline-to-baseline distance in pixels. Zero
	// uses the font's natural line height at the requested size.
	LineHeight float64

	// Wrap selects the wrapping strategy.
	Wrap WrapMode

	// Align selects horizontal alignment. Center and right alignment
	// require a positive WrapWidth to align against.
	Align Alignment

	// Direction is the base paragraph direction, used when no strongly
	// directional text decides it.
	Direction Direction
}

// Shaper converts text into positioned glyphs.
//
// Implementations must be safe for concurrent use.
type Shaper interface {
	Shape(content string, face *font.Face, size float64, opts Options) (*Result, error)
}

// breakBefore reports whether a line break is allowed before rune index i.
// This is a condensed line breaking model: break after spaces, around CJK
// ideographs and kana, and after hyphens.
func breakBefore(runes []rune, i int, mode WrapMode) bool {
	if i <= 0 || i >= len(runes) {
		return false
	}
	switch mode {
	case WrapNone:
		return false
	case WrapChar:
		return true
	}

	prev := runes[i-1]
	cur := runes[i]
	if unicode.IsSpace(prev) {
		return true
	}
	if prev == '-' && cur != '-' {
		return true
	}
	if isCJK(cur) || isCJK(prev) {
		return true
	}
	return false
}

// isCJK reports whether the rune belongs to a script that breaks between
// any pair of characters.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x3040 && r <= 0x309F) || // Hiragana
		(r >= 0x30A0 && r <= 0x30FF) || // Katakana
		(r >= 0xAC00 && r <= 0xD7AF) // Hangul Syllables
}
