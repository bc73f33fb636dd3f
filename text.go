package textware

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/textware/font"
	"github.com/gogpu/textware/glyph"
	"github.com/gogpu/textware/shape"
)

// Text is a logical text object: content plus styling. The engine shapes
// it lazily, so setters are cheap; the shaping cost is paid once in the
// next Prepare after a change.
//
// Text methods are not safe for concurrent use with the engine's frame
// calls; mutate texts between frames.
type Text struct {
	id uint64

	content    string
	fontHandle font.Handle
	size       float64
	lineHeight float64
	wrapWidth  float64
	wrapMode   shape.WrapMode
	align      shape.Alignment
	direction  shape.Direction
	color      mgl32.Vec4
	origin     mgl32.Vec2

	// shaped is the cached layout; valid when dirty is false.
	shaped   *shape.Result
	shapeErr error
	dirty    bool

	// failures maps glyph keys that could not be resolved during the
	// last Prepare to their causes, for mesh-time diagnostics.
	failures map[glyph.Key]error
}

// ID returns the engine-assigned identifier.
func (t *Text) ID() uint64 { return t.id }

// Content returns the current string.
func (t *Text) Content() string { return t.content }

// SetContent replaces the text content.
func (t *Text) SetContent(s string) {
	if t.content == s {
		return
	}
	t.content = s
	t.dirty = true
}

// Font returns the font handle.
func (t *Text) Font() font.Handle { return t.fontHandle }

// SetFont switches the font.
func (t *Text) SetFont(h font.Handle) {
	if t.fontHandle == h {
		return
	}
	t.fontHandle = h
	t.dirty = true
}

// Size returns the pixel size.
func (t *Text) Size() float64 { return t.size }

// SetSize changes the pixel size.
func (t *Text) SetSize(size float64) {
	if t.size == size {
		return
	}
	t.size = size
	t.dirty = true
}

// SetLineHeight overrides the baseline-to-baseline distance. Zero restores
// the font's natural line height.
func (t *Text) SetLineHeight(h float64) {
	if t.lineHeight == h {
		return
	}
	t.lineHeight = h
	t.dirty = true
}

// SetWrap configures wrapping: width in pixels (zero disables) and mode.
func (t *Text) SetWrap(width float64, mode shape.WrapMode) {
	if t.wrapWidth == width && t.wrapMode == mode {
		return
	}
	t.wrapWidth = width
	t.wrapMode = mode
	t.dirty = true
}

// SetAlign sets horizontal alignment within the wrap width.
func (t *Text) SetAlign(a shape.Alignment) {
	if t.align == a {
		return
	}
	t.align = a
	t.dirty = true
}

// SetDirection sets the base paragraph direction.
func (t *Text) SetDirection(d shape.Direction) {
	if t.direction == d {
		return
	}
	t.direction = d
	t.dirty = true
}

// Color returns the text color.
func (t *Text) Color() mgl32.Vec4 { return t.color }

// SetColor sets the RGBA color written into every vertex. Does not require
// reshaping.
func (t *Text) SetColor(c mgl32.Vec4) {
	t.color = c
}

// Origin returns the layout origin in the host's coordinate space.
func (t *Text) Origin() mgl32.Vec2 { return t.origin }

// SetOrigin moves the text. Positions translate; no reshaping happens.
func (t *Text) SetOrigin(o mgl32.Vec2) {
	t.origin = o
}

// Bounds returns the laid-out width and height from the last Prepare.
// Zero until the text has been shaped.
func (t *Text) Bounds() (width, height float64) {
	if t.shaped == nil {
		return 0, 0
	}
	return t.shaped.Width, t.shaped.Height
}

// options assembles the shaping options from the text's styling.
func (t *Text) options() shape.Options {
	return shape.Options{
		WrapWidth:  t.wrapWidth,
		LineHeight: t.lineHeight,
		Wrap:       t.wrapMode,
		Align:      t.align,
		Direction:  t.direction,
	}
}
