// Package atlas implements a single-channel, vertically growable glyph
// atlas: a shelf packer for region allocation, a CPU staging buffer for
// bitmap bytes, and a dirty tracker that turns writes into minimal upload
// spans for the GPU.
package atlas

import (
	"sync"
)

// Default atlas settings.
const (
	// DefaultWidth is the default (and thereafter fixed) atlas width.
	DefaultWidth = 1024

	// DefaultInitialHeight is the starting atlas height.
	DefaultInitialHeight = 1024

	// DefaultMaxHeight caps vertical growth. 8192 is within every
	// current backend's guaranteed 2D texture limit.
	DefaultMaxHeight = 8192

	// DefaultPadding is the minimum pixel gap between packed
	// rectangles, preventing bilinear sampling bleed between glyphs.
	DefaultPadding = 1
)

// Config holds atlas creation parameters.
type Config struct {
	// Width is the fixed atlas width in pixels. Defaults to
	// DefaultWidth.
	Width int

	// InitialHeight is the starting height in pixels. Defaults to
	// DefaultInitialHeight, clamped to MaxHeight.
	InitialHeight int

	// MaxHeight caps growth. Defaults to DefaultMaxHeight. Hosts should
	// set this to the backend's reported 2D texture size limit.
	MaxHeight int

	// Padding is the gap between packed rectangles. Defaults to
	// DefaultPadding; values below 1 are rejected.
	Padding int

	// Label is an optional debug label carried into the texture
	// description.
	Label string
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		Width:         DefaultWidth,
		InitialHeight: DefaultInitialHeight,
		MaxHeight:     DefaultMaxHeight,
		Padding:       DefaultPadding,
	}
}

// withDefaults fills zero values in.
func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.InitialHeight == 0 {
		c.InitialHeight = DefaultInitialHeight
	}
	if c.MaxHeight == 0 {
		c.MaxHeight = DefaultMaxHeight
	}
	if c.Padding == 0 {
		c.Padding = DefaultPadding
	}
	if c.InitialHeight > c.MaxHeight {
		c.InitialHeight = c.MaxHeight
	}
	return c
}

// Validate checks the configuration after defaulting.
func (c Config) Validate() error {
	if c.Width <= 0 {
		return &ConfigError{Field: "Width", Value: c.Width, Reason: "must be positive"}
	}
	if c.InitialHeight <= 0 {
		return &ConfigError{Field: "InitialHeight", Value: c.InitialHeight, Reason: "must be positive"}
	}
	if c.MaxHeight < c.InitialHeight {
		return &ConfigError{Field: "MaxHeight", Value: c.MaxHeight, Reason: "below initial height"}
	}
	if c.Padding < 1 {
		return &ConfigError{Field: "Padding", Value: c.Padding, Reason: "must be at least 1 to prevent sampling bleed"}
	}
	return nil
}

// TextureDesc describes the GPU texture backing the atlas. The format is
// single-channel 8-bit coverage, sampled in the red channel.
type TextureDesc struct {
	Width         int
	Height        int
	BytesPerPixel int
	Label         string
}

// Atlas combines the shelf packer with a CPU staging buffer and dirty
// tracking. Glyph bitmaps are written into the staging buffer; DrainDirty
// reports what must be uploaded to keep the GPU texture in sync.
//
// Atlas is safe for concurrent use, though the intended model is
// single-threaded frame stepping.
type Atlas struct {
	mu      sync.Mutex
	packer  *Packer
	staging []byte
	dirty   dirtyTracker
	label   string
}

// New creates an atlas from the configuration. Zero config fields take
// defaults; structurally invalid values fail with a ConfigError.
func New(cfg Config) (*Atlas, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Atlas{
		packer:  NewPacker(cfg.Width, cfg.InitialHeight, cfg.MaxHeight, cfg.Padding),
		staging: make([]byte, cfg.Width*cfg.InitialHeight),
		label:   cfg.Label,
	}, nil
}

// Allocate reserves a width x height region. See Packer.Allocate for the
// placement strategy. Returns ErrAtlasFull when no space is left; callers
// recover by freeing entries or growing.
func (a *Atlas) Allocate(width, height int) (Rect, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Allocate(width, height)
}

// Free returns a region to the packer's free list. The staging bytes are
// left as-is; they are unreferenced until the space is reused, at which
// point the new write marks the region dirty.
func (a *Atlas) Free(r Rect) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Free(r)
}

// Grow doubles the atlas height up to the configured maximum and extends
// the staging buffer. Existing allocations and their contents are
// preserved; new space is appended below. Returns the new height.
func (a *Atlas) Grow() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	newHeight, err := a.packer.Grow()
	if err != nil {
		return newHeight, err
	}

	grown := make([]byte, a.packer.Width()*newHeight)
	copy(grown, a.staging)
	a.staging = grown
	return newHeight, nil
}

// CopyBitmap writes bitmap bytes into the region and marks it dirty.
// len(pixels) must equal r.Width*r.Height.
func (a *Atlas) CopyBitmap(r Rect, pixels []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !r.IsValid() {
		return ErrInvalidRect
	}
	w := a.packer.Width()
	if r.X < 0 || r.Y < 0 || r.X+r.Width > w || r.Y+r.Height > a.packer.Height() {
		return ErrOutOfBounds
	}
	if len(pixels) != r.Width*r.Height {
		return ErrSizeMismatch
	}

	for row := 0; row < r.Height; row++ {
		dst := (r.Y+row)*w + r.X
		src := row * r.Width
		copy(a.staging[dst:dst+r.Width], pixels[src:src+r.Width])
	}

	a.dirty.mark(r)
	return nil
}

// MarkDirty records a region as needing upload without writing to it.
func (a *Atlas) MarkDirty(r Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty.mark(r)
}

// DrainDirty returns the upload spans accumulated since the last drain and
// clears the dirty set. Spans on the same shelf row are coalesced.
func (a *Atlas) DrainDirty() []UploadSpan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty.drain(a.packer.Width(), a.packer.Padding())
}

// HasDirty reports whether any region awaits upload.
func (a *Atlas) HasDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.dirty.empty()
}

// Pixels returns the staging buffer. The slice is reallocated by Grow;
// callers must not retain it across frames.
func (a *Atlas) Pixels() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.staging
}

// TextureDesc describes the texture a host must create to mirror the
// atlas. The description changes only when the atlas grows.
func (a *Atlas) TextureDesc() TextureDesc {
	a.mu.Lock()
	defer a.mu.Unlock()
	return TextureDesc{
		Width:         a.packer.Width(),
		Height:        a.packer.Height(),
		BytesPerPixel: 1,
		Label:         a.label,
	}
}

// Width returns the fixed atlas width.
func (a *Atlas) Width() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Width()
}

// Height returns the current atlas height.
func (a *Atlas) Height() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Height()
}

// MaxHeight returns the growth limit.
func (a *Atlas) MaxHeight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.MaxHeight()
}

// Padding returns the inter-glyph padding.
func (a *Atlas) Padding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Padding()
}

// Utilization returns the used fraction of the atlas area.
func (a *Atlas) Utilization() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packer.Utilization()
}
