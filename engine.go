package textware

import (
	"errors"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/sfnt"

	"github.com/gogpu/textware/atlas"
	"github.com/gogpu/textware/font"
	"github.com/gogpu/textware/glyph"
	"github.com/gogpu/textware/raster"
	"github.com/gogpu/textware/shape"
)

// errGlyphNotResolved marks glyphs looked up at mesh time that were never
// resolved by Prepare, usually because the text was mutated in between.
var errGlyphNotResolved = errors.New("textware: glyph not resolved in this frame")

// Config holds engine creation parameters. Zero-value fields take
// defaults.
type Config struct {
	// Atlas configures the glyph atlas. See atlas.Config for defaults.
	Atlas atlas.Config

	// Shaper overrides the text shaper. Defaults to shape.NewHarfBuzz.
	Shaper shape.Shaper

	// Rasterizer overrides the glyph rasterizer. Defaults to
	// raster.NewCoverage.
	Rasterizer raster.Rasterizer

	// FontSource overrides where Engine.LoadFont reads font files from.
	// Defaults to the OS filesystem.
	FontSource font.Source
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Atlas: atlas.DefaultConfig()}
}

// Frame is the token returned by Prepare and required by GenerateMesh. It
// makes the prepare-then-generate ordering explicit: a Frame from an
// earlier Prepare is rejected, so stale or out-of-order calls fail fast
// instead of sampling a half-updated atlas.
type Frame struct {
	seq uint64
}

// Seq returns the frame's sequence number.
func (f *Frame) Seq() uint64 { return f.seq }

// Engine is the glyph atlas cache and mesh generation engine. It owns the
// font registry, the shaper, the rasterizer, the glyph cache, and all text
// objects, and steps them through the per-frame protocol:
//
//	frame, spans, err := e.Prepare()           // once per frame
//	upload spans to the GPU texture            // host
//	mesh, diags, err := e.GenerateMesh(frame, t) // per text object
//	upload mesh, draw                          // host
//
// All operations execute on the caller's thread; the engine serializes
// access internally but is designed for single-threaded frame stepping.
type Engine struct {
	mu         sync.Mutex
	fonts      *font.Registry
	shaper     shape.Shaper
	rasterizer raster.Rasterizer
	atlas      *atlas.Atlas
	cache      *glyph.Cache
	texts      map[uint64]*Text
	nextID     uint64
	current    *Frame
	closed     bool
}

// New creates an engine. Configuration errors (for example a zero-width
// atlas) are structural and fail here; nothing later in the frame loop
// returns them.
func New(cfg Config) (*Engine, error) {
	a, err := atlas.New(cfg.Atlas)
	if err != nil {
		return nil, err
	}

	shaper := cfg.Shaper
	if shaper == nil {
		shaper = shape.NewHarfBuzz()
	}
	rasterizer := cfg.Rasterizer
	if rasterizer == nil {
		rasterizer = raster.NewCoverage()
	}

	var regOpts []font.RegistryOption
	if cfg.FontSource != nil {
		regOpts = append(regOpts, font.WithSource(cfg.FontSource))
	}

	return &Engine{
		fonts:      font.NewRegistry(regOpts...),
		shaper:     shaper,
		rasterizer: rasterizer,
		atlas:      a,
		cache:      glyph.NewCache(a),
		texts:      make(map[uint64]*Text),
	}, nil
}

// Close invalidates the engine. Texts and cached glyphs are released; the
// host remains responsible for GPU resources it created from the atlas.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.texts = nil
	e.current = nil
}

// Fonts returns the engine's font registry.
func (e *Engine) Fonts() *font.Registry { return e.fonts }

// LoadFont loads a font file through the configured source.
func (e *Engine) LoadFont(path string) (font.Handle, error) {
	h, err := e.fonts.Load(path)
	if err != nil {
		return font.Handle{}, err
	}
	slogger().Info("font loaded", "path", path, "handle", h)
	return h, nil
}

// LoadFontBytes registers an in-memory font under the given name.
func (e *Engine) LoadFontBytes(data []byte, name string) (font.Handle, error) {
	return e.fonts.LoadBytes(data, name)
}

// Atlas returns the engine's glyph atlas, for hosts that manage the GPU
// texture themselves.
func (e *Engine) Atlas() *atlas.Atlas { return e.atlas }

// Cache returns the glyph cache, mainly for stats.
func (e *Engine) Cache() *glyph.Cache { return e.cache }

// NewText creates and registers a text object. The text is shaped during
// the next Prepare.
func (e *Engine) NewText(content string, h font.Handle, size float64) (*Text, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	e.nextID++
	t := &Text{
		id:         e.nextID,
		content:    content,
		fontHandle: h,
		size:       size,
		color:      mgl32.Vec4{1, 1, 1, 1},
		dirty:      true,
	}
	e.texts[t.id] = t
	return t, nil
}

// RemoveText unregisters a text object. Its cached glyphs stay in the
// atlas until evicted by normal pressure.
func (e *Engine) RemoveText(t *Text) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	delete(e.texts, t.id)
}

// Prepare starts a frame: it reshapes mutated texts, resolves every glyph
// of every text into the atlas (rasterizing, packing, and evicting as
// needed), and drains the dirty regions the host must upload before
// drawing. The returned Frame authorizes GenerateMesh calls until the next
// Prepare.
func (e *Engine) Prepare() (*Frame, []atlas.UploadSpan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil, ErrClosed
	}

	seq := e.cache.BeginFrame()

	for _, t := range e.texts {
		if t.dirty {
			e.reshape(t)
		}
		e.resolve(t)
	}

	spans := e.atlas.DrainDirty()
	e.current = &Frame{seq: seq}

	slogger().Debug("frame prepared",
		"frame", seq,
		"texts", len(e.texts),
		"uploadSpans", len(spans),
		"atlasHeight", e.atlas.Height())
	return e.current, spans, nil
}

// reshape re-runs shaping and layout for a mutated text. Shaping failures
// are held on the text and surface from GenerateMesh, so one broken text
// cannot abort the frame.
func (e *Engine) reshape(t *Text) {
	t.dirty = false
	t.shaped = nil

	face, err := e.fonts.Resolve(t.fontHandle)
	if err != nil {
		t.shapeErr = err
		return
	}
	t.shaped, t.shapeErr = e.shaper.Shape(t.content, face, t.size, t.options())
}

// resolve inserts every glyph of the text into the atlas cache. Per-glyph
// failures are collected on the text; successfully resolved entries are
// stamped with the current frame, which protects them from eviction
// triggered by later glyphs this frame.
func (e *Engine) resolve(t *Text) {
	t.failures = nil
	if t.shaped == nil || t.shapeErr != nil {
		return
	}
	face, err := e.fonts.Resolve(t.fontHandle)
	if err != nil {
		t.shapeErr = err
		return
	}
	sf := face.SFNT()

	for _, g := range t.shaped.Glyphs {
		key := e.keyFor(t, g)
		_, err := e.cache.GetOrInsert(key, func() (*raster.Bitmap, error) {
			return e.rasterizer.Rasterize(sf, sfnt.GlyphIndex(key.GID), key.Size(), key.SubpixelOffset())
		})
		if err != nil {
			if t.failures == nil {
				t.failures = make(map[glyph.Key]error)
			}
			t.failures[key] = err
			slogger().Debug("glyph resolution failed", "key", key.String(), "err", err)
		}
	}
}

// keyFor derives the cache key for a positioned glyph: the pen X is
// snapped to whole pixels and its fraction picks the subpixel bucket the
// glyph was rasterized at.
func (e *Engine) keyFor(t *Text, g shape.PositionedGlyph) glyph.Key {
	penX := float64(t.origin.X()) + g.X
	frac := penX - math.Floor(penX)
	return glyph.MakeKey(t.fontHandle, uint16(g.GID), t.size, glyph.SubpixelBucket(frac))
}

// GenerateMesh emits the vertex/index buffers for one text object. frame
// must be the token from this frame's Prepare; anything else returns
// ErrFrameMismatch.
//
// Generation is read-only on the atlas: UVs are computed against the
// dimensions the atlas stabilized at during Prepare. Per-glyph failures
// (exhausted atlas, rasterizer errors) become skipped quads plus a
// Diagnostic; the glyph's pen advance is preserved so surrounding text
// does not shift.
func (e *Engine) GenerateMesh(frame *Frame, t *Text) (*Mesh, []Diagnostic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil, ErrClosed
	}
	if frame == nil || frame != e.current {
		return nil, nil, ErrFrameMismatch
	}
	if t == nil || e.texts[t.id] != t {
		return nil, nil, ErrUnknownText
	}
	if t.shapeErr != nil {
		return nil, nil, t.shapeErr
	}

	mesh := &Mesh{}
	if t.shaped == nil || len(t.shaped.Glyphs) == 0 {
		return mesh, nil, nil
	}
	mesh.Vertices = make([]Vertex, 0, len(t.shaped.Glyphs)*4)
	mesh.Indices = make([]uint16, 0, len(t.shaped.Glyphs)*6)

	desc := e.atlas.TextureDesc()
	atlasW := float32(desc.Width)
	atlasH := float32(desc.Height)

	var diags []Diagnostic
	originX := float64(t.origin.X())
	originY := float64(t.origin.Y())

	for _, g := range t.shaped.Glyphs {
		key := e.keyFor(t, g)

		entry, ok := e.cache.Lookup(key)
		if !ok {
			cause, diagnosed := t.failures[key]
			if !diagnosed {
				cause = errGlyphNotResolved
			}
			diags = append(diags, Diagnostic{Key: key, Cluster: g.Cluster, Err: cause})
			continue
		}
		if entry.Empty() {
			// Whitespace: advances the pen, draws nothing.
			continue
		}

		// The subpixel fraction is baked into the bitmap, so the quad
		// snaps to the whole-pixel pen position.
		x0 := float32(math.Floor(originX+g.X) + entry.BearingX)
		y0 := float32(originY + g.Y - entry.BearingY)
		x1 := x0 + float32(entry.Width)
		y1 := y0 + float32(entry.Height)

		r := entry.Rect
		u0 := float32(r.X) / atlasW
		v0 := float32(r.Y) / atlasH
		u1 := float32(r.X+r.Width) / atlasW
		v1 := float32(r.Y+r.Height) / atlasH

		mesh.appendQuad(x0, y0, x1, y1, u0, v0, u1, v1, t.color)
	}

	return mesh, diags, nil
}
