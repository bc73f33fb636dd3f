// Package font provides font loading and handle management for textware.
//
// Fonts are owned by a Registry and addressed through lightweight Handle
// values. A Handle stays valid until the font is unloaded; using a stale
// handle afterwards is detected through a generation counter rather than
// causing silent aliasing.
package font

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gtfont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/sfnt"
)

// Handle identifies a loaded font within a Registry.
//
// The zero Handle is never issued and always resolves to ErrStaleHandle.
// Handles are never reused across different font data: unloading a slot and
// loading new data into it bumps the slot's generation, invalidating old
// handles.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero (never-issued) handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String returns a short debug representation.
func (h Handle) String() string {
	return fmt.Sprintf("font(%d.%d)", h.index, h.generation)
}

// record is a single slot in the registry arena.
type record struct {
	face       *Face
	generation uint32
	live       bool
}

// Registry owns loaded fonts and issues handles for them.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records []record
	source  Source
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSource sets the byte source used by Load. The default source reads
// from the local filesystem.
func WithSource(s Source) RegistryOption {
	return func(r *Registry) {
		if s != nil {
			r.source = s
		}
	}
}

// NewRegistry creates an empty font registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{source: FileSource{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads a font file through the registry's byte source and registers it.
// The font name is derived from the file name without its extension.
func (r *Registry) Load(path string) (Handle, error) {
	data, err := r.source.ReadFontBytes(path)
	if err != nil {
		return Handle{}, fmt.Errorf("font: read %q: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.LoadBytes(data, name)
}

// LoadBytes registers a font from raw TTF or OTF data. The data slice is
// copied internally and can be reused after this call.
//
// A new handle is issued even when the bytes match an already loaded font;
// the registry does not deduplicate.
func (r *Registry) LoadBytes(data []byte, name string) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, ErrEmptyFontData
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	gtFace, err := gtfont.ParseTTF(bytes.NewReader(dataCopy))
	if err != nil {
		return Handle{}, fmt.Errorf("font: parse %q: %w", name, err)
	}

	sfntFont, err := sfnt.Parse(dataCopy)
	if err != nil {
		return Handle{}, fmt.Errorf("font: parse %q: %w", name, err)
	}

	face := &Face{
		name: name,
		data: dataCopy,
		gt:   gtFace.Font,
		sfnt: sfntFont,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Reuse a vacated slot if one exists; the generation was already bumped
	// by Unload, so stale handles keep failing.
	for i := range r.records {
		if !r.records[i].live {
			r.records[i].face = face
			r.records[i].live = true
			return Handle{index: uint32(i), generation: r.records[i].generation}, nil
		}
	}

	r.records = append(r.records, record{face: face, generation: 1, live: true})
	return Handle{index: uint32(len(r.records) - 1), generation: 1}, nil
}

// Unload releases the font behind h. Existing handles to the slot become
// stale. Unloading an already-stale handle is a no-op.
func (r *Registry) Unload(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(h.index) >= len(r.records) {
		return
	}
	rec := &r.records[h.index]
	if !rec.live || rec.generation != h.generation {
		return
	}
	rec.face = nil
	rec.live = false
	rec.generation++
}

// Resolve returns the Face behind h, or ErrStaleHandle if the handle does
// not identify a live font.
func (r *Registry) Resolve(h Handle) (*Face, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h.IsZero() || int(h.index) >= len(r.records) {
		return nil, ErrStaleHandle
	}
	rec := &r.records[h.index]
	if !rec.live || rec.generation != h.generation {
		return nil, ErrStaleHandle
	}
	return rec.face, nil
}

// Len returns the number of live fonts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for i := range r.records {
		if r.records[i].live {
			n++
		}
	}
	return n
}
