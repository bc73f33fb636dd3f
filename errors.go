package textware

import (
	"errors"
	"fmt"

	"github.com/gogpu/textware/glyph"
)

// Engine errors.
var (
	// ErrFrameMismatch is returned when GenerateMesh receives a frame
	// token that is not the engine's current one, i.e. Prepare was not
	// called for this frame or tokens were mixed up.
	ErrFrameMismatch = errors.New("textware: frame token is not current, call Prepare first")

	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("textware: engine is closed")

	// ErrUnknownText is returned for text objects that were removed or
	// belong to another engine.
	ErrUnknownText = errors.New("textware: unknown text object")
)

// Diagnostic records one skipped glyph during mesh generation. Per-glyph
// failures never abort a frame; they are collected and returned alongside
// the mesh.
type Diagnostic struct {
	// Key identifies the glyph that was skipped.
	Key glyph.Key

	// Cluster is the rune index in the text object's content.
	Cluster int

	// Err is the underlying failure, e.g. glyph.ErrAtlasExhausted or a
	// rasterizer error.
	Err error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("skipped %v at cluster %d: %v", d.Key, d.Cluster, d.Err)
}
