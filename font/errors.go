package font

import "errors"

// Sentinel errors for the font package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("font: empty font data")

	// ErrStaleHandle is returned when a handle refers to an unloaded font
	// or was never issued by the registry.
	ErrStaleHandle = errors.New("font: stale font handle")
)

// NotFoundError is returned by sources that cannot locate a font path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "font: not found: " + e.Path
}
