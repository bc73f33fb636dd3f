package atlas

import (
	"errors"
	"fmt"
)

// Atlas errors.
var (
	// ErrAtlasFull is returned when no shelf, new shelf, or free-list
	// rectangle can hold the requested rectangle. Recoverable: callers
	// typically evict or grow and retry.
	ErrAtlasFull = errors.New("atlas: no space for requested rectangle")

	// ErrHeightLimit is returned by Grow when the atlas has reached its
	// configured maximum height.
	ErrHeightLimit = errors.New("atlas: height limit reached")

	// ErrInvalidRect is returned for rectangles with non-positive
	// dimensions.
	ErrInvalidRect = errors.New("atlas: rectangle dimensions must be positive")

	// ErrOutOfBounds is returned when a rectangle lies outside the
	// atlas.
	ErrOutOfBounds = errors.New("atlas: rectangle outside atlas bounds")

	// ErrSizeMismatch is returned when bitmap bytes do not match the
	// destination rectangle.
	ErrSizeMismatch = errors.New("atlas: bitmap size does not match rectangle")
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("atlas: invalid config field %s=%v: %s", e.Field, e.Value, e.Reason)
}
