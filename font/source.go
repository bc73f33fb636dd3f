package font

import "os"

// Source abstracts where font bytes come from. The default is the local
// filesystem; platforms with packaged assets (for example Android asset
// managers) supply their own implementation at registry construction time.
// The source is selected once, never branched on per call.
type Source interface {
	// ReadFontBytes returns the contents of the font at path.
	ReadFontBytes(path string) ([]byte, error)
}

// FileSource reads fonts from the local filesystem.
type FileSource struct{}

// ReadFontBytes implements Source.
func (FileSource) ReadFontBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapSource serves fonts from an in-memory map, keyed by path. It is mainly
// useful for tests and for hosts that embed fonts in the binary.
type MapSource map[string][]byte

// ReadFontBytes implements Source.
func (m MapSource) ReadFontBytes(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	return data, nil
}
