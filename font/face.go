package font

import (
	"sync"

	gtfont "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Face is a loaded font: its binary data plus the parsed face objects used
// by the shaping and rasterization boundaries. A Face is created once per
// load and shared; it is immutable apart from the internal sfnt buffer,
// which is guarded by a mutex.
type Face struct {
	name string
	data []byte

	// gt is the go-text font used for shaping. It is read-only and safe
	// for concurrent use.
	gt *gtfont.Font

	// sfnt is the x/image font used for metrics and rasterization.
	sfnt *sfnt.Font

	// bufMu guards buf; sfnt.Buffer is not safe for concurrent use.
	bufMu sync.Mutex
	buf   sfnt.Buffer
}

// Name returns the font's registered name.
func (f *Face) Name() string { return f.name }

// Data returns the raw font bytes. Callers must not mutate the slice.
func (f *Face) Data() []byte { return f.data }

// GoText returns the parsed go-text font for shaping.
func (f *Face) GoText() *gtfont.Font { return f.gt }

// SFNT returns the parsed sfnt font for rasterization.
func (f *Face) SFNT() *sfnt.Font { return f.sfnt }

// Metrics holds vertical font metrics scaled to a pixel size.
// Ascent and Descent are both positive distances from the baseline.
type Metrics struct {
	Ascent  float64
	Descent float64
	LineGap float64
}

// LineHeight returns the font's natural baseline-to-baseline distance.
func (m Metrics) LineHeight() float64 {
	return m.Ascent + m.Descent + m.LineGap
}

// Metrics returns the face's vertical metrics at the given pixel size.
func (f *Face) Metrics(size float64) (Metrics, error) {
	f.bufMu.Lock()
	defer f.bufMu.Unlock()

	ppem := fixed.Int26_6(size * 64)
	m, err := f.sfnt.Metrics(&f.buf, ppem, xfont.HintingNone)
	if err != nil {
		return Metrics{}, err
	}

	descent := fixedToFloat(m.Descent)
	if descent < 0 {
		descent = -descent
	}
	lineGap := fixedToFloat(m.Height - m.Ascent - m.Descent)
	if lineGap < 0 {
		lineGap = 0
	}
	return Metrics{
		Ascent:  fixedToFloat(m.Ascent),
		Descent: descent,
		LineGap: lineGap,
	}, nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
