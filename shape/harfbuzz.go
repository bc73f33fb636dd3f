package shape

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/textware/font"
)

// HarfBuzz is the default Shaper, backed by go-text/typesetting's HarfBuzz
// port. It supports kerning, ligatures, and complex scripts, and splits
// mixed-direction paragraphs into bidi runs before shaping.
//
// HarfBuzz is safe for concurrent use. Shaper state that is not
// concurrency-safe (the HarfbuzzShaper buffers, the per-call Face wrapper)
// is pooled or created per call.
type HarfBuzz struct {
	// pool holds HarfbuzzShaper instances. They carry internal buffers
	// and are not safe for concurrent use, but reuse across sequential
	// calls avoids reallocating them.
	pool sync.Pool
}

// NewHarfBuzz creates a HarfBuzz shaper.
func NewHarfBuzz() *HarfBuzz {
	return &HarfBuzz{
		pool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
	}
}

// Shape implements Shaper.
func (s *HarfBuzz) Shape(content string, face *font.Face, size float64, opts Options) (*Result, error) {
	if face == nil {
		return nil, ErrNilFace
	}
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if content == "" {
		return &Result{}, nil
	}

	metrics, err := face.Metrics(size)
	if err != nil {
		return nil, fmt.Errorf("shape: font metrics: %w", err)
	}
	lineHeight := opts.LineHeight
	if lineHeight <= 0 {
		lineHeight = metrics.LineHeight()
	}

	// font.Face from go-text is not safe for concurrent use, so each call
	// wraps the shared read-only Font in a fresh Face. The parsed Font
	// itself is cached on the registry side.
	gtFace := gtfont.NewFace(face.GoText())

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	defer s.pool.Put(hb)

	result := &Result{}
	lineNo := 0

	for _, para := range splitParagraphs(content) {
		runes := []rune(para)
		glyphs := s.shapeParagraph(hb, gtFace, runes, size, opts.Direction)

		for _, lineGlyphs := range splitLines(glyphs, runes, opts) {
			line := buildLine(lineGlyphs, metrics.Ascent+float64(lineNo)*lineHeight)
			alignLine(&line, opts)
			lineNo++

			if line.Width > result.Width {
				result.Width = line.Width
			}
			result.Glyphs = append(result.Glyphs, line.Glyphs...)
			result.Lines = append(result.Lines, line)
		}
	}

	if n := len(result.Lines); n > 0 {
		result.Height = result.Lines[n-1].Y + metrics.Descent
	}
	return result, nil
}

// shapeParagraph shapes one paragraph into glyphs in logical order. X
// positions accumulate from zero across bidi runs; Cluster is the rune index
// within the paragraph.
func (s *HarfBuzz) shapeParagraph(hb *shaping.HarfbuzzShaper, gtFace *gtfont.Face, para []rune, size float64, base Direction) []PositionedGlyph {
	if len(para) == 0 {
		return nil
	}

	var glyphs []PositionedGlyph
	var penX float64

	for _, run := range splitRuns(para, base) {
		dir := di.DirectionLTR
		if run.rtl {
			dir = di.DirectionRTL
		}

		input := shaping.Input{
			Text:      run.runes,
			RunStart:  0,
			RunEnd:    len(run.runes),
			Direction: dir,
			Face:      gtFace,
			Size:      fixed.Int26_6(size * 64),
			Script:    runScript(run.runes),
			Language:  language.NewLanguage("en"),
		}
		output := hb.Shape(input)

		for _, g := range output.Glyphs {
			adv := fixedToFloat(g.Advance)
			glyphs = append(glyphs, PositionedGlyph{
				GID:      GlyphID(g.GlyphID),
				Cluster:  run.start + g.TextIndex(),
				X:        penX + fixedToFloat(g.XOffset),
				XAdvance: adv,
			})
			penX += adv
		}
	}
	return glyphs
}

// splitParagraphs splits text at hard line breaks, normalizing Windows and
// classic Mac line endings.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// splitLines wraps a shaped paragraph into lines. Each returned slice keeps
// its paragraph-relative X positions; buildLine rebases them to zero. An
// empty paragraph yields one empty line so blank lines keep their height.
func splitLines(glyphs []PositionedGlyph, runes []rune, opts Options) [][]PositionedGlyph {
	if len(glyphs) == 0 {
		return [][]PositionedGlyph{nil}
	}
	if opts.WrapWidth <= 0 || opts.Wrap == WrapNone {
		return [][]PositionedGlyph{glyphs}
	}

	// A break is allowed before glyph i when it is allowed before the
	// first rune of i's cluster, and never inside a cluster.
	breakable := make([]bool, len(glyphs))
	for i := 1; i < len(glyphs); i++ {
		if glyphs[i].Cluster == glyphs[i-1].Cluster {
			continue
		}
		breakable[i] = breakBefore(runes, glyphs[i].Cluster, opts.Wrap)
	}

	var lines [][]PositionedGlyph
	lineStart := 0
	lastBreak := -1
	startX := glyphs[0].X

	for i := 0; i < len(glyphs); i++ {
		if breakable[i] {
			lastBreak = i
		}

		end := glyphs[i].X - startX + glyphs[i].XAdvance
		if end <= opts.WrapWidth || i == lineStart {
			continue
		}

		breakAt := i
		if lastBreak > lineStart {
			breakAt = lastBreak
		} else if opts.Wrap == WrapWord {
			// No break opportunity fits: let the word overflow to
			// the next one.
			for breakAt < len(glyphs) && !breakable[breakAt] {
				breakAt++
			}
			if breakAt == len(glyphs) {
				break
			}
		}

		line := glyphs[lineStart:breakAt]
		for len(line) > 0 && isSpaceCluster(line[len(line)-1], runes) {
			line = line[:len(line)-1]
		}
		lines = append(lines, line)

		// Drop the whitespace the line broke at.
		for breakAt < len(glyphs) && isSpaceCluster(glyphs[breakAt], runes) {
			breakAt++
		}
		lineStart = breakAt
		lastBreak = -1
		if lineStart < len(glyphs) {
			startX = glyphs[lineStart].X
		}
		i = lineStart - 1
	}

	if lineStart < len(glyphs) {
		lines = append(lines, glyphs[lineStart:])
	}
	if len(lines) == 0 {
		lines = [][]PositionedGlyph{nil}
	}
	return lines
}

// isSpaceCluster reports whether the glyph maps to a whitespace rune.
func isSpaceCluster(g PositionedGlyph, runes []rune) bool {
	if g.Cluster < 0 || g.Cluster >= len(runes) {
		return false
	}
	switch runes[g.Cluster] {
	case ' ', '\t':
		return true
	}
	return false
}

// buildLine rebases a line's glyphs to start at X zero and stamps the
// baseline.
func buildLine(glyphs []PositionedGlyph, baseline float64) Line {
	line := Line{Y: baseline}
	if len(glyphs) == 0 {
		return line
	}

	startX := glyphs[0].X
	line.Glyphs = make([]PositionedGlyph, len(glyphs))
	for i, g := range glyphs {
		g.X -= startX
		g.Y = baseline
		line.Glyphs[i] = g
	}

	last := &line.Glyphs[len(line.Glyphs)-1]
	line.Width = last.X + last.XAdvance
	return line
}

// alignLine shifts a line's glyphs for center or right alignment. Alignment
// needs a positive wrap width to align against.
func alignLine(line *Line, opts Options) {
	if opts.WrapWidth <= 0 || len(line.Glyphs) == 0 {
		return
	}

	var offset float64
	switch opts.Align {
	case AlignCenter:
		offset = (opts.WrapWidth - line.Width) / 2
	case AlignRight:
		offset = opts.WrapWidth - line.Width
	default:
		return
	}
	if offset <= 0 {
		return
	}
	for i := range line.Glyphs {
		line.Glyphs[i].X += offset
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
