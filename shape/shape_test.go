package shape

import (
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/textware/font"
)

// testFace loads Go Regular into a registry and resolves its face.
func testFace(t *testing.T) *font.Face {
	t.Helper()
	reg := font.NewRegistry()
	h, err := reg.LoadBytes(goregular.TTF, "goregular")
	if err != nil {
		t.Fatalf("load goregular: %v", err)
	}
	face, err := reg.Resolve(h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return face
}

// TestHarfBuzz_BasicLatin verifies glyph count, advances, and monotone X
// positions for a simple Latin string.
func TestHarfBuzz_BasicLatin(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("Hello", face, 16, Options{})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Glyphs) != 5 {
		t.Fatalf("got %d glyphs, want 5", len(res.Glyphs))
	}
	if len(res.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(res.Lines))
	}

	var prevX float64
	for i, g := range res.Glyphs {
		if g.XAdvance <= 0 {
			t.Errorf("glyph %d: XAdvance=%f, want > 0", i, g.XAdvance)
		}
		if i > 0 && g.X <= prevX {
			t.Errorf("glyph %d: X=%f not after previous X=%f", i, g.X, prevX)
		}
		prevX = g.X
	}
	if res.Width <= 0 {
		t.Errorf("width %f, want > 0", res.Width)
	}
	if res.Height <= 0 {
		t.Errorf("height %f, want > 0", res.Height)
	}
}

// TestHarfBuzz_EmptyAndErrors covers the degenerate inputs.
func TestHarfBuzz_EmptyAndErrors(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("", face, 16, Options{})
	if err != nil {
		t.Fatalf("empty string: %v", err)
	}
	if len(res.Glyphs) != 0 || len(res.Lines) != 0 {
		t.Errorf("empty string: got %d glyphs, %d lines", len(res.Glyphs), len(res.Lines))
	}

	if _, err := s.Shape("x", nil, 16, Options{}); err != ErrNilFace {
		t.Errorf("nil face: got %v, want ErrNilFace", err)
	}
	if _, err := s.Shape("x", face, 0, Options{}); err != ErrInvalidSize {
		t.Errorf("zero size: got %v, want ErrInvalidSize", err)
	}
}

// TestHarfBuzz_HardBreaks verifies that newlines produce separate lines
// with increasing baselines, and blank lines keep their height.
func TestHarfBuzz_HardBreaks(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("one\ntwo\n\nfour", face, 16, Options{})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(res.Lines))
	}
	if len(res.Lines[2].Glyphs) != 0 {
		t.Errorf("blank line has %d glyphs", len(res.Lines[2].Glyphs))
	}
	for i := 1; i < len(res.Lines); i++ {
		if res.Lines[i].Y <= res.Lines[i-1].Y {
			t.Errorf("line %d baseline %f not below line %d baseline %f",
				i, res.Lines[i].Y, i-1, res.Lines[i-1].Y)
		}
	}
}

// TestHarfBuzz_LineHeightOverride verifies a custom baseline distance.
func TestHarfBuzz_LineHeightOverride(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("a\nb", face, 16, Options{LineHeight: 40})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(res.Lines))
	}
	if got := res.Lines[1].Y - res.Lines[0].Y; got != 40 {
		t.Errorf("baseline distance %f, want 40", got)
	}
}

// TestHarfBuzz_WordWrap verifies greedy word wrapping and that broken-at
// spaces are dropped from line starts.
func TestHarfBuzz_WordWrap(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	// Measure one word to pick a wrap width that fits ~1.5 words.
	one, err := s.Shape("word", face, 16, Options{})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}

	res, err := s.Shape("word word word", face, 16, Options{
		WrapWidth: one.Width * 1.5,
		Wrap:      WrapWord,
	})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(res.Lines))
	}
	for i, line := range res.Lines {
		if len(line.Glyphs) != 4 {
			t.Errorf("line %d: %d glyphs, want 4", i, len(line.Glyphs))
		}
		if len(line.Glyphs) > 0 && line.Glyphs[0].X != 0 {
			t.Errorf("line %d starts at X=%f, want 0", i, line.Glyphs[0].X)
		}
	}
}

// TestHarfBuzz_WordWrapOverflow verifies that WrapWord lets an overlong
// word overflow instead of splitting it.
func TestHarfBuzz_WordWrapOverflow(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("unbreakable", face, 16, Options{
		WrapWidth: 10,
		Wrap:      WrapWord,
	})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(res.Lines))
	}
	if res.Lines[0].Width <= 10 {
		t.Errorf("line width %f, want overflow past 10", res.Lines[0].Width)
	}
}

// TestHarfBuzz_WordCharFallback verifies the character fallback for words
// wider than the wrap width.
func TestHarfBuzz_WordCharFallback(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	res, err := s.Shape("unbreakable", face, 16, Options{
		WrapWidth: 30,
		Wrap:      WrapWordChar,
	})
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if len(res.Lines) < 2 {
		t.Fatalf("got %d lines, want >= 2", len(res.Lines))
	}
	for i, line := range res.Lines {
		if len(line.Glyphs) == 0 {
			t.Errorf("line %d is empty", i)
		}
	}
}

// TestHarfBuzz_Alignment verifies center and right alignment offsets.
func TestHarfBuzz_Alignment(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	const wrapWidth = 400.0

	left, err := s.Shape("hi", face, 16, Options{WrapWidth: wrapWidth, Wrap: WrapNone})
	if err != nil {
		t.Fatalf("left: %v", err)
	}
	center, err := s.Shape("hi", face, 16, Options{WrapWidth: wrapWidth, Wrap: WrapNone, Align: AlignCenter})
	if err != nil {
		t.Fatalf("center: %v", err)
	}
	right, err := s.Shape("hi", face, 16, Options{WrapWidth: wrapWidth, Wrap: WrapNone, Align: AlignRight})
	if err != nil {
		t.Fatalf("right: %v", err)
	}

	leftX := left.Glyphs[0].X
	centerX := center.Glyphs[0].X
	rightX := right.Glyphs[0].X

	if leftX != 0 {
		t.Errorf("left-aligned first glyph at X=%f, want 0", leftX)
	}
	if centerX <= leftX || centerX >= rightX {
		t.Errorf("center X=%f not between left %f and right %f", centerX, leftX, rightX)
	}
	wantCenter := (wrapWidth - left.Width) / 2
	if diff := centerX - wantCenter; diff < -0.01 || diff > 0.01 {
		t.Errorf("center X=%f, want %f", centerX, wantCenter)
	}
}

// TestHarfBuzz_Kerning checks that shaping applies kerning: "AV" should be
// narrower than the sum of "A" and "V" shaped alone.
func TestHarfBuzz_Kerning(t *testing.T) {
	face := testFace(t)
	s := NewHarfBuzz()

	a, err := s.Shape("A", face, 32, Options{})
	if err != nil {
		t.Fatalf("Shape A: %v", err)
	}
	v, err := s.Shape("V", face, 32, Options{})
	if err != nil {
		t.Fatalf("Shape V: %v", err)
	}
	av, err := s.Shape("AV", face, 32, Options{})
	if err != nil {
		t.Fatalf("Shape AV: %v", err)
	}
	if av.Width >= a.Width+v.Width {
		t.Errorf("AV width %f not kerned below A+V %f", av.Width, a.Width+v.Width)
	}
}

// TestBreakBefore exercises the break classifier directly.
func TestBreakBefore(t *testing.T) {
	tests := []struct {
		name string
		text string
		idx  int
		mode WrapMode
		want bool
	}{
		{"after space", "a b", 2, WrapWord, true},
		{"inside word", "abc", 1, WrapWord, false},
		{"start of text", "abc", 0, WrapWord, false},
		{"char mode anywhere", "abc", 1, WrapChar, true},
		{"none mode never", "a b", 2, WrapNone, false},
		{"after hyphen", "a-b", 2, WrapWord, true},
		{"before cjk", "a世", 1, WrapWord, true},
		{"between cjk", "世界", 1, WrapWord, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := breakBefore([]rune(tt.text), tt.idx, tt.mode); got != tt.want {
				t.Errorf("breakBefore(%q, %d, %v) = %v, want %v",
					tt.text, tt.idx, tt.mode, got, tt.want)
			}
		})
	}
}

// TestSplitRuns_Directions verifies bidi run splitting for mixed text.
func TestSplitRuns_Directions(t *testing.T) {
	latin := splitRuns([]rune("hello"), DirectionLTR)
	if len(latin) != 1 || latin[0].rtl {
		t.Errorf("pure LTR: got %d runs, rtl=%v", len(latin), latin[0].rtl)
	}

	hebrew := splitRuns([]rune("שלום"), DirectionLTR)
	if len(hebrew) != 1 {
		t.Fatalf("pure RTL: got %d runs, want 1", len(hebrew))
	}
	if !hebrew[0].rtl {
		t.Error("pure RTL run not marked rtl")
	}

	mixed := splitRuns([]rune("abc שלום def"), DirectionLTR)
	if len(mixed) < 3 {
		t.Fatalf("mixed text: got %d runs, want >= 3", len(mixed))
	}
	if mixed[0].rtl {
		t.Error("first mixed run should be LTR")
	}
	// Runs stay in logical order and cover the text contiguously.
	offset := 0
	for i, r := range mixed {
		if r.start != offset {
			t.Errorf("run %d starts at %d, want %d", i, r.start, offset)
		}
		offset += len(r.runes)
	}
}
