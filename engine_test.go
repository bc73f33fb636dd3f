package textware

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/textware/atlas"
	"github.com/gogpu/textware/font"
)

// testEngine builds an engine with Go Regular loaded.
func testEngine(t *testing.T, cfg Config) (*Engine, font.Handle) {
	t.Helper()
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Close)

	h, err := eng.LoadFontBytes(goregular.TTF, "goregular")
	if err != nil {
		t.Fatalf("LoadFontBytes: %v", err)
	}
	return eng, h
}

// TestEngine_FrameProtocol walks the whole prepare/generate cycle for a
// simple label.
func TestEngine_FrameProtocol(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())

	label, err := eng.NewText("Hi", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, spans, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if frame == nil {
		t.Fatal("nil frame token")
	}
	if len(spans) == 0 {
		t.Error("first frame produced no upload spans")
	}

	mesh, diags, err := eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if mesh.QuadCount() != 2 {
		t.Fatalf("got %d quads for \"Hi\", want 2", mesh.QuadCount())
	}
	if len(mesh.Vertices) != 8 || len(mesh.Indices) != 12 {
		t.Errorf("got %d vertices, %d indices, want 8/12", len(mesh.Vertices), len(mesh.Indices))
	}

	// Steady state: nothing new to upload, same geometry.
	frame2, spans2, err := eng.Prepare()
	if err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	if len(spans2) != 0 {
		t.Errorf("steady-state frame has %d upload spans, want 0", len(spans2))
	}
	mesh2, _, err := eng.GenerateMesh(frame2, label)
	if err != nil {
		t.Fatalf("second GenerateMesh: %v", err)
	}
	if mesh2.QuadCount() != mesh.QuadCount() {
		t.Errorf("quad count changed across frames: %d vs %d", mesh2.QuadCount(), mesh.QuadCount())
	}

	stats := eng.Cache().Stats()
	if stats.Misses == 0 || stats.Hits == 0 {
		t.Errorf("stats hits=%d misses=%d, want both > 0", stats.Hits, stats.Misses)
	}
}

// TestEngine_FrameTokenEnforcement verifies stale and missing tokens are
// rejected.
func TestEngine_FrameTokenEnforcement(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	label, err := eng.NewText("x", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	if _, _, err := eng.GenerateMesh(nil, label); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("nil token: got %v, want ErrFrameMismatch", err)
	}

	old, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, _, err := eng.Prepare(); err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	if _, _, err := eng.GenerateMesh(old, label); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("stale token: got %v, want ErrFrameMismatch", err)
	}
}

// TestEngine_WhitespaceAdvancesPen verifies spaces emit no quad but keep
// the following glyphs positioned.
func TestEngine_WhitespaceAdvancesPen(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())

	spaced, err := eng.NewText("a b", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	joined, err := eng.NewText("ab", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	spacedMesh, _, err := eng.GenerateMesh(frame, spaced)
	if err != nil {
		t.Fatalf("GenerateMesh spaced: %v", err)
	}
	joinedMesh, _, err := eng.GenerateMesh(frame, joined)
	if err != nil {
		t.Fatalf("GenerateMesh joined: %v", err)
	}

	// Both render two quads; the space only moves the second one.
	if spacedMesh.QuadCount() != 2 || joinedMesh.QuadCount() != 2 {
		t.Fatalf("quads spaced=%d joined=%d, want 2/2", spacedMesh.QuadCount(), joinedMesh.QuadCount())
	}
	spacedB := spacedMesh.Vertices[4].Position.X()
	joinedB := joinedMesh.Vertices[4].Position.X()
	if spacedB <= joinedB {
		t.Errorf("space did not advance the pen: %f vs %f", spacedB, joinedB)
	}
}

// TestEngine_UVsWithinAtlas verifies normalized UVs.
func TestEngine_UVsWithinAtlas(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	label, err := eng.NewText("Quick", h, 24)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	mesh, _, err := eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh: %v", err)
	}

	for i, v := range mesh.Vertices {
		for axis := 0; axis < 2; axis++ {
			if uv := v.UV[axis]; uv < 0 || uv > 1 {
				t.Errorf("vertex %d: UV[%d]=%f outside [0,1]", i, axis, uv)
			}
		}
	}
	// Top-left vs bottom-right of each quad must span a positive UV area.
	for q := 0; q < mesh.QuadCount(); q++ {
		tl := mesh.Vertices[q*4].UV
		br := mesh.Vertices[q*4+2].UV
		if br.X() <= tl.X() || br.Y() <= tl.Y() {
			t.Errorf("quad %d: degenerate UV span %v..%v", q, tl, br)
		}
	}
}

// TestEngine_DiagnosticsOnExhaustion verifies degraded rendering: an atlas
// too small for every glyph still yields a mesh plus diagnostics, never an
// error.
func TestEngine_DiagnosticsOnExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Atlas = atlas.Config{Width: 32, InitialHeight: 16, MaxHeight: 16}
	eng, h := testEngine(t, cfg)

	label, err := eng.NewText("ABCDEFGH", h, 24)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	mesh, diags, err := eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh: %v", err)
	}
	if len(diags) == 0 {
		t.Error("no diagnostics from an exhausted atlas")
	}
	if mesh == nil {
		t.Fatal("nil mesh despite degraded rendering")
	}
	for _, d := range diags {
		if d.Err == nil {
			t.Errorf("diagnostic without cause: %v", d)
		}
	}
}

// TestEngine_TextMutation verifies content changes reshape on the next
// Prepare and new glyphs get uploaded.
func TestEngine_TextMutation(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	label, err := eng.NewText("aaa", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	mesh, _, err := eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh: %v", err)
	}
	if mesh.QuadCount() != 3 {
		t.Fatalf("got %d quads, want 3", mesh.QuadCount())
	}

	label.SetContent("zzzz")
	frame, spans, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare after mutation: %v", err)
	}
	if len(spans) == 0 {
		t.Error("new glyphs produced no upload spans")
	}
	mesh, _, err = eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh after mutation: %v", err)
	}
	if mesh.QuadCount() != 4 {
		t.Errorf("got %d quads after mutation, want 4", mesh.QuadCount())
	}

	width, height := label.Bounds()
	if width <= 0 || height <= 0 {
		t.Errorf("bounds %fx%f, want positive", width, height)
	}
}

// TestEngine_ColorAndOrigin verifies styling that does not reshape.
func TestEngine_ColorAndOrigin(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	label, err := eng.NewText("c", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	red := mgl32.Vec4{1, 0, 0, 1}
	label.SetColor(red)
	label.SetOrigin(mgl32.Vec2{100, 50})

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	mesh, _, err := eng.GenerateMesh(frame, label)
	if err != nil {
		t.Fatalf("GenerateMesh: %v", err)
	}
	if mesh.QuadCount() != 1 {
		t.Fatalf("got %d quads, want 1", mesh.QuadCount())
	}
	for i, v := range mesh.Vertices {
		if v.Color != red {
			t.Errorf("vertex %d color %v, want %v", i, v.Color, red)
		}
	}
	if x := mesh.Vertices[0].Position.X(); x < 100 {
		t.Errorf("origin not applied: first vertex at x=%f", x)
	}
	if y := mesh.Vertices[0].Position.Y(); y < 50 {
		t.Errorf("origin not applied: first vertex at y=%f", y)
	}
}

// TestEngine_RemoveAndClose verifies lifecycle errors.
func TestEngine_RemoveAndClose(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	label, err := eng.NewText("x", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	eng.RemoveText(label)
	if _, _, err := eng.GenerateMesh(frame, label); !errors.Is(err, ErrUnknownText) {
		t.Errorf("removed text: got %v, want ErrUnknownText", err)
	}

	eng.Close()
	if _, _, err := eng.Prepare(); !errors.Is(err, ErrClosed) {
		t.Errorf("closed Prepare: got %v, want ErrClosed", err)
	}
	if _, err := eng.NewText("y", h, 16); !errors.Is(err, ErrClosed) {
		t.Errorf("closed NewText: got %v, want ErrClosed", err)
	}
}

// TestEngine_StaleFontHandle verifies a broken text reports its error from
// GenerateMesh without failing the frame.
func TestEngine_StaleFontHandle(t *testing.T) {
	eng, h := testEngine(t, DefaultConfig())
	good, err := eng.NewText("ok", h, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	bad, err := eng.NewText("broken", font.Handle{}, 16)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	frame, _, err := eng.Prepare()
	if err != nil {
		t.Fatalf("Prepare failed because of one bad text: %v", err)
	}

	if _, _, err := eng.GenerateMesh(frame, bad); !errors.Is(err, font.ErrStaleHandle) {
		t.Errorf("bad text: got %v, want ErrStaleHandle", err)
	}
	mesh, _, err := eng.GenerateMesh(frame, good)
	if err != nil {
		t.Fatalf("good text failed alongside bad one: %v", err)
	}
	if mesh.QuadCount() != 2 {
		t.Errorf("got %d quads, want 2", mesh.QuadCount())
	}
}
