// Package textware turns styled text objects into a packed glyph texture
// and per-frame vertex/index meshes for GPU text rendering.
//
// The engine combines four pieces: a shelf-packing glyph atlas with a free
// list and vertical growth (package atlas), a content-addressed glyph
// cache with lazy LRU eviction (package glyph), HarfBuzz shaping with
// wrapping and bidi support (package shape), and an outline rasterizer
// (package raster). Package gpu adapts the atlas to a wgpu device for
// hosts that want the texture managed for them.
//
// The frame protocol is prepare-once, generate-many:
//
//	eng, _ := textware.New(textware.DefaultConfig())
//	handle, _ := eng.LoadFont("fonts/Inter-Regular.ttf")
//	label, _ := eng.NewText("hello, world", handle, 16)
//
//	for running {
//		frame, spans, _ := eng.Prepare()
//		// upload spans from eng.Atlas().Pixels() to the atlas texture
//		mesh, diags, _ := eng.GenerateMesh(frame, label)
//		// upload mesh.VertexBytes()/mesh.IndexBytes() and draw
//	}
//
// Prepare resolves every glyph into the atlas and reports which texture
// regions changed; GenerateMesh is read-only and may run any number of
// times per frame. Meshes are rebuilt each call, so atlas growth between
// frames never leaves stale UVs behind.
package textware
