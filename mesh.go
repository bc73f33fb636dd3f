package textware

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the byte size of one Vertex: position (3 float32) + uv
// (2 float32) + color (4 float32), tightly packed.
const VertexStride = 36

// Vertex is one text mesh vertex in the wire layout the host pipeline
// consumes.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
}

// Mesh is the per-frame geometry of one text object: 4 vertices and 6
// indices per rendered glyph. Indices are 16-bit, two triangles per quad.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// QuadCount returns the number of glyph quads in the mesh.
func (m *Mesh) QuadCount() int {
	return len(m.Vertices) / 4
}

// VertexBytes serializes the vertices into little-endian bytes for GPU
// upload.
func (m *Mesh) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	data := make([]byte, len(m.Vertices)*VertexStride)
	off := 0
	for _, v := range m.Vertices {
		putFloat32(data[off+0:], v.Position[0])
		putFloat32(data[off+4:], v.Position[1])
		putFloat32(data[off+8:], v.Position[2])
		putFloat32(data[off+12:], v.UV[0])
		putFloat32(data[off+16:], v.UV[1])
		putFloat32(data[off+20:], v.Color[0])
		putFloat32(data[off+24:], v.Color[1])
		putFloat32(data[off+28:], v.Color[2])
		putFloat32(data[off+32:], v.Color[3])
		off += VertexStride
	}
	return data
}

// IndexBytes serializes the indices into little-endian bytes for GPU
// upload.
func (m *Mesh) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	data := make([]byte, len(m.Indices)*2)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint16(data[i*2:], idx)
	}
	return data
}

// appendQuad emits one glyph quad: vertices in top-left, top-right,
// bottom-right, bottom-left order, triangles (0,1,2) and (0,2,3).
func (m *Mesh) appendQuad(x0, y0, x1, y1, u0, v0, u1, v1 float32, color mgl32.Vec4) {
	base := uint16(len(m.Vertices))
	m.Vertices = append(m.Vertices,
		Vertex{Position: mgl32.Vec3{x0, y0, 0}, UV: mgl32.Vec2{u0, v0}, Color: color},
		Vertex{Position: mgl32.Vec3{x1, y0, 0}, UV: mgl32.Vec2{u1, v0}, Color: color},
		Vertex{Position: mgl32.Vec3{x1, y1, 0}, UV: mgl32.Vec2{u1, v1}, Color: color},
		Vertex{Position: mgl32.Vec3{x0, y1, 0}, UV: mgl32.Vec2{u0, v1}, Color: color},
	)
	m.Indices = append(m.Indices,
		base, base+1, base+2,
		base, base+2, base+3,
	)
}

func putFloat32(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
}
