package meshing

import (
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBlend is the per-vertex material output: the dominant material of
// the edge's corners and the interpolation fraction along the edge. Fraction
// is measured from the edge corner nearer the cell's minimum corner, so it is
// the same for every cube and chunk sharing the edge. It is 0.5 when
// smoothing is off.
type MaterialBlend struct {
	Material int32
	Fraction float32
}

// Mesh is an indexed triangle list. Vertices are in the map frame; Origin is
// the owning chunk's minimum corner, used to convert to chunk-local space.
// Normals and Materials are either empty or parallel to Vertices.
type Mesh struct {
	Coord     world.ChunkCoord
	Origin    mgl32.Vec3
	Vertices  []mgl32.Vec3
	Triangles []uint32
	Normals   []mgl32.Vec3
	Materials []MaterialBlend
}

// Reset empties the mesh, keeping allocated capacity.
func (m *Mesh) Reset() {
	m.Vertices = m.Vertices[:0]
	m.Triangles = m.Triangles[:0]
	m.Normals = m.Normals[:0]
	m.Materials = m.Materials[:0]
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return len(m.Triangles) == 0 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Triangles) / 3 }

// LocalVertex returns vertex i relative to the chunk origin.
func (m *Mesh) LocalVertex(i int) mgl32.Vec3 {
	return m.Vertices[i].Sub(m.Origin)
}

// Triangle returns the corner positions of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Vertices[m.Triangles[3*i]], m.Vertices[m.Triangles[3*i+1]], m.Vertices[m.Triangles[3*i+2]]
}

// RecalculateNormals replaces Normals with area-weighted face normals
// accumulated per vertex.
func (m *Mesh) RecalculateNormals() {
	normals := make([]mgl32.Vec3, len(m.Vertices))
	for i := 0; i+2 < len(m.Triangles); i += 3 {
		ia, ib, ic := m.Triangles[i], m.Triangles[i+1], m.Triangles[i+2]
		a, b, c := m.Vertices[ia], m.Vertices[ib], m.Vertices[ic]
		n := b.Sub(a).Cross(c.Sub(a))
		normals[ia] = normals[ia].Add(n)
		normals[ib] = normals[ib].Add(n)
		normals[ic] = normals[ic].Add(n)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	m.Normals = normals
}
