package meshing

import (
	"mc-terrain/internal/grid"
	"mc-terrain/internal/profiling"
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Options selects the Marching Cubes variant.
type Options struct {
	// SurfaceLevel is the iso threshold; nodes at or below it are inside.
	SurfaceLevel float32
	// Smooth interpolates vertices along edges; otherwise they sit at midpoints.
	Smooth bool
	// Stitch meshes the cells on the chunk's positive faces using neighbour
	// chunks, closing seams. Without it only cells fully inside the chunk are used.
	Stitch bool
	// Normals estimates per-vertex normals from the density field.
	Normals bool
	// Materials emits a MaterialBlend per vertex.
	Materials bool
}

// DefaultOptions returns the full-featured configuration.
func DefaultOptions() Options {
	return Options{
		SurfaceLevel: 0.5,
		Smooth:       true,
		Stitch:       true,
		Normals:      true,
		Materials:    true,
	}
}

// Mesher builds shared-vertex meshes for chunks of a ChunkMap.
// A Mesher is safe for concurrent use; callers hold ChunkMap.View while meshing.
type Mesher struct {
	m    *world.ChunkMap
	opts Options
}

// NewMesher creates a mesher over m.
func NewMesher(m *world.ChunkMap, opts Options) *Mesher {
	return &Mesher{m: m, opts: opts}
}

// Options returns the mesher configuration.
func (ms *Mesher) Options() Options { return ms.opts }

// edgeCaches holds vertex indices for the bottom and top plane of the current
// cell layer, keyed by (x, z, orientation) of each edge's lower corner.
type edgeCaches struct {
	bottom, top *grid.Grid[int32]
}

func newEdgeCaches(sizeX, sizeZ int) *edgeCaches {
	c := &edgeCaches{
		bottom: grid.New[int32](sizeX+1, sizeZ+1, 3),
		top:    grid.New[int32](sizeX+1, sizeZ+1, 3),
	}
	c.bottom.Fill(-1)
	c.top.Fill(-1)
	return c
}

// advance moves to the next layer: the old top plane becomes the bottom.
func (c *edgeCaches) advance() {
	c.bottom, c.top = c.top, c.bottom
	c.top.Fill(-1)
}

// March builds the mesh of chunk c.
func (ms *Mesher) March(c *world.Chunk) *Mesh {
	defer profiling.Track("meshing.March")()

	sx, sy, sz := c.Size()
	mesh := &Mesh{Coord: c.Coord, Origin: c.Origin()}
	caches := newEdgeCaches(sx, sz)

	// cell ranges
	nx, ny, nz := sx, sy, sz
	if !ms.opts.Stitch {
		nx, ny, nz = sx-1, sy-1, sz-1
	}

	ox, oy, oz := c.Coord.X*sx, c.Coord.Y*sy, c.Coord.Z*sz
	var cube Cube
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			for z := 0; z < nz; z++ {
				if !ms.gatherCube(c, x, y, z, &cube) {
					continue
				}
				cube.Base = [3]int{ox + x, oy + y, oz + z}
				ms.emitCube(c, &cube, x, z, caches, mesh)
			}
		}
		caches.advance()
	}
	return mesh
}

// gatherCube fills cube with the corners of cell (x, y, z). Returns false when
// any corner lies in a missing chunk.
func (ms *Mesher) gatherCube(c *world.Chunk, x, y, z int, cube *Cube) bool {
	nodes := c.Nodes()
	for i, o := range cornerOffsets {
		cx, cy, cz := x+o[0], y+o[1], z+o[2]
		if n, ok := nodes.Get(cx, cy, cz); ok {
			cube.Nodes[i] = n
			continue
		}
		n, ok := ms.m.NodeAt(c, cx, cy, cz)
		if !ok {
			return false
		}
		cube.Nodes[i] = n
	}
	return true
}

// emitCube appends the triangles of one cell, reusing cached edge vertices.
func (ms *Mesher) emitCube(c *world.Chunk, cube *Cube, x, z int, caches *edgeCaches, mesh *Mesh) {
	idx := cube.Index(ms.opts.SurfaceLevel)
	if edgeTable[idx] == 0 {
		return
	}
	tris := &triTable[idx]
	for i := 0; i < len(tris) && tris[i] != -1; i++ {
		e := int(tris[i])
		lo := edgeLow[e]
		off := cornerOffsets[lo]
		cache := caches.bottom
		if off[1] == 1 {
			cache = caches.top
		}
		slot := cache.Ptr(x+off[0], z+off[2], edgeOrientation(e))
		if *slot < 0 {
			*slot = ms.addVertex(c, cube, e, mesh)
		}
		mesh.Triangles = append(mesh.Triangles, uint32(*slot))
	}
}

// addVertex appends the vertex of edge e with its optional attributes and
// returns its index.
func (ms *Mesher) addVertex(c *world.Chunk, cube *Cube, e int, mesh *Mesh) int32 {
	v := cube.interpolate(e, ms.opts.SurfaceLevel, ms.opts.Smooth)
	mesh.Vertices = append(mesh.Vertices, v.pos)
	if ms.opts.Normals {
		mesh.Normals = append(mesh.Normals, ms.vertexNormal(c, cube, e, v.pos))
	}
	if ms.opts.Materials {
		mesh.Materials = append(mesh.Materials, MaterialBlend{Material: v.material, Fraction: v.t})
	}
	return int32(len(mesh.Vertices) - 1)
}

// ProcessCube appends the triangles of a single cube without vertex sharing:
// three fresh vertices per triangle. Positions match those of March for the
// same cube. Returns the number of triangles added.
func ProcessCube(cube *Cube, level float32, smooth bool, mesh *Mesh) int {
	idx := cube.Index(level)
	if edgeTable[idx] == 0 {
		return 0
	}
	tris := &triTable[idx]
	n := 0
	for i := 0; i+2 < len(tris) && tris[i] != -1; i += 3 {
		for k := 0; k < 3; k++ {
			v := cube.interpolate(int(tris[i+k]), level, smooth)
			mesh.Triangles = append(mesh.Triangles, uint32(len(mesh.Vertices)))
			mesh.Vertices = append(mesh.Vertices, v.pos)
			mesh.Materials = append(mesh.Materials, MaterialBlend{Material: v.material, Fraction: v.t})
		}
		n++
	}
	return n
}

// FaceNormal returns the unit normal of triangle (a, b, c) for the table's
// winding; it points toward the inside of the surface.
func FaceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}
