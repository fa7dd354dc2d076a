package physics

import (
	"math"

	"mc-terrain/internal/meshing"
	"mc-terrain/internal/profiling"
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxChunkSteps bounds the chunk-level search for a ray starting outside any chunk.
const MaxChunkSteps = 10

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	Hit      bool
	Point    mgl32.Vec3 // map frame
	Normal   mgl32.Vec3 // face normal of the hit triangle
	Distance float32
	Chunk    *world.Chunk
	Voxel    [3]int // local index of the hit cell within Chunk
}

// Raycaster intersects rays with the isosurface of a ChunkMap, testing the
// triangles of each cell the ray passes through in order.
type Raycaster struct {
	m      *world.ChunkMap
	level  float32
	smooth bool

	// MaxDistance stops the traversal beyond this ray length. Zero means unbounded.
	MaxDistance float32
}

// NewRaycaster creates a raycaster that rebuilds cell triangles with the given
// surface level and smoothing.
func NewRaycaster(m *world.ChunkMap, level float32, smooth bool) *Raycaster {
	return &Raycaster{m: m, level: level, smooth: smooth}
}

// Raycast returns the first surface hit along origin + t*dir. The traversal
// stops with a miss when it would enter a chunk that does not exist.
func (r *Raycaster) Raycast(origin, dir mgl32.Vec3) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	if dir.Len() == 0 {
		return RaycastResult{}
	}
	dir = dir.Normalize()
	var res RaycastResult
	r.m.View(func() {
		res = r.cast(origin, dir)
	})
	return res
}

func (r *Raycaster) cast(origin, dir mgl32.Vec3) RaycastResult {
	sx, sy, sz := r.m.ChunkSize()
	size := [3]int{sx, sy, sz}

	var step [3]int
	var tDelta [3]float32
	for i := 0; i < 3; i++ {
		step[i] = sign(dir[i])
		tDelta[i] = float32(math.Inf(1))
		if dir[i] != 0 {
			tDelta[i] = 1 / float32(math.Abs(float64(dir[i])))
		}
	}

	chunkPos, local := r.m.LocateVoxel(origin)
	chunk, ok := r.m.GetChunk(chunkPos)
	if !ok {
		chunkPos, chunk, ok = r.findChunk(origin, dir, step, size, chunkPos)
		if !ok {
			return RaycastResult{}
		}
		local = r.entryVoxel(origin, dir, step, size, chunkPos)
	}

	// cell in the map frame and distance to its next boundary per axis
	var cell [3]int
	var tMax [3]float32
	cpos := [3]int{chunkPos.X, chunkPos.Y, chunkPos.Z}
	for i := 0; i < 3; i++ {
		cell[i] = cpos[i]*size[i] + local[i]
		tMax[i] = float32(math.Inf(1))
		if step[i] > 0 {
			tMax[i] = (float32(cell[i]+1) - origin[i]) / dir[i]
		} else if step[i] < 0 {
			tMax[i] = (float32(cell[i]) - origin[i]) / dir[i]
		}
	}

	var mesh meshing.Mesh
	for {
		if t, n, hit := r.testCell(chunk, local, cell, origin, dir, &mesh); hit {
			if r.MaxDistance > 0 && t > r.MaxDistance {
				return RaycastResult{}
			}
			return RaycastResult{
				Hit:      true,
				Point:    origin.Add(dir.Mul(t)),
				Normal:   n,
				Distance: t,
				Chunk:    chunk,
				Voxel:    local,
			}
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if math.IsInf(float64(tMax[axis]), 1) {
			return RaycastResult{}
		}
		if r.MaxDistance > 0 && tMax[axis] > r.MaxDistance {
			return RaycastResult{}
		}

		cell[axis] += step[axis]
		local[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		if local[axis] < 0 || local[axis] >= size[axis] {
			local[axis] -= step[axis] * size[axis]
			cpos[axis] += step[axis]
			chunkPos = world.ChunkCoord{X: cpos[0], Y: cpos[1], Z: cpos[2]}
			if chunk, ok = r.m.GetChunk(chunkPos); !ok {
				return RaycastResult{}
			}
		}
	}
}

// findChunk walks the chunk lattice from the origin's chunk for up to
// MaxChunkSteps steps, returning the first existing chunk.
func (r *Raycaster) findChunk(origin, dir mgl32.Vec3, step, size [3]int, start world.ChunkCoord) (world.ChunkCoord, *world.Chunk, bool) {
	pos := [3]int{start.X, start.Y, start.Z}
	var tMax, tDelta [3]float32
	for i := 0; i < 3; i++ {
		tMax[i] = float32(math.Inf(1))
		tDelta[i] = float32(math.Inf(1))
		if step[i] == 0 {
			continue
		}
		tDelta[i] = float32(size[i]) / float32(math.Abs(float64(dir[i])))
		boundary := pos[i] * size[i]
		if step[i] > 0 {
			boundary += size[i]
		}
		tMax[i] = (float32(boundary) - origin[i]) / dir[i]
	}

	for n := 0; n < MaxChunkSteps; n++ {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if math.IsInf(float64(tMax[axis]), 1) {
			break
		}
		pos[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		coord := world.ChunkCoord{X: pos[0], Y: pos[1], Z: pos[2]}
		if c, ok := r.m.GetChunk(coord); ok {
			return coord, c, true
		}
	}
	return world.ChunkCoord{}, nil, false
}

// entryVoxel returns the local cell where the ray enters chunk pos. The entry
// face is the boundary plane the ray crosses last among the three axes.
func (r *Raycaster) entryVoxel(origin, dir mgl32.Vec3, step, size [3]int, pos world.ChunkCoord) [3]int {
	cpos := [3]int{pos.X, pos.Y, pos.Z}
	tEnter := float32(0)
	axis := -1
	for i := 0; i < 3; i++ {
		if step[i] == 0 {
			continue
		}
		plane := cpos[i] * size[i]
		if step[i] < 0 {
			plane += size[i]
		}
		t := (float32(plane) - origin[i]) / dir[i]
		if axis < 0 || t > tEnter {
			tEnter, axis = t, i
		}
	}
	p := origin.Add(dir.Mul(tEnter))
	var local [3]int
	for i := 0; i < 3; i++ {
		v := int(math.Floor(float64(p[i]))) - cpos[i]*size[i]
		local[i] = min(max(v, 0), size[i]-1)
	}
	if axis >= 0 {
		if step[axis] > 0 {
			local[axis] = 0
		} else {
			local[axis] = size[axis] - 1
		}
	}
	return local
}

// testCell rebuilds the triangles of one cell and returns the nearest hit.
// Cells with a corner in a missing chunk have no triangles.
func (r *Raycaster) testCell(c *world.Chunk, local, cell [3]int, origin, dir mgl32.Vec3, mesh *meshing.Mesh) (float32, mgl32.Vec3, bool) {
	var cube meshing.Cube
	for i := 0; i < 8; i++ {
		o := meshing.CornerOffset(i)
		n, ok := r.m.NodeAt(c, local[0]+o[0], local[1]+o[1], local[2]+o[2])
		if !ok {
			return 0, mgl32.Vec3{}, false
		}
		cube.Nodes[i] = n
	}
	cube.Base = cell

	mesh.Reset()
	if meshing.ProcessCube(&cube, r.level, r.smooth, mesh) == 0 {
		return 0, mgl32.Vec3{}, false
	}
	best := float32(math.Inf(1))
	var normal mgl32.Vec3
	for i := 0; i < mesh.TriangleCount(); i++ {
		a, b, cc := mesh.Triangle(i)
		if t, ok := IntersectTriangle(origin, dir, a, b, cc); ok && t < best {
			best = t
			normal = meshing.FaceNormal(a, b, cc)
		}
	}
	if math.IsInf(float64(best), 1) {
		return 0, mgl32.Vec3{}, false
	}
	return best, normal, true
}

func sign(f float32) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}
