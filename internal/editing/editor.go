// Package editing applies spherical density edits to a ChunkMap.
package editing

import (
	"math"
	"sort"

	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Editor adds or removes density around a point. Edits hold the map's data
// lock exclusively, so they never overlap meshing or raycasts.
type Editor struct {
	m *world.ChunkMap
}

// NewEditor creates an editor for m.
func NewEditor(m *world.ChunkMap) *Editor {
	return &Editor{m: m}
}

// Modify adds amount to the iso value of every node within radius of point,
// where point is in c's local frame. Results are clamped to [0,1]. Nodes in
// missing neighbour chunks are skipped. Chunks whose nodes changed are marked
// dirty. The returned coordinates, in order, are every chunk whose mesh is now
// stale: the changed chunks plus neighbours whose border cells or normals read them.
func (e *Editor) Modify(c *world.Chunk, point mgl32.Vec3, amount, radius float32) []world.ChunkCoord {
	if radius <= 0 || amount == 0 {
		return nil
	}
	var touched []world.ChunkCoord
	e.m.Update(func() {
		if c.Nodes() == nil || c.State() == world.StateDisabled {
			return
		}
		touched = e.modify(c, point, amount, radius)
	})
	return touched
}

// ModifyAt is Modify with point given in the map frame.
func (e *Editor) ModifyAt(point mgl32.Vec3, amount, radius float32) []world.ChunkCoord {
	pos, _ := e.m.LocateVoxel(point)
	c, ok := e.m.GetChunk(pos)
	if !ok {
		return nil
	}
	return e.Modify(c, point.Sub(c.Origin()), amount, radius)
}

func (e *Editor) modify(c *world.Chunk, point mgl32.Vec3, amount, radius float32) []world.ChunkCoord {
	r := int(math.Ceil(float64(radius)))
	base := world.FloorVec(point)
	frac := point.Sub(mgl32.Vec3{float32(base[0]), float32(base[1]), float32(base[2])})
	r2 := radius * radius

	seen := make(map[world.ChunkCoord]*world.Chunk)
	sx, sy, sz := e.m.ChunkSize()
	origin := [3]int{c.Coord.X * sx, c.Coord.Y * sy, c.Coord.Z * sz}
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				ox := float32(dx) - frac[0]
				oy := float32(dy) - frac[1]
				oz := float32(dz) - frac[2]
				if ox*ox+oy*oy+oz*oz > r2 {
					continue
				}
				n, owner, ok := e.m.ResolveNode(c, base[0]+dx, base[1]+dy, base[2]+dz)
				if !ok || owner.State() == world.StateDisabled {
					continue
				}
				n.Iso = clamp01(n.Iso + amount)
				seen[owner.Coord] = owner
				_, local := e.m.ChunkOf(origin[0]+base[0]+dx, origin[1]+base[1]+dy, origin[2]+base[2]+dz)
				e.markNeighbours(owner.Coord, local, seen)
			}
		}
	}

	out := make([]world.ChunkCoord, 0, len(seen))
	for pos, owner := range seen {
		if owner != nil {
			owner.MarkDirty()
		}
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// markNeighbours flags for re-meshing the chunks that read a node at local
// index local of chunk pos. Lower neighbours use it as a corner of their
// border cells (local 0) or for vertex normals one node further in (local 1).
// Upper neighbours sample it for the normals of their first cells (local
// size-1). Those chunks keep their data, so they are recorded with a nil
// entry and are not marked dirty.
func (e *Editor) markNeighbours(pos world.ChunkCoord, local [3]int, seen map[world.ChunkCoord]*world.Chunk) {
	sx, sy, sz := e.m.ChunkSize()
	size := [3]int{sx, sy, sz}
	var offsets [3][]int
	for i := range offsets {
		offsets[i] = []int{0}
		if local[i] <= 1 {
			offsets[i] = append(offsets[i], -1)
		}
		if local[i] == size[i]-1 {
			offsets[i] = append(offsets[i], 1)
		}
	}
	if len(offsets[0])+len(offsets[1])+len(offsets[2]) == 3 {
		return
	}
	for _, dx := range offsets[0] {
		for _, dy := range offsets[1] {
			for _, dz := range offsets[2] {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				np := pos.Add(dx, dy, dz)
				if _, done := seen[np]; done {
					continue
				}
				if nb, ok := e.m.GetChunk(np); ok {
					nb.SetNeedsMesh(true)
					seen[np] = nil
				}
			}
		}
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
