package meshing

import (
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Edge orientations used as the third cache coordinate.
const (
	alongX = 0
	alongZ = 1
	alongY = 2
)

// edgeLow and edgeHigh order each edge's corners by position. Vertices are
// always interpolated from the lower corner so that every cube, and every
// chunk, sharing an edge computes the same bits.
var edgeLow, edgeHigh [12]int

func init() {
	for e, c := range edgeCorners {
		a, b := cornerOffsets[c[0]], cornerOffsets[c[1]]
		if a[0]+a[1]+a[2] <= b[0]+b[1]+b[2] {
			edgeLow[e], edgeHigh[e] = c[0], c[1]
		} else {
			edgeLow[e], edgeHigh[e] = c[1], c[0]
		}
	}
}

// edgeOrientation returns the axis an edge runs along.
func edgeOrientation(e int) int {
	if e < 8 {
		return e % 2
	}
	return alongY
}

// Cube is the eight corner samples of one grid cell. Base is the position of
// corner 3, the cell's minimum corner.
type Cube struct {
	Base  [3]int
	Nodes [8]world.Node
}

// Index returns the 8-bit classification: bit i is set iff corner i is at or
// below level.
func (c *Cube) Index(level float32) uint8 {
	var idx uint8
	for i := range c.Nodes {
		if c.Nodes[i].Iso <= level {
			idx |= 1 << i
		}
	}
	return idx
}

// CornerPos returns the position of corner i.
func (c *Cube) CornerPos(i int) mgl32.Vec3 {
	o := cornerOffsets[i]
	return mgl32.Vec3{
		float32(c.Base[0] + o[0]),
		float32(c.Base[1] + o[1]),
		float32(c.Base[2] + o[2]),
	}
}

// edgeVertex is a vertex placed on a crossed cube edge.
type edgeVertex struct {
	pos      mgl32.Vec3
	t        float32
	material int32
}

// interpolate places the vertex of edge e. With smoothing off the vertex sits
// at the edge midpoint.
func (c *Cube) interpolate(e int, level float32, smooth bool) edgeVertex {
	lo, hi := edgeLow[e], edgeHigh[e]
	t := float32(0.5)
	if smooth {
		t = edgeT(c.Nodes[lo].Iso, c.Nodes[hi].Iso, level)
	}
	p := c.CornerPos(lo)
	axis := 1
	switch edgeOrientation(e) {
	case alongX:
		axis = 0
	case alongZ:
		axis = 2
	}
	p[axis] += t
	return edgeVertex{
		pos:      p,
		t:        t,
		material: max(c.Nodes[lo].Material, c.Nodes[hi].Material),
	}
}

// edgeT returns the interpolation parameter of level between densities a and
// b, clamped to [0,1]. Equal densities give the midpoint.
func edgeT(a, b, level float32) float32 {
	d := b - a
	if d == 0 {
		return 0.5
	}
	t := (level - a) / d
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// lerpLevel returns the point between p and q where the density crosses level.
func lerpLevel(p, q mgl32.Vec3, a, b, level float32) mgl32.Vec3 {
	return p.Add(q.Sub(p).Mul(edgeT(a, b, level)))
}

// CornerOffset returns the offset of corner i from the cell's minimum corner.
func CornerOffset(i int) [3]int {
	return cornerOffsets[i]
}
