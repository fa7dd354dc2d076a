package meshing

import (
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// sample returns the density at map cell (x, y, z) as seen from chunk c.
// Cells outside c are only resolved when stitching.
func (ms *Mesher) sample(c *world.Chunk, x, y, z int) (float32, bool) {
	sx, sy, sz := c.Size()
	lx, ly, lz := x-c.Coord.X*sx, y-c.Coord.Y*sy, z-c.Coord.Z*sz
	if n, ok := c.Nodes().Get(lx, ly, lz); ok {
		return n.Iso, true
	}
	if !ms.opts.Stitch {
		return 0, false
	}
	n, ok := ms.m.NodeAt(c, lx, ly, lz)
	return n.Iso, ok
}

// vertexNormal estimates the surface normal at vertex v on edge e by finding
// where the surface crosses the four edges parallel to e around it, and
// averaging the normals of the four triangles that fan around v.
// Missing samples read as the surface level.
func (ms *Mesher) vertexNormal(c *world.Chunk, cube *Cube, e int, v mgl32.Vec3) mgl32.Vec3 {
	level := ms.opts.SurfaceLevel
	below, above := edgeLow[e], edgeHigh[e]
	if cube.Nodes[below].Iso > level {
		below, above = above, below
	}
	p0 := cornerCell(cube, below)
	p1 := cornerCell(cube, above)
	d0 := cube.Nodes[below].Iso
	d1 := cube.Nodes[above].Iso

	var axisA, axisB [3]int
	switch edgeOrientation(e) {
	case alongY:
		axisA, axisB = [3]int{1, 0, 0}, [3]int{0, 0, 1}
	case alongX:
		axisA, axisB = [3]int{0, 1, 0}, [3]int{0, 0, 1}
	default:
		axisA, axisB = [3]int{1, 0, 0}, [3]int{0, 1, 0}
	}

	side := func(axis [3]int, sign int) mgl32.Vec3 {
		a := addCell(p0, axis, sign)
		b := addCell(p1, axis, sign)
		da, okA := ms.sample(c, a[0], a[1], a[2])
		db, okB := ms.sample(c, b[0], b[1], b[2])
		if !okA {
			da = level
		}
		if !okB {
			db = level
		}
		switch {
		case okA && da > level:
			return lerpLevel(cellVec(p0), cellVec(a), d0, da, level)
		case okB && db > level:
			return lerpLevel(cellVec(b), cellVec(a), db, da, level)
		default:
			return lerpLevel(cellVec(b), cellVec(p1), db, d1, level)
		}
	}

	q0 := side(axisA, -1).Sub(v)
	q1 := side(axisA, 1).Sub(v)
	q2 := side(axisB, -1).Sub(v)
	q3 := side(axisB, 1).Sub(v)

	n := unit(q3.Cross(q1)).
		Add(unit(q0.Cross(q3))).
		Add(unit(q2.Cross(q0))).
		Add(unit(q1.Cross(q2)))
	n = unit(n)

	if p0[0] > p1[0] || p0[1] < p1[1] || p0[2] > p1[2] {
		n = n.Mul(-1)
	}
	return n
}

func cornerCell(cube *Cube, i int) [3]int {
	o := cornerOffsets[i]
	return [3]int{cube.Base[0] + o[0], cube.Base[1] + o[1], cube.Base[2] + o[2]}
}

func addCell(p, axis [3]int, sign int) [3]int {
	return [3]int{p[0] + sign*axis[0], p[1] + sign*axis[1], p[2] + sign*axis[2]}
}

func cellVec(p [3]int) mgl32.Vec3 {
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}

func unit(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}
