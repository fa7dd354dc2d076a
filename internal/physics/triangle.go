package physics

import "github.com/go-gl/mathgl/mgl32"

// Epsilon is the tolerance of the ray/triangle test.
const Epsilon = 1e-7

// IntersectTriangle returns the ray parameter t at which origin+t*dir crosses
// triangle (a, b, c) using the Möller–Trumbore test. Both faces are hit;
// only intersections with t > Epsilon count.
func IntersectTriangle(origin, dir, a, b, c mgl32.Vec3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	h := dir.Cross(e2)
	det := e1.Dot(h)
	if det > -Epsilon && det < Epsilon {
		return 0, false // parallel
	}
	f := 1 / det
	s := origin.Sub(a)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := f * e2.Dot(q)
	if t <= Epsilon {
		return 0, false
	}
	return t, true
}
