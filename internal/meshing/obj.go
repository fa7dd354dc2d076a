package meshing

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes meshes as one Wavefront OBJ object per chunk, in the map
// frame. Faces are written with reversed winding so OBJ viewers, which expect
// counter-clockwise outward faces, show the outside of the surface.
func WriteOBJ(w io.Writer, meshes ...*Mesh) error {
	bw := bufio.NewWriter(w)
	base, nbase := 1, 1
	for _, m := range meshes {
		if m == nil || m.Empty() {
			continue
		}
		fmt.Fprintf(bw, "o chunk_%d_%d_%d\n", m.Coord.X, m.Coord.Y, m.Coord.Z)
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
		}
		hasNormals := len(m.Normals) == len(m.Vertices)
		if hasNormals {
			for _, n := range m.Normals {
				// stored normals point inward
				fmt.Fprintf(bw, "vn %g %g %g\n", -n[0], -n[1], -n[2])
			}
		}
		for i := 0; i+2 < len(m.Triangles); i += 3 {
			a := base + int(m.Triangles[i])
			b := base + int(m.Triangles[i+1])
			c := base + int(m.Triangles[i+2])
			if hasNormals {
				na := nbase + int(m.Triangles[i])
				nb := nbase + int(m.Triangles[i+1])
				nc := nbase + int(m.Triangles[i+2])
				fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, na, c, nc, b, nb)
			} else {
				fmt.Fprintf(bw, "f %d %d %d\n", a, c, b)
			}
		}
		base += len(m.Vertices)
		if hasNormals {
			nbase += len(m.Normals)
		}
	}
	return bw.Flush()
}
