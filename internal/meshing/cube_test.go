package meshing

import (
	"testing"

	"mc-terrain/internal/world"
)

func maskCube(mask int, inside float32) Cube {
	var c Cube
	for i := range c.Nodes {
		c.Nodes[i] = world.Node{Iso: 1}
		if mask&(1<<i) != 0 {
			c.Nodes[i].Iso = inside
		}
	}
	return c
}

func TestCubeIndexAllConfigurations(t *testing.T) {
	const level = 0.5
	for mask := 0; mask < 256; mask++ {
		for _, inside := range []float32{0, level} {
			c := maskCube(mask, inside)
			if got := c.Index(level); int(got) != mask {
				t.Fatalf("mask %08b with inside=%v: Index = %08b", mask, inside, got)
			}
		}

		c := maskCube(mask, 0)
		var mesh Mesh
		n := ProcessCube(&c, level, true, &mesh)
		want := 0
		for want < len(triTable[mask]) && triTable[mask][want] != -1 {
			want++
		}
		if n != want/3 {
			t.Fatalf("mask %08b: %d triangles, want %d", mask, n, want/3)
		}
		if (mask == 0 || mask == 255) && n != 0 {
			t.Fatalf("uniform mask %08b produced %d triangles", mask, n)
		}
		if len(mesh.Vertices) != 3*n || len(mesh.Materials) != 3*n {
			t.Fatalf("mask %08b: %d vertices for %d triangles", mask, len(mesh.Vertices), n)
		}
	}
}

func TestCubeIndexLevelIsInside(t *testing.T) {
	tests := []struct {
		iso   float32
		level float32
		set   bool
	}{
		{0.5, 0.5, true},
		{0.49, 0.5, true},
		{0.51, 0.5, false},
		{0, 0, true},
		{1, 1, true},
	}
	for _, tt := range tests {
		var c Cube
		for i := range c.Nodes {
			c.Nodes[i].Iso = tt.iso
		}
		want := uint8(0)
		if tt.set {
			want = 255
		}
		if got := c.Index(tt.level); got != want {
			t.Errorf("iso %v level %v: Index = %d, want %d", tt.iso, tt.level, got, want)
		}
	}
}
