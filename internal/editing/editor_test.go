package editing

import (
	"testing"

	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

func filledMap(t *testing.T, size int, iso float32, coords ...world.ChunkCoord) *world.ChunkMap {
	t.Helper()
	m := world.NewChunkMap(size, size, size)
	for _, pos := range coords {
		c, err := m.CreateChunk(pos)
		if err != nil {
			t.Fatal(err)
		}
		c.Nodes().Fill(world.Node{Iso: iso})
	}
	return m
}

func TestModifySphere(t *testing.T) {
	m := filledMap(t, 8, 0.5, world.ChunkCoord{})
	c, _ := m.GetChunk(world.ChunkCoord{})
	touched := NewEditor(m).Modify(c, mgl32.Vec3{4, 4, 4}, 0.25, 1.5)
	if len(touched) != 1 || touched[0] != (world.ChunkCoord{}) {
		t.Fatalf("touched = %v", touched)
	}
	tests := []struct {
		x, y, z int
		want    float32
	}{
		{4, 4, 4, 0.75},
		{5, 4, 4, 0.75},
		{5, 5, 4, 0.75}, // sqrt(2) < 1.5
		{5, 5, 5, 0.5},  // sqrt(3) > 1.5
		{6, 4, 4, 0.5},
	}
	for _, tt := range tests {
		n, _ := c.Node(tt.x, tt.y, tt.z)
		if n.Iso != tt.want {
			t.Errorf("(%d,%d,%d) iso = %v, want %v", tt.x, tt.y, tt.z, n.Iso, tt.want)
		}
	}
	if !c.IsDirty() || !c.NeedsMesh() {
		t.Fatalf("edited chunk not flagged")
	}
}

func TestModifyFractionalCentre(t *testing.T) {
	m := filledMap(t, 8, 0.5, world.ChunkCoord{})
	c, _ := m.GetChunk(world.ChunkCoord{})
	NewEditor(m).Modify(c, mgl32.Vec3{4.9, 4, 4}, -0.1, 0.5)
	if n, _ := c.Node(5, 4, 4); !(n.Iso < 0.5) {
		t.Fatalf("nearest node not edited: %v", n.Iso)
	}
	if n, _ := c.Node(4, 4, 4); n.Iso != 0.5 {
		t.Fatalf("node 0.9 away edited: %v", n.Iso)
	}
}

func TestModifyClamps(t *testing.T) {
	m := filledMap(t, 4, 0.9, world.ChunkCoord{})
	c, _ := m.GetChunk(world.ChunkCoord{})
	ed := NewEditor(m)
	ed.Modify(c, mgl32.Vec3{2, 2, 2}, 5, 1)
	if n, _ := c.Node(2, 2, 2); n.Iso != 1 {
		t.Fatalf("iso = %v, want 1", n.Iso)
	}
	ed.Modify(c, mgl32.Vec3{2, 2, 2}, -5, 1)
	if n, _ := c.Node(2, 2, 2); n.Iso != 0 {
		t.Fatalf("iso = %v, want 0", n.Iso)
	}
}

func TestModifyAcrossChunks(t *testing.T) {
	m := filledMap(t, 4, 0.5, world.ChunkCoord{}, world.ChunkCoord{X: 1})
	left, _ := m.GetChunk(world.ChunkCoord{})
	right, _ := m.GetChunk(world.ChunkCoord{X: 1})
	left.SetClean()
	right.SetClean()

	// centre on the last node of the left chunk; the sphere reaches x=4 and x=-1
	touched := NewEditor(m).Modify(left, mgl32.Vec3{3, 1, 1}, 0.3, 1)
	if len(touched) != 2 {
		t.Fatalf("touched = %v, want both chunks", touched)
	}
	if n, _ := right.Node(0, 1, 1); !near(n.Iso, 0.8) {
		t.Fatalf("neighbour node iso = %v", n.Iso)
	}
	if !right.IsDirty() {
		t.Fatalf("neighbour not dirty")
	}
}

func TestModifyMarksLowerNeighbourForMeshing(t *testing.T) {
	m := filledMap(t, 4, 0.5, world.ChunkCoord{}, world.ChunkCoord{X: 1})
	left, _ := m.GetChunk(world.ChunkCoord{})
	right, _ := m.GetChunk(world.ChunkCoord{X: 1})
	left.SetClean()
	left.SetNeedsMesh(false)

	touched := NewEditor(m).Modify(right, mgl32.Vec3{0, 2, 2}, 0.1, 0.5)
	if len(touched) != 2 {
		t.Fatalf("touched = %v", touched)
	}
	if !left.NeedsMesh() {
		t.Fatalf("left chunk reads the edited border node but was not flagged")
	}
	if left.IsDirty() {
		t.Fatalf("left chunk data did not change")
	}
}

func TestModifyMarksNormalReadersForMeshing(t *testing.T) {
	tests := []struct {
		name   string
		edit   world.ChunkCoord
		point  mgl32.Vec3
		reader world.ChunkCoord
	}{
		{"upper neighbour samples last node", world.ChunkCoord{}, mgl32.Vec3{3, 2, 2}, world.ChunkCoord{X: 1}},
		{"lower neighbour samples second node", world.ChunkCoord{X: 1}, mgl32.Vec3{1, 2, 2}, world.ChunkCoord{}},
		{"upper neighbour along z", world.ChunkCoord{}, mgl32.Vec3{2, 2, 3}, world.ChunkCoord{Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := filledMap(t, 4, 0.5, world.ChunkCoord{}, world.ChunkCoord{X: 1}, world.ChunkCoord{Z: 1})
			edited, _ := m.GetChunk(tt.edit)
			reader, _ := m.GetChunk(tt.reader)
			for _, c := range m.Chunks() {
				c.SetClean()
				c.SetNeedsMesh(false)
			}

			touched := NewEditor(m).Modify(edited, tt.point, 0.1, 0.5)
			if len(touched) != 2 {
				t.Fatalf("touched = %v", touched)
			}
			if !reader.NeedsMesh() {
				t.Fatalf("chunk %v reads the edited node but was not flagged", tt.reader)
			}
			if reader.IsDirty() {
				t.Fatalf("chunk %v data did not change", tt.reader)
			}
		})
	}
}

func TestModifyInteriorFlagsNoNeighbour(t *testing.T) {
	m := filledMap(t, 8, 0.5, world.ChunkCoord{}, world.ChunkCoord{X: 1}, world.ChunkCoord{X: -1})
	c, _ := m.GetChunk(world.ChunkCoord{})
	for _, other := range m.Chunks() {
		other.SetNeedsMesh(false)
	}
	touched := NewEditor(m).Modify(c, mgl32.Vec3{4, 4, 4}, 0.1, 1)
	if len(touched) != 1 {
		t.Fatalf("touched = %v", touched)
	}
	for _, other := range m.Chunks() {
		if other != c && other.NeedsMesh() {
			t.Fatalf("chunk %v flagged by an interior edit", other.Coord)
		}
	}
}

func TestModifyMissingNeighbourIsNoop(t *testing.T) {
	m := filledMap(t, 4, 0.5, world.ChunkCoord{})
	c, _ := m.GetChunk(world.ChunkCoord{})
	touched := NewEditor(m).ModifyAt(mgl32.Vec3{0, 0, 0}, 0.2, 2)
	if len(touched) != 1 {
		t.Fatalf("touched = %v", touched)
	}
	if n, _ := c.Node(0, 0, 0); !near(n.Iso, 0.7) {
		t.Fatalf("iso = %v", n.Iso)
	}
	if got := NewEditor(m).ModifyAt(mgl32.Vec3{-10, 0, 0}, 0.2, 2); got != nil {
		t.Fatalf("edit outside the map touched %v", got)
	}
}

func TestModifyDisabledChunk(t *testing.T) {
	m := filledMap(t, 4, 0.5, world.ChunkCoord{})
	c, _ := m.GetChunk(world.ChunkCoord{})
	c.Disable()
	if got := NewEditor(m).Modify(c, mgl32.Vec3{2, 2, 2}, 0.2, 1); got != nil {
		t.Fatalf("disabled chunk edited: %v", got)
	}
}

func near(a, b float32) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
