package world

import (
	"context"
	"errors"
	"testing"

	"mc-terrain/internal/grid"
)

func TestPerlinGeneratorDeterministic(t *testing.T) {
	pos := ChunkCoord{X: 3, Y: -1, Z: 7}
	a := grid.New[Node](8, 8, 8)
	b := grid.New[Node](8, 8, 8)
	NewPerlinGenerator(42, 0.37).Generate(pos, a)
	NewPerlinGenerator(42, 0.37).Generate(pos, b)
	for i, n := range a.Cells() {
		if n != b.Cells()[i] {
			t.Fatalf("cell %d differs: %+v vs %+v", i, n, b.Cells()[i])
		}
		if n.Iso < 0 || n.Iso > 1 {
			t.Fatalf("cell %d iso %v outside [0,1]", i, n.Iso)
		}
		if n.Material != 0 && n.Material != 1 {
			t.Fatalf("cell %d material %d", i, n.Material)
		}
	}

	c := grid.New[Node](8, 8, 8)
	NewPerlinGenerator(43, 0.37).Generate(pos, c)
	same := true
	for i := range a.Cells() {
		if a.Cells()[i] != c.Cells()[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical chunks")
	}
}

func TestPerlinGeneratorContinuousAcrossChunks(t *testing.T) {
	g := NewPerlinGenerator(7, 0.25)
	// a 4-wide chunk at X=1 starts where a 8-wide grid at X=0 reaches x=4
	wide := grid.New[Node](8, 4, 4)
	g.Generate(ChunkCoord{}, wide)
	narrow := grid.New[Node](4, 4, 4)
	g.Generate(ChunkCoord{X: 1}, narrow)
	for y := 0; y < 4; y++ {
		for z := 0; z < 4; z++ {
			a, _ := wide.Get(4, y, z)
			b, _ := narrow.Get(0, y, z)
			if a.Iso != b.Iso {
				t.Fatalf("(%d,%d): %v vs %v", y, z, a.Iso, b.Iso)
			}
		}
	}
}

func TestLayeredGeneratorGround(t *testing.T) {
	g := NewLayeredGenerator(1, 8)
	low := grid.New[Node](8, 8, 8)
	g.Generate(ChunkCoord{Y: -8}, low)
	for i, n := range low.Cells() {
		if n.Iso != 0 {
			t.Fatalf("deep node %d iso = %v, want solid", i, n.Iso)
		}
	}
	high := grid.New[Node](8, 8, 8)
	g.Generate(ChunkCoord{Y: 8}, high)
	for i, n := range high.Cells() {
		if n.Iso != 1 {
			t.Fatalf("sky node %d iso = %v, want empty", i, n.Iso)
		}
	}
}

func TestFlatGenerator(t *testing.T) {
	nodes := grid.New[Node](2, 4, 2)
	FlatGenerator{Height: 1.5, Material: 2}.Generate(ChunkCoord{}, nodes)
	for y := 0; y < 4; y++ {
		n, _ := nodes.Get(0, y, 0)
		want := float32(0)
		if y > 1 {
			want = 1
		}
		if n.Iso != want || n.Material != 2 {
			t.Fatalf("y=%d node %+v", y, n)
		}
	}
}

type mapLoader map[ChunkCoord]float32

func (l mapLoader) Load(pos ChunkCoord, nodes *grid.Grid[Node]) (bool, error) {
	iso, ok := l[pos]
	if !ok {
		return false, nil
	}
	nodes.Fill(Node{Iso: iso})
	return true, nil
}

type failingLoader struct{}

func (failingLoader) Load(ChunkCoord, *grid.Grid[Node]) (bool, error) {
	return false, errors.New("corrupt")
}

func TestStreamerLoadOrGenerate(t *testing.T) {
	m := NewChunkMap(4, 4, 4)
	loader := mapLoader{{X: 1}: 0.3}
	s := NewStreamer(m, FlatGenerator{Height: 2}, loader, 2)
	defer s.Close()

	stats, err := s.FillBox(context.Background(), ChunkCoord{}, ChunkCoord{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("FillBox: %v", err)
	}
	if stats.Created != 4 || stats.Loaded != 1 || stats.Generated != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	c, _ := m.GetChunk(ChunkCoord{X: 1})
	if n, _ := c.Node(2, 2, 2); n.Iso != 0.3 {
		t.Fatalf("loaded chunk iso = %v", n.Iso)
	}
	if c.IsDirty() {
		t.Fatalf("loaded chunk should be clean")
	}
	g, _ := m.GetChunk(ChunkCoord{})
	if !g.IsDirty() {
		t.Fatalf("generated chunk should be dirty")
	}

	again, err := s.FillBox(context.Background(), ChunkCoord{}, ChunkCoord{X: 1, Y: 1})
	if err != nil || again.Created != 0 {
		t.Fatalf("refill created %d chunks, err %v", again.Created, err)
	}
}

func TestStreamerLoaderError(t *testing.T) {
	m := NewChunkMap(2, 2, 2)
	s := NewStreamer(m, FlatGenerator{}, failingLoader{}, 1)
	defer s.Close()
	if _, err := s.Populate(context.Background(), []ChunkCoord{{}}); err == nil {
		t.Fatalf("expected loader error")
	}
}

type flakyLoader struct {
	fail bool
}

func (l *flakyLoader) Load(ChunkCoord, *grid.Grid[Node]) (bool, error) {
	if l.fail {
		return false, errors.New("corrupt")
	}
	return false, nil
}

func TestStreamerFailedPopulateLeavesNoChunks(t *testing.T) {
	m := NewChunkMap(2, 2, 2)
	loader := &flakyLoader{fail: true}
	s := NewStreamer(m, FlatGenerator{Height: 0}, loader, 2)
	defer s.Close()

	coords := []ChunkCoord{{}, {X: 1}, {Y: 1}}
	stats, err := s.Populate(context.Background(), coords)
	if err == nil {
		t.Fatalf("expected loader error")
	}
	if stats != (PopulateStats{}) {
		t.Fatalf("stats after failure = %+v", stats)
	}
	if m.Len() != 0 {
		t.Fatalf("%d chunks left after a failed populate", m.Len())
	}

	loader.fail = false
	stats, err = s.Populate(context.Background(), coords)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 3 || stats.Generated != 3 {
		t.Fatalf("retry stats = %+v", stats)
	}
	c, _ := m.GetChunk(ChunkCoord{})
	if n, _ := c.Node(0, 1, 0); n.Iso != 1 {
		t.Fatalf("retried chunk iso = %v, want generated 1", n.Iso)
	}
}

func TestStreamerCancelledPopulate(t *testing.T) {
	m := NewChunkMap(2, 2, 2)
	s := NewStreamer(m, FlatGenerator{}, nil, 1)
	defer s.Close()
	existing, err := m.CreateChunk(ChunkCoord{X: -1})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Populate(ctx, []ChunkCoord{{}, {X: 1}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if m.Len() != 1 || !m.HasChunk(existing.Coord) {
		t.Fatalf("cancelled populate changed the map: %d chunks", m.Len())
	}
}

func TestStreamerReload(t *testing.T) {
	m := NewChunkMap(2, 2, 2)
	s := NewStreamer(m, FlatGenerator{Height: 10}, mapLoader{{}: 0.25}, 1)
	defer s.Close()
	if _, err := s.Populate(context.Background(), []ChunkCoord{{}, {X: 1}}); err != nil {
		t.Fatal(err)
	}
	stored, _ := m.GetChunk(ChunkCoord{})
	generated, _ := m.GetChunk(ChunkCoord{X: 1})
	stored.SetNode(1, 1, 1, Node{Iso: 0.9})
	generated.SetNode(1, 1, 1, Node{Iso: 0.9})
	stored.SetNeedsMesh(false)

	n, err := s.Reload(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("reloaded %d, err %v", n, err)
	}
	if got, _ := stored.Node(1, 1, 1); got.Iso != 0.25 {
		t.Fatalf("unsaved edit survived reload: %v", got.Iso)
	}
	if stored.IsDirty() || !stored.NeedsMesh() {
		t.Fatalf("reloaded chunk flags: dirty=%v needsMesh=%v", stored.IsDirty(), stored.NeedsMesh())
	}
	if got, _ := generated.Node(1, 1, 1); got.Iso != 0.9 {
		t.Fatalf("chunk with nothing stored changed: %v", got.Iso)
	}
}

func TestStreamerRegenerate(t *testing.T) {
	m := NewChunkMap(2, 2, 2)
	s := NewStreamer(m, FlatGenerator{Height: -10}, mapLoader{{}: 0.5}, 1)
	defer s.Close()
	if _, err := s.Populate(context.Background(), []ChunkCoord{{}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Regenerate(context.Background()); err != nil {
		t.Fatal(err)
	}
	c, _ := m.GetChunk(ChunkCoord{})
	if n, _ := c.Node(0, 0, 0); n.Iso != 1 {
		t.Fatalf("regenerated iso = %v", n.Iso)
	}
}
