package terrain

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"mc-terrain/internal/config"
	"mc-terrain/internal/meshing"
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Chunk.Size = []int{8, 8, 8}
	cfg.World.Count = []int{2, 1, 2}
	cfg.World.Generator = "flat"
	cfg.World.BaseHeight = 3
	cfg.Workers = 2
	cfg.Storage.Driver = driver
	switch driver {
	case "file":
		cfg.Storage.Path = t.TempDir()
	case "sqlite":
		cfg.Storage.Path = filepath.Join(t.TempDir(), "terrain.db")
	}
	return cfg
}

func newTestSession(t *testing.T, cfg config.Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionBuildAndMesh(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "none"))
	stats, err := s.CreateChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 4 || stats.Generated != 4 {
		t.Fatalf("stats = %+v", stats)
	}
	n, err := s.MeshAll(ctx)
	if err != nil || n != 4 {
		t.Fatalf("meshed %d, err %v", n, err)
	}
	for _, m := range s.Meshes() {
		if m.Empty() {
			t.Fatalf("chunk %v has an empty mesh", m.Coord)
		}
		for _, v := range m.Vertices {
			if v.Y() != 3.5 {
				t.Fatalf("vertex %v off the flat surface", v)
			}
		}
	}
	if n, _ := s.MeshDirty(ctx); n != 0 {
		t.Fatalf("MeshDirty rebuilt %d clean chunks", n)
	}
}

func TestSessionSculpt(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "none"))
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshAll(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Mesh(world.ChunkCoord{})

	s.Brush.SetRates(1, 1)
	hit, touched, err := s.Sculpt(ctx, mgl32.Vec3{4.2, 7.5, 4.3}, mgl32.Vec3{0, -1, 0}, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !hit.Hit || len(touched) == 0 {
		t.Fatalf("sculpt missed: %+v %v", hit, touched)
	}
	after, _ := s.Mesh(world.ChunkCoord{})
	if after == before {
		t.Fatalf("edited chunk was not re-meshed")
	}
	lowest := float32(3.5)
	for _, v := range after.Vertices {
		lowest = min(lowest, v.Y())
	}
	if lowest >= 3.5 {
		t.Fatalf("no pit carved below the surface")
	}

	miss, touched, err := s.Sculpt(ctx, mgl32.Vec3{4, 7.5, 4}, mgl32.Vec3{0, 1, 0}, true, 1)
	if err != nil || miss.Hit || touched != nil {
		t.Fatalf("upward sculpt: %+v %v %v", miss, touched, err)
	}
}

func TestSessionPersistRoundTrip(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)
			cfg.World.Generator = "perlin"
			cfg.World.NoiseScale = 0.2

			s, err := NewSession(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.CreateChunks(ctx); err != nil {
				t.Fatal(err)
			}
			c, _ := s.Map.GetChunk(world.ChunkCoord{X: 1})
			c.SetNode(1, 2, 3, world.Node{Iso: 0.875, Material: 9})
			want := append([]world.Node(nil), c.Nodes().Cells()...)

			saved, err := s.SaveAll()
			if err != nil || saved != 4 {
				t.Fatalf("saved %d, err %v", saved, err)
			}
			if saved, _ := s.SaveAll(); saved != 0 {
				t.Fatalf("second save wrote %d clean chunks", saved)
			}
			if err := s.Close(); err != nil {
				t.Fatal(err)
			}

			s2 := newTestSession(t, cfg)
			stats, err := s2.CreateChunks(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if stats.Loaded != 4 {
				t.Fatalf("stats = %+v", stats)
			}
			c2, _ := s2.Map.GetChunk(world.ChunkCoord{X: 1})
			for i, n := range c2.Nodes().Cells() {
				if n != want[i] {
					t.Fatalf("node %d = %+v, want %+v", i, n, want[i])
				}
			}
		})
	}
}

func TestSessionChunkState(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "none"))
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshAll(ctx); err != nil {
		t.Fatal(err)
	}
	pos := world.ChunkCoord{Z: 1}
	if err := s.SetChunkState(ctx, pos, world.StateDisabled); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Mesh(pos); ok {
		t.Fatalf("disabled chunk kept its mesh")
	}
	if n, _ := s.MeshAll(ctx); n != 3 {
		t.Fatalf("meshed %d chunks, want 3 active", n)
	}
	if err := s.SetChunkState(ctx, pos, world.StateActive); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Mesh(pos); !ok {
		t.Fatalf("re-activated chunk has no mesh")
	}
	if err := s.SetChunkState(ctx, world.ChunkCoord{X: 9}, world.StateActive); err == nil {
		t.Fatalf("state change on a missing chunk succeeded")
	}
}

func TestSessionDestroy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "file")
	s := newTestSession(t, cfg)
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.DestroyAll(); err != nil {
		t.Fatal(err)
	}
	if s.Map.Len() != 0 || len(s.Meshes()) != 0 {
		t.Fatalf("chunks or meshes left after DestroyAll")
	}
	// destroyed chunks were persisted because they were freshly generated
	stats, err := s.CreateChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Loaded != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}

func maxVertexX(m *meshing.Mesh) float32 {
	best := float32(-1)
	for _, v := range m.Vertices {
		best = max(best, v.X())
	}
	return best
}

func TestSessionNeighbourRemeshOnDestroyAndCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "none"))
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshAll(ctx); err != nil {
		t.Fatal(err)
	}
	origin := world.ChunkCoord{}
	m, _ := s.Mesh(origin)
	if got := maxVertexX(m); got != 8 {
		t.Fatalf("stitched mesh reaches x=%v, want 8", got)
	}

	if err := s.DestroyChunk(world.ChunkCoord{X: 1}); err != nil {
		t.Fatal(err)
	}
	n, err := s.MeshDirty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatalf("MeshDirty rebuilt nothing after a neighbour was destroyed")
	}
	m, _ = s.Mesh(origin)
	if got := maxVertexX(m); got > 7 {
		t.Fatalf("mesh still reads the destroyed chunk: x=%v", got)
	}

	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshDirty(ctx); err != nil {
		t.Fatal(err)
	}
	m, _ = s.Mesh(origin)
	if got := maxVertexX(m); got != 8 {
		t.Fatalf("seam not closed after the neighbour came back: x=%v", got)
	}
}

func TestSessionStateChangesDuringMeshing(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "none"))
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	pos := world.ChunkCoord{X: 1}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := s.MeshAll(ctx); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			state := world.StateInactive
			if i%2 == 1 {
				state = world.StateActive
			}
			if err := s.SetChunkState(ctx, pos, state); err != nil {
				t.Error(err)
				return
			}
		}
		if err := s.SetChunkState(ctx, pos, world.StateInactive); err != nil {
			t.Error(err)
		}
	}()
	wg.Wait()

	if _, ok := s.Mesh(pos); ok {
		t.Fatalf("inactive chunk kept a mesh")
	}
}

func TestSessionReload(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t, "file"))
	if _, err := s.CreateChunks(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MeshAll(ctx); err != nil {
		t.Fatal(err)
	}
	s.Brush.SetRates(1, 1)
	if hit, _, err := s.Sculpt(ctx, mgl32.Vec3{4.2, 7.5, 4.3}, mgl32.Vec3{0, -1, 0}, false, 1); err != nil || !hit.Hit {
		t.Fatalf("sculpt: %+v %v", hit, err)
	}
	c, _ := s.Map.GetChunk(world.ChunkCoord{})
	if n, _ := c.Node(4, 2, 4); n.Iso != 1 {
		t.Fatalf("sculpt did not carve: %v", n.Iso)
	}

	n, err := s.Reload(ctx)
	if err != nil || n != 4 {
		t.Fatalf("reloaded %d, err %v", n, err)
	}
	if node, _ := c.Node(4, 2, 4); node.Iso != 0 {
		t.Fatalf("edit survived reload: %v", node.Iso)
	}
	if c.IsDirty() {
		t.Fatalf("reloaded chunk is dirty")
	}
	m, _ := s.Mesh(world.ChunkCoord{})
	for _, v := range m.Vertices {
		if v.Y() != 3.5 {
			t.Fatalf("mesh not rebuilt after reload: vertex %v", v)
		}
	}
}

func TestNewGenerator(t *testing.T) {
	for _, name := range []string{"perlin", "layered", "flat"} {
		if _, err := NewGenerator(config.WorldConfig{Generator: name, NoiseScale: 1}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := NewGenerator(config.WorldConfig{Generator: "voronoi"}); err == nil {
		t.Errorf("unknown generator accepted")
	}
}
