// Package terrain wires chunk storage, generation, meshing, raycasting and
// editing into one running terrain.
package terrain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mc-terrain/internal/config"
	"mc-terrain/internal/editing"
	"mc-terrain/internal/logger"
	"mc-terrain/internal/meshing"
	"mc-terrain/internal/physics"
	"mc-terrain/internal/profiling"
	"mc-terrain/internal/storage"
	"mc-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Session owns a ChunkMap and everything that reads or writes it.
type Session struct {
	Config    config.Config
	Map       *world.ChunkMap
	Store     storage.Store // nil when persistence is off
	Generator world.Generator
	Streamer  *world.Streamer
	Mesher    *meshing.Mesher
	Pool      *meshing.WorkerPool
	Raycaster *physics.Raycaster
	Editor    *editing.Editor
	Brush     *config.Brush

	mu     sync.RWMutex
	meshes map[world.ChunkCoord]*meshing.Mesh
}

// NewGenerator builds the density generator named in cfg.
func NewGenerator(cfg config.WorldConfig) (world.Generator, error) {
	switch cfg.Generator {
	case "perlin":
		return world.NewPerlinGenerator(cfg.Seed, cfg.NoiseScale), nil
	case "layered":
		return world.NewLayeredGenerator(cfg.Seed, cfg.BaseHeight), nil
	case "flat":
		return world.FlatGenerator{Height: cfg.BaseHeight}, nil
	}
	return nil, fmt.Errorf("terrain: unknown generator %q", cfg.Generator)
}

// NewSession opens the configured store and builds an empty terrain.
func NewSession(cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.Compress)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.World)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return newSession(cfg, store, gen), nil
}

func newSession(cfg config.Config, store storage.Store, gen world.Generator) *Session {
	sx, sy, sz := cfg.ChunkSize()
	m := world.NewChunkMap(sx, sy, sz)
	opts := meshing.Options{
		SurfaceLevel: cfg.Mesh.SurfaceLevel,
		Smooth:       cfg.Mesh.Smooth,
		Stitch:       cfg.Mesh.Stitch,
		Normals:      cfg.Mesh.Normals,
		Materials:    cfg.Mesh.Materials,
	}
	mesher := meshing.NewMesher(m, opts)

	var loader world.Loader
	if store != nil {
		loader = store
	}
	workers := cfg.Workers
	poolWorkers := workers
	if poolWorkers <= 0 {
		poolWorkers = 4
	}
	return &Session{
		Config:    cfg,
		Map:       m,
		Store:     store,
		Generator: gen,
		Streamer:  world.NewStreamer(m, gen, loader, workers),
		Mesher:    mesher,
		Pool:      meshing.NewWorkerPool(m, mesher, poolWorkers, 64),
		Raycaster: physics.NewRaycaster(m, opts.SurfaceLevel, opts.Smooth),
		Editor:    editing.NewEditor(m),
		Brush:     config.NewBrush(cfg.Edit),
		meshes:    make(map[world.ChunkCoord]*meshing.Mesh),
	}
}

// CreateChunks creates the configured box of chunks, loading stored data
// where present and generating the rest.
func (s *Session) CreateChunks(ctx context.Context) (world.PopulateStats, error) {
	n := s.Config.World.Count
	stats, err := s.Streamer.FillBox(ctx, world.ChunkCoord{}, world.ChunkCoord{X: n[0] - 1, Y: n[1] - 1, Z: n[2] - 1})
	if err != nil {
		return stats, err
	}
	logger.Log.Info("chunks ready",
		zap.Int("created", stats.Created),
		zap.Int("loaded", stats.Loaded),
		zap.Int("generated", stats.Generated))
	return stats, nil
}

// Regenerate refills every chunk from the generator and re-meshes.
func (s *Session) Regenerate(ctx context.Context) error {
	if err := s.Streamer.Regenerate(ctx); err != nil {
		return err
	}
	_, err := s.MeshAll(ctx)
	return err
}

// Reload re-reads every resident chunk from the store, discarding unsaved
// edits, and re-meshes the reloaded chunks.
func (s *Session) Reload(ctx context.Context) (int, error) {
	n, err := s.Streamer.Reload(ctx)
	if err != nil {
		return n, err
	}
	logger.Log.Info("chunks reloaded", zap.Int("count", n))
	_, err = s.MeshDirty(ctx)
	return n, err
}

// MeshAll rebuilds the meshes of all active chunks.
func (s *Session) MeshAll(ctx context.Context) (int, error) {
	return s.mesh(ctx, false)
}

// MeshDirty rebuilds the meshes of active chunks flagged as stale.
func (s *Session) MeshDirty(ctx context.Context) (int, error) {
	return s.mesh(ctx, true)
}

func (s *Session) mesh(ctx context.Context, onlyStale bool) (int, error) {
	defer profiling.Track("terrain.Mesh")()
	var todo []*world.Chunk
	s.Map.View(func() {
		for _, c := range s.Map.Chunks() {
			if c.State() != world.StateActive {
				continue
			}
			if onlyStale && !c.NeedsMesh() {
				continue
			}
			// cleared before meshing so an edit racing the job flags it again
			c.SetNeedsMesh(false)
			todo = append(todo, c)
		}
	})
	if len(todo) == 0 {
		return 0, nil
	}

	results, err := s.Pool.MeshAll(ctx, todo)
	if err != nil {
		for _, c := range todo {
			c.SetNeedsMesh(true)
		}
		return 0, err
	}

	var errs []error
	// stored under View so a concurrent state change or destroy either
	// happens first and is seen here, or happens after and drops the mesh
	s.Map.View(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, r := range results {
			if r.Error != nil {
				errs = append(errs, fmt.Errorf("mesh %v: %w", r.Coord, r.Error))
				continue
			}
			c := todo[i]
			if cur, ok := s.Map.GetChunk(r.Coord); !ok || cur != c || c.State() != world.StateActive {
				continue
			}
			s.meshes[r.Coord] = r.Mesh
		}
	})
	logger.Log.Debug("chunks meshed", zap.Int("count", len(results)-len(errs)))
	return len(results) - len(errs), errors.Join(errs...)
}

// Mesh returns the current mesh of the chunk at pos.
func (s *Session) Mesh(pos world.ChunkCoord) (*meshing.Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[pos]
	return m, ok
}

// Meshes returns all current meshes ordered by chunk coordinate.
func (s *Session) Meshes() []*meshing.Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*meshing.Mesh, 0, len(s.meshes))
	for _, c := range s.Map.Chunks() {
		if m, ok := s.meshes[c.Coord]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Raycast returns the first surface hit along the ray.
func (s *Session) Raycast(origin, dir mgl32.Vec3) physics.RaycastResult {
	return s.Raycaster.Raycast(origin, dir)
}

// Sculpt casts a ray and, on a hit, applies the brush for dt seconds at the
// hit point, then re-meshes the touched chunks.
func (s *Session) Sculpt(ctx context.Context, origin, dir mgl32.Vec3, add bool, dt float32) (physics.RaycastResult, []world.ChunkCoord, error) {
	hit := s.Raycast(origin, dir)
	if !hit.Hit {
		return hit, nil, nil
	}
	local := hit.Point.Sub(hit.Chunk.Origin())
	touched := s.Editor.Modify(hit.Chunk, local, s.Brush.Amount(add, dt), s.Brush.Radius())
	if len(touched) == 0 {
		return hit, nil, nil
	}
	if _, err := s.MeshDirty(ctx); err != nil {
		return hit, touched, err
	}
	return hit, touched, nil
}

// SetChunkState changes a chunk's lifecycle state, dropping its mesh when it
// leaves the active state and rebuilding it when it becomes active.
func (s *Session) SetChunkState(ctx context.Context, pos world.ChunkCoord, state world.ChunkState) error {
	c, ok := s.Map.GetChunk(pos)
	if !ok {
		return fmt.Errorf("set state %v: %w", pos, world.ErrChunkNotFound)
	}
	var drop bool
	s.Map.Update(func() {
		drop = c.SetState(state)
	})
	if drop {
		s.mu.Lock()
		delete(s.meshes, pos)
		s.mu.Unlock()
	}
	if state == world.StateActive {
		_, err := s.MeshDirty(ctx)
		return err
	}
	return nil
}

// SaveAll writes every dirty chunk to the store and returns how many were written.
func (s *Session) SaveAll() (int, error) {
	if s.Store == nil {
		return 0, nil
	}
	defer profiling.Track("terrain.SaveAll")()
	saved := 0
	var errs []error
	s.Map.View(func() {
		for _, c := range s.Map.Chunks() {
			if !c.IsDirty() {
				continue
			}
			if err := s.Store.Save(c); err != nil {
				errs = append(errs, err)
				continue
			}
			c.SetClean()
			saved++
		}
	})
	logger.Log.Info("chunks saved", zap.Int("count", saved), zap.Int("failed", len(errs)))
	return saved, errors.Join(errs...)
}

// DestroyChunk saves the chunk if dirty, then removes it and its mesh.
func (s *Session) DestroyChunk(pos world.ChunkCoord) error {
	var persist func(*world.Chunk) error
	if s.Store != nil {
		persist = s.Store.Save
	}
	if err := s.Map.DestroyChunk(pos, persist); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.meshes, pos)
	s.mu.Unlock()
	return nil
}

// DestroyAll destroys every chunk.
func (s *Session) DestroyAll() error {
	var errs []error
	for _, c := range s.Map.Chunks() {
		if err := s.DestroyChunk(c.Coord); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops the workers and closes the store. Unsaved changes are lost;
// call SaveAll or DestroyAll first.
func (s *Session) Close() error {
	s.Pool.Shutdown()
	s.Streamer.Close()
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
