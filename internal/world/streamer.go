package world

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"mc-terrain/internal/grid"
	"mc-terrain/internal/logger"
	"mc-terrain/internal/profiling"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Loader reads persisted node data for a chunk. found is false when nothing
// was stored for pos.
type Loader interface {
	Load(pos ChunkCoord, nodes *grid.Grid[Node]) (found bool, err error)
}

// Streamer creates chunks and fills them from storage or the generator.
// Chunks are filled in parallel; each chunk depends only on its coordinate.
type Streamer struct {
	m      *ChunkMap
	gen    Generator
	loader Loader
	pool   pond.Pool
}

// NewStreamer creates a streamer. loader may be nil, in which case every
// chunk is generated. workers <= 0 uses one worker per CPU.
func NewStreamer(m *ChunkMap, gen Generator, loader Loader, workers int) *Streamer {
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 1)
	}
	return &Streamer{
		m:      m,
		gen:    gen,
		loader: loader,
		pool:   pond.NewPool(workers),
	}
}

// Close stops the population workers.
func (s *Streamer) Close() {
	s.pool.StopAndWait()
}

// PopulateStats reports how the chunks of a Populate call were filled.
type PopulateStats struct {
	Created   int
	Loaded    int
	Generated int
}

// Populate creates every missing chunk in coords and fills it from the loader
// or, when nothing is stored, from the generator. Existing chunks are left as
// they are. When any fill fails, every chunk created by this call is removed
// again so a later Populate starts from scratch.
func (s *Streamer) Populate(ctx context.Context, coords []ChunkCoord) (PopulateStats, error) {
	defer profiling.Track("world.Populate")()

	var (
		stats   PopulateStats
		created []*Chunk
		loaded  []bool
		err     error
	)
	// creation and filling happen under the data lock so readers never see
	// a chunk before it holds its nodes
	s.m.Update(func() {
		for _, pos := range coords {
			if s.m.HasChunk(pos) {
				continue
			}
			c, cerr := s.m.CreateChunk(pos)
			if errors.Is(cerr, ErrChunkExists) {
				continue
			}
			if cerr != nil {
				err = cerr
				break
			}
			created = append(created, c)
		}
		if err == nil {
			loaded = make([]bool, len(created))
			err = s.run(ctx, len(created), func(i int) error {
				ok, ferr := s.fill(created[i])
				loaded[i] = ok
				return ferr
			})
		}
		if err != nil {
			for _, c := range created {
				s.m.discard(c)
			}
		}
	})
	if err != nil {
		return PopulateStats{}, fmt.Errorf("populate: %w", err)
	}
	stats.Created = len(created)
	for _, ok := range loaded {
		if ok {
			stats.Loaded++
		} else {
			stats.Generated++
		}
	}
	logger.Log.Debug("chunks populated",
		zap.Int("created", stats.Created),
		zap.Int("loaded", stats.Loaded),
		zap.Int("generated", stats.Generated))
	return stats, nil
}

// run executes fn(0..n-1) on the pool and waits for every task to return,
// including after a failure, so no task outlives the caller's lock. Tasks not
// yet started when ctx is done are skipped. The first error is returned.
func (s *Streamer) run(ctx context.Context, n int, fn func(i int) error) error {
	tasks := make([]pond.Task, n)
	for i := range tasks {
		i := i
		tasks[i] = s.pool.SubmitErr(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	var first error
	for _, t := range tasks {
		if err := t.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fill loads c from storage, falling back to the generator.
func (s *Streamer) fill(c *Chunk) (loaded bool, err error) {
	if s.loader != nil {
		found, err := s.loader.Load(c.Coord, c.nodes)
		if err != nil {
			return false, fmt.Errorf("load %v: %w", c.Coord, err)
		}
		if found {
			c.SetClean()
			c.SetNeedsMesh(true)
			return true, nil
		}
	}
	s.gen.Generate(c.Coord, c.nodes)
	// generated data has never been written out
	c.MarkDirty()
	return false, nil
}

// FillBox populates every chunk coordinate in the inclusive box [lo, hi].
func (s *Streamer) FillBox(ctx context.Context, lo, hi ChunkCoord) (PopulateStats, error) {
	var coords []ChunkCoord
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				coords = append(coords, ChunkCoord{X: x, Y: y, Z: z})
			}
		}
	}
	return s.Populate(ctx, coords)
}

// Regenerate refills every chunk in the map from the generator.
func (s *Streamer) Regenerate(ctx context.Context) error {
	defer profiling.Track("world.Regenerate")()
	chunks := s.m.Chunks()
	var err error
	s.m.Update(func() {
		err = s.run(ctx, len(chunks), func(i int) error {
			c := chunks[i]
			if c.nodes == nil {
				return nil
			}
			s.gen.Generate(c.Coord, c.nodes)
			c.MarkDirty()
			return nil
		})
	})
	return err
}

// Reload re-reads every resident chunk from the loader, discarding unsaved
// changes. Chunks with nothing stored keep their nodes. It returns how many
// chunks were reloaded.
func (s *Streamer) Reload(ctx context.Context) (int, error) {
	if s.loader == nil {
		return 0, nil
	}
	defer profiling.Track("world.Reload")()
	chunks := s.m.Chunks()
	found := make([]bool, len(chunks))
	var err error
	s.m.Update(func() {
		err = s.run(ctx, len(chunks), func(i int) error {
			c := chunks[i]
			if c.nodes == nil {
				return nil
			}
			// load into a scratch grid so a failed read leaves c intact
			sx, sy, sz := c.nodes.Size()
			tmp := grid.New[Node](sx, sy, sz)
			ok, lerr := s.loader.Load(c.Coord, tmp)
			if lerr != nil {
				return fmt.Errorf("reload %v: %w", c.Coord, lerr)
			}
			if !ok {
				return nil
			}
			c.nodes.CopyFrom(tmp)
			c.SetClean()
			c.SetNeedsMesh(true)
			found[i] = true
			return nil
		})
	})
	n := 0
	for _, ok := range found {
		if ok {
			n++
		}
	}
	return n, err
}
