package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mc-terrain/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	// ErrChunkExists is returned when creating a chunk over an occupied coordinate.
	ErrChunkExists = errors.New("world: chunk already exists")
	// ErrChunkNotFound is returned when a coordinate holds no chunk.
	ErrChunkNotFound = errors.New("world: chunk not found")
)

// ChunkMap owns every chunk and resolves node lookups across chunk borders.
//
// Two locks are involved. mu guards the coordinate index. data guards node
// contents: readers (meshing, raycast, save) hold it shared through View,
// writers (edits, generation) hold it exclusively through Update.
type ChunkMap struct {
	sizeX, sizeY, sizeZ int

	chunks   map[ChunkCoord]*Chunk
	mu       sync.RWMutex
	modCount uint64 // Increases on any chunk add/remove

	data sync.RWMutex
}

// NewChunkMap creates an empty map of chunks with the given node dimensions.
func NewChunkMap(sizeX, sizeY, sizeZ int) *ChunkMap {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		panic("world: chunk dimensions must be positive")
	}
	return &ChunkMap{
		sizeX:  sizeX,
		sizeY:  sizeY,
		sizeZ:  sizeZ,
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// ChunkSize returns the node dimensions shared by all chunks.
func (m *ChunkMap) ChunkSize() (int, int, int) {
	return m.sizeX, m.sizeY, m.sizeZ
}

// CreateChunk allocates an empty chunk at pos. It fails with ErrChunkExists
// and leaves the existing chunk untouched when pos is occupied.
func (m *ChunkMap) CreateChunk(pos ChunkCoord) (*Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chunks[pos]; ok {
		logger.Log.Warn("chunk already exists", zap.Stringer("pos", pos))
		return nil, fmt.Errorf("create %v: %w", pos, ErrChunkExists)
	}
	c := NewChunk(pos, m.sizeX, m.sizeY, m.sizeZ)
	m.chunks[pos] = c
	m.modCount++
	m.flagNeighbours(pos)
	return c, nil
}

// GetChunk returns the chunk at pos.
func (m *ChunkMap) GetChunk(pos ChunkCoord) (*Chunk, bool) {
	m.mu.RLock()
	c, ok := m.chunks[pos]
	m.mu.RUnlock()
	return c, ok
}

// HasChunk checks if a chunk exists at pos.
func (m *ChunkMap) HasChunk(pos ChunkCoord) bool {
	_, ok := m.GetChunk(pos)
	return ok
}

// Len returns the number of chunks.
func (m *ChunkMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// ModCount returns the current modification count of the chunk map.
func (m *ChunkMap) ModCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modCount
}

// Chunks returns all chunks ordered by coordinate.
func (m *ChunkMap) Chunks() []*Chunk {
	m.mu.RLock()
	out := make([]*Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Coord.Less(out[j].Coord) })
	return out
}

// DestroyChunk removes the chunk at pos in one step: persist (when non-nil
// and the chunk is dirty) sees the complete grid, then the grid is released.
// No reader or writer can observe the chunk between those two steps.
func (m *ChunkMap) DestroyChunk(pos ChunkCoord, persist func(*Chunk) error) error {
	m.data.Lock()
	defer m.data.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[pos]
	if !ok {
		logger.Log.Warn("destroy of missing chunk", zap.Stringer("pos", pos))
		return fmt.Errorf("destroy %v: %w", pos, ErrChunkNotFound)
	}
	if persist != nil && c.IsDirty() {
		if err := persist(c); err != nil {
			return fmt.Errorf("destroy %v: %w", pos, err)
		}
		c.SetClean()
	}
	delete(m.chunks, pos)
	m.modCount++
	m.flagNeighbours(pos)
	c.release()
	return nil
}

// discard removes c without persisting it. Callers hold Update and c must not
// be visible to other goroutines yet.
func (m *ChunkMap) discard(c *Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[c.Coord] != c {
		return
	}
	delete(m.chunks, c.Coord)
	m.modCount++
	m.flagNeighbours(c.Coord)
	c.release()
}

// flagNeighbours marks the 26 chunks around pos for re-meshing. Their border
// cells and vertex normals read nodes of pos when stitching. Callers hold mu.
func (m *ChunkMap) flagNeighbours(pos ChunkCoord) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				if nb, ok := m.chunks[pos.Add(dx, dy, dz)]; ok {
					nb.SetNeedsMesh(true)
				}
			}
		}
	}
}

// View runs fn with shared access to node data.
func (m *ChunkMap) View(fn func()) {
	m.data.RLock()
	defer m.data.RUnlock()
	fn()
}

// Update runs fn with exclusive access to node data.
func (m *ChunkMap) Update(fn func()) {
	m.data.Lock()
	defer m.data.Unlock()
	fn()
}

// ResolveNode returns the node addressed by local coordinates relative to c,
// following the offset into a neighbouring chunk when it leaves c's bounds.
// The owning chunk is returned alongside. ok is false when that chunk is
// missing.
func (m *ChunkMap) ResolveNode(c *Chunk, x, y, z int) (n *Node, owner *Chunk, ok bool) {
	if x >= 0 && x < m.sizeX && y >= 0 && y < m.sizeY && z >= 0 && z < m.sizeZ {
		return c.nodes.Ptr(x, y, z), c, true
	}
	pos := c.Coord.Add(floorDiv(x, m.sizeX), floorDiv(y, m.sizeY), floorDiv(z, m.sizeZ))
	owner, ok = m.GetChunk(pos)
	if !ok {
		return nil, nil, false
	}
	return owner.nodes.Ptr(mod(x, m.sizeX), mod(y, m.sizeY), mod(z, m.sizeZ)), owner, true
}

// NodeAt is the value form of ResolveNode.
func (m *ChunkMap) NodeAt(c *Chunk, x, y, z int) (Node, bool) {
	n, _, ok := m.ResolveNode(c, x, y, z)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// ChunkOf returns the chunk coordinate containing the map-frame cell (x, y, z)
// and the cell's local index within that chunk.
func (m *ChunkMap) ChunkOf(x, y, z int) (ChunkCoord, [3]int) {
	return ChunkCoord{
			X: floorDiv(x, m.sizeX),
			Y: floorDiv(y, m.sizeY),
			Z: floorDiv(z, m.sizeZ),
		}, [3]int{
			mod(x, m.sizeX),
			mod(y, m.sizeY),
			mod(z, m.sizeZ),
		}
}

// LocateVoxel maps a point in the map frame to its chunk and local cell.
func (m *ChunkMap) LocateVoxel(p mgl32.Vec3) (ChunkCoord, [3]int) {
	cell := FloorVec(p)
	return m.ChunkOf(cell[0], cell[1], cell[2])
}
