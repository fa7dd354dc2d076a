package world

import (
	"sync/atomic"

	"mc-terrain/internal/grid"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkState is the lifecycle state of a chunk.
type ChunkState uint8

const (
	// StateActive chunks are meshed and visible.
	StateActive ChunkState = iota
	// StateInactive chunks keep their data but have no mesh.
	StateInactive
	// StateDisabled chunks are skipped by meshing and editing until enabled.
	StateDisabled
)

func (s ChunkState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDisabled:
		return "disabled"
	}
	return "unknown"
}

// Chunk is a fixed-size block of nodes placed at an integer chunk coordinate.
type Chunk struct {
	Coord ChunkCoord

	nodes      *grid.Grid[Node]
	state      ChunkState
	savedState ChunkState

	dirty     atomic.Bool // node data changed since last save
	needsMesh atomic.Bool
}

// NewChunk allocates a chunk with zeroed nodes.
func NewChunk(coord ChunkCoord, sizeX, sizeY, sizeZ int) *Chunk {
	c := &Chunk{
		Coord: coord,
		nodes: grid.New[Node](sizeX, sizeY, sizeZ),
		state: StateActive,
	}
	c.needsMesh.Store(true)
	return c
}

// Nodes returns the chunk's node grid. Nil after the chunk was released.
func (c *Chunk) Nodes() *grid.Grid[Node] {
	return c.nodes
}

// Size returns the chunk dimensions in nodes.
func (c *Chunk) Size() (int, int, int) {
	return c.nodes.Size()
}

// Node returns the node at local coordinates.
func (c *Chunk) Node(x, y, z int) (Node, bool) {
	return c.nodes.Get(x, y, z)
}

// SetNode writes a node at local coordinates and marks the chunk dirty.
func (c *Chunk) SetNode(x, y, z int, n Node) bool {
	if !c.nodes.Set(x, y, z, n) {
		return false
	}
	c.MarkDirty()
	return true
}

// Origin returns the chunk's minimum corner in the map frame.
func (c *Chunk) Origin() mgl32.Vec3 {
	sx, sy, sz := c.nodes.Size()
	return mgl32.Vec3{
		float32(c.Coord.X * sx),
		float32(c.Coord.Y * sy),
		float32(c.Coord.Z * sz),
	}
}

// MarkDirty flags the chunk for both saving and re-meshing.
func (c *Chunk) MarkDirty() {
	c.dirty.Store(true)
	c.needsMesh.Store(true)
}

// IsDirty reports whether the node data changed since the last save.
func (c *Chunk) IsDirty() bool { return c.dirty.Load() }

// SetClean clears the save flag.
func (c *Chunk) SetClean() { c.dirty.Store(false) }

// NeedsMesh reports whether the chunk's mesh is stale.
func (c *Chunk) NeedsMesh() bool { return c.needsMesh.Load() }

// SetNeedsMesh sets or clears the stale-mesh flag.
func (c *Chunk) SetNeedsMesh(v bool) { c.needsMesh.Store(v) }

// State returns the lifecycle state.
func (c *Chunk) State() ChunkState { return c.state }

// Activate moves the chunk to StateActive. The mesh must be rebuilt.
func (c *Chunk) Activate() {
	if c.state != StateActive {
		c.state = StateActive
		c.needsMesh.Store(true)
	}
}

// Deactivate moves the chunk to StateInactive. Returns true when the mesh
// buffers must be cleared.
func (c *Chunk) Deactivate() bool {
	wasActive := c.state == StateActive
	c.state = StateInactive
	return wasActive
}

// Disable remembers the current state and moves the chunk to StateDisabled.
// Returns true when the mesh buffers must be cleared.
func (c *Chunk) Disable() bool {
	if c.state == StateDisabled {
		return false
	}
	c.savedState = c.state
	c.state = StateDisabled
	return c.savedState == StateActive
}

// Enable restores the state saved by Disable.
func (c *Chunk) Enable() {
	if c.state != StateDisabled {
		return
	}
	c.state = c.savedState
	if c.state == StateActive {
		c.needsMesh.Store(true)
	}
}

// SetState applies the transition to s. Returns true when the mesh buffers
// must be cleared.
func (c *Chunk) SetState(s ChunkState) bool {
	switch s {
	case StateActive:
		if c.state == StateDisabled {
			c.Enable()
		}
		c.Activate()
		return false
	case StateInactive:
		if c.state == StateDisabled {
			c.Enable()
		}
		return c.Deactivate()
	case StateDisabled:
		return c.Disable()
	}
	return false
}

// release drops the node grid. Callers hold the map's write locks.
func (c *Chunk) release() {
	c.nodes = nil
}
