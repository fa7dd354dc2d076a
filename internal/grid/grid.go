// Package grid provides a fixed-size 3D array backed by one flat slice.
package grid

// Grid is a 3D array stored row-major: index = (x*sizeY+y)*sizeZ + z.
// Dimensions are fixed at construction.
type Grid[T any] struct {
	sizeX, sizeY, sizeZ int
	cells               []T
}

// New allocates a grid of the given dimensions filled with zero values.
func New[T any](sizeX, sizeY, sizeZ int) *Grid[T] {
	if sizeX < 0 || sizeY < 0 || sizeZ < 0 {
		panic("grid: negative dimension")
	}
	return &Grid[T]{
		sizeX: sizeX,
		sizeY: sizeY,
		sizeZ: sizeZ,
		cells: make([]T, sizeX*sizeY*sizeZ),
	}
}

// Size returns the grid dimensions.
func (g *Grid[T]) Size() (int, int, int) {
	return g.sizeX, g.sizeY, g.sizeZ
}

// Len returns the total number of cells.
func (g *Grid[T]) Len() int {
	return len(g.cells)
}

// Index converts (x, y, z) to a flat index. Callers must check bounds.
func (g *Grid[T]) Index(x, y, z int) int {
	return (x*g.sizeY+y)*g.sizeZ + z
}

// InBounds reports whether (x, y, z) addresses a cell.
func (g *Grid[T]) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.sizeX && y >= 0 && y < g.sizeY && z >= 0 && z < g.sizeZ
}

// Get returns the value at (x, y, z). ok is false when out of range.
func (g *Grid[T]) Get(x, y, z int) (v T, ok bool) {
	if !g.InBounds(x, y, z) {
		return v, false
	}
	return g.cells[g.Index(x, y, z)], true
}

// Set stores v at (x, y, z). Returns false when out of range.
func (g *Grid[T]) Set(x, y, z int, v T) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.cells[g.Index(x, y, z)] = v
	return true
}

// Ptr returns a pointer to the cell at (x, y, z), or nil when out of range.
func (g *Grid[T]) Ptr(x, y, z int) *T {
	if !g.InBounds(x, y, z) {
		return nil
	}
	return &g.cells[g.Index(x, y, z)]
}

// Cells exposes the backing slice in row-major order.
func (g *Grid[T]) Cells() []T {
	return g.cells
}

// Fill sets every cell to v.
func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// CopyFrom copies src into g. Both grids must have the same dimensions.
func (g *Grid[T]) CopyFrom(src *Grid[T]) bool {
	if g.sizeX != src.sizeX || g.sizeY != src.sizeY || g.sizeZ != src.sizeZ {
		return false
	}
	copy(g.cells, src.cells)
	return true
}
