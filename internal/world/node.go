package world

// Node is one density sample. Iso is nominally in [0,1]; samples at or below
// the surface level are inside the isosurface.
type Node struct {
	Iso      float32
	Material int32
}
