package world

import (
	"math"
	"math/rand"

	"mc-terrain/internal/grid"

	"github.com/aquilax/go-perlin"
)

// Generator fills a chunk's nodes from its coordinate alone. Implementations
// must be deterministic and safe for concurrent use.
type Generator interface {
	Generate(pos ChunkCoord, nodes *grid.Grid[Node])
}

const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 3

	// materialFrequency scales the material noise relative to the density noise.
	materialFrequency = 3.5
	// materialThreshold biases the material noise so roughly half the nodes get ID 1.
	materialThreshold = 0.55
)

// PerlinGenerator produces densities in [0,1] by averaging six planar Perlin
// samples, and material IDs 0 or 1 from a second, higher frequency sample.
type PerlinGenerator struct {
	scale  float64
	offset [3]float64
	noise  *perlin.Perlin
}

// NewPerlinGenerator creates a seeded generator. scale is the noise step per node.
func NewPerlinGenerator(seed int64, scale float64) *PerlinGenerator {
	if scale <= 0 {
		scale = 1
	}
	r := rand.New(rand.NewSource(seed))
	// seed-dependent offset so different seeds sample different regions
	radius := 50 * r.Float64()
	var off [3]float64
	for i := range off {
		off[i] = (r.Float64()*2 - 1) * radius
	}
	return &PerlinGenerator{
		scale:  scale,
		offset: off,
		noise:  perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Generate fills nodes for the chunk at pos.
func (g *PerlinGenerator) Generate(pos ChunkCoord, nodes *grid.Grid[Node]) {
	sx, sy, sz := nodes.Size()
	bx := float64(pos.X*sx)*g.scale + g.offset[0]
	by := float64(pos.Y*sy)*g.scale + g.offset[1]
	bz := float64(pos.Z*sz)*g.scale + g.offset[2]
	ms := g.scale * materialFrequency
	for x := 0; x < sx; x++ {
		for y := 0; y < sy; y++ {
			for z := 0; z < sz; z++ {
				iso := g.noise3(bx+float64(x)*g.scale, by+float64(y)*g.scale, bz+float64(z)*g.scale)
				m := g.noise3(bx+5+float64(x)*ms, by+5+float64(y)*ms, bz+5+float64(z)*ms)
				n := nodes.Ptr(x, y, z)
				n.Iso = float32(iso)
				n.Material = int32(math.Ceil(m - materialThreshold))
			}
		}
	}
}

// noise3 averages the six ordered planar projections of (x, y, z), each mapped to [0,1].
func (g *PerlinGenerator) noise3(x, y, z float64) float64 {
	sum := g.noise2(x, y) + g.noise2(x, z) + g.noise2(y, z) +
		g.noise2(y, x) + g.noise2(z, x) + g.noise2(z, y)
	return sum / 6
}

func (g *PerlinGenerator) noise2(a, b float64) float64 {
	return clamp01(0.5 + 0.5*g.noise.Noise2D(a, b))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FlatGenerator produces a horizontal surface at Height: nodes below are
// solid (Iso 0) and nodes above are empty (Iso 1). Useful for tests and tools.
type FlatGenerator struct {
	Height   float64
	Material int32
}

// Generate fills nodes for the chunk at pos.
func (g FlatGenerator) Generate(pos ChunkCoord, nodes *grid.Grid[Node]) {
	sx, sy, sz := nodes.Size()
	for x := 0; x < sx; x++ {
		for y := 0; y < sy; y++ {
			wy := float64(pos.Y*sy + y)
			iso := float32(0)
			if wy > g.Height {
				iso = 1
			}
			for z := 0; z < sz; z++ {
				nodes.Set(x, y, z, Node{Iso: iso, Material: g.Material})
			}
		}
	}
}
