package world

import (
	"mc-terrain/internal/grid"

	"github.com/aquilax/go-perlin"
)

// LayeredGenerator generates terrain from a density field: 3D octave noise plus
// an altitude gradient, so the ground has overhangs and caves but thins out
// with height. Positive density is solid.
type LayeredGenerator struct {
	seed             int64
	scale            float64 // noise frequency (default: 1/32)
	baseHeight       float64 // target surface level (default: 8)
	gradientStrength float64 // altitude density gradient (default: 16)
	stoneDepth       float64 // density above which nodes get MaterialStone

	// sample spacing of the sparse lattice in nodes
	stepXZ, stepY int

	noise *perlin.Perlin
}

// Material IDs emitted by LayeredGenerator.
const (
	MaterialSoil  int32 = 0
	MaterialStone int32 = 1
)

// NewLayeredGenerator creates a 3D density-based terrain generator.
func NewLayeredGenerator(seed int64, baseHeight float64) *LayeredGenerator {
	return &LayeredGenerator{
		seed:             seed,
		scale:            1.0 / 32.0,
		baseHeight:       baseHeight,
		gradientStrength: 16.0,
		stoneDepth:       0.6,
		stepXZ:           4,
		stepY:            4,
		noise:            perlin.NewPerlin(perlinAlpha, perlinBeta, 4, seed),
	}
}

// computeDensity calculates the density value at a map coordinate.
func (g *LayeredGenerator) computeDensity(x, y, z int) float64 {
	n := g.noise.Noise3D(float64(x)*g.scale, float64(y)*g.scale, float64(z)*g.scale)
	heightGradient := (g.baseHeight - float64(y)) / g.gradientStrength
	return n + heightGradient
}

// Generate fills a chunk by evaluating density on a sparse lattice aligned to
// map coordinates and interpolating trilinearly between lattice points. The
// lattice is shared by all chunks, so neighbouring chunks agree on border nodes.
func (g *LayeredGenerator) Generate(pos ChunkCoord, nodes *grid.Grid[Node]) {
	sx, sy, sz := nodes.Size()
	baseX, baseY, baseZ := pos.X*sx, pos.Y*sy, pos.Z*sz

	// lattice bounds covering the chunk
	lx0, lx1 := floorDiv(baseX, g.stepXZ), floorDiv(baseX+sx-1, g.stepXZ)+1
	ly0, ly1 := floorDiv(baseY, g.stepY), floorDiv(baseY+sy-1, g.stepY)+1
	lz0, lz1 := floorDiv(baseZ, g.stepXZ), floorDiv(baseZ+sz-1, g.stepXZ)+1
	numX, numY, numZ := lx1-lx0+1, ly1-ly0+1, lz1-lz0+1

	densities := grid.New[float64](numX, numY, numZ)
	for i := 0; i < numX; i++ {
		for j := 0; j < numY; j++ {
			for k := 0; k < numZ; k++ {
				densities.Set(i, j, k, g.computeDensity((lx0+i)*g.stepXZ, (ly0+j)*g.stepY, (lz0+k)*g.stepXZ))
			}
		}
	}
	sample := func(i, j, k int) float64 {
		v, _ := densities.Get(i, j, k)
		return v
	}

	for x := 0; x < sx; x++ {
		wx := baseX + x
		ci := floorDiv(wx, g.stepXZ) - lx0
		tx := float64(mod(wx, g.stepXZ)) / float64(g.stepXZ)
		for y := 0; y < sy; y++ {
			wy := baseY + y
			cj := floorDiv(wy, g.stepY) - ly0
			ty := float64(mod(wy, g.stepY)) / float64(g.stepY)
			for z := 0; z < sz; z++ {
				wz := baseZ + z
				ck := floorDiv(wz, g.stepXZ) - lz0
				tz := float64(mod(wz, g.stepXZ)) / float64(g.stepXZ)

				d00 := lerp(sample(ci, cj, ck), sample(ci+1, cj, ck), tx)
				d01 := lerp(sample(ci, cj, ck+1), sample(ci+1, cj, ck+1), tx)
				d10 := lerp(sample(ci, cj+1, ck), sample(ci+1, cj+1, ck), tx)
				d11 := lerp(sample(ci, cj+1, ck+1), sample(ci+1, cj+1, ck+1), tx)
				d := lerp(lerp(d00, d01, tz), lerp(d10, d11, tz), ty)

				mat := MaterialSoil
				if d > g.stoneDepth {
					mat = MaterialStone
				}
				nodes.Set(x, y, z, Node{
					Iso:      float32(clamp01(0.5 - 0.5*d)),
					Material: mat,
				})
			}
		}
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
