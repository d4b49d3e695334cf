package level

import (
	"fmt"

	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha  = 2.0
	noiseBeta   = 2.0
	noiseOctave = int32(3)
	noiseScale  = 0.12
)

// GenerateTerrain builds a heightmap level from Perlin noise. Every (x, z)
// column has exactly one walkable cell at its surface height; everything above
// the surface is tagged air. The same size and seed always give the same layout.
func GenerateTerrain(size types.Coord, seed int64) (Layout, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return Layout{}, fmt.Errorf("%w: size %s", ErrInvalidLayout, size)
	}

	noise := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed)

	layout := Layout{
		SchemaVersion:   SchemaVersion,
		Size:            size,
		Offset:          Vec3{X: 1, Y: 1, Z: 1},
		DefaultWalkable: false,
		Walkable:        make([]types.Coord, 0, size.X*size.Z),
	}

	for z := 0; z < size.Z; z++ {
		for x := 0; x < size.X; x++ {
			h := surfaceHeight(noise, x, z, size.Y)
			layout.Walkable = append(layout.Walkable, types.Coord{X: x, Y: h, Z: z})
			for y := h + 1; y < size.Y; y++ {
				layout.Air = append(layout.Air, types.Coord{X: x, Y: y, Z: z})
			}
		}
	}

	return layout, nil
}

// surfaceHeight maps noise in roughly [-1, 1] onto [0, maxY).
func surfaceHeight(noise *perlin.Perlin, x, z, maxY int) int {
	// lattice points are always zero, so sample between them
	v := noise.Noise2D(float64(x)*noiseScale+0.5, float64(z)*noiseScale+0.5)
	h := int((v + 1) / 2 * float64(maxY))
	if h < 0 {
		return 0
	}
	if h >= maxY {
		return maxY - 1
	}
	return h
}
