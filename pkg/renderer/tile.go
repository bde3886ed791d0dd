package renderer

import (
	"image"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int             // Unique tile identifier
	Bounds          image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int             // Number of passes completed for this tile
	Seed            int64           // Base seed for deterministic per-row samplers
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Seed:   int64(id + 42), // +42 to avoid seed 0
	}
}

// RowSampler returns the sampler for row y of this tile during a pass. The
// sequence depends only on the tile, the pass and the row, so images do not
// depend on which worker renders which row.
func (t *Tile) RowSampler(pass, y int) core.Sampler {
	return core.NewSeededSampler(t.Seed<<32 ^ int64(pass)<<20 ^ int64(y))
}

// NewTileGrid creates a grid of tiles covering the entire image, in
// row-major order
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX, tilesY := tileGridSize(width, height, tileSize)
	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}

	return tiles
}

// tileGridSize returns the number of tiles in each dimension
func tileGridSize(width, height, tileSize int) (int, int) {
	return (width + tileSize - 1) / tileSize, (height + tileSize - 1) / tileSize
}
