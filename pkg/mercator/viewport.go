package mercator

import (
	"fmt"
	"math"
)

// Tile addresses one cell of the Mercator raster at a zoom level.
// X is always stored wrapped into [0, 2^Z); Y is within [0, 2^Z).
type Tile struct {
	Z int
	X int
	Y int
}

// Key returns the cache key for the tile.
func (t Tile) Key() string {
	return fmt.Sprintf("%d_%d_%d", t.Z, t.X, t.Y)
}

// Placement is a tile plus the pixel offset at which it must be drawn
// relative to the viewport's top-left corner. During horizontal wraparound
// the same wrapped tile can appear at more than one offset.
type Placement struct {
	Tile Tile
	Left float64
	Top  float64
}

// VisibleTiles computes the tiles covering a width×height pixel viewport
// centered on the given point. Horizontal tile indices wrap around the
// antimeridian; vertical indices outside [0, 2^zoom) are skipped since the
// world does not wrap at the poles. A non-positive viewport yields nil.
func VisibleTiles(center Point, width, height, zoom, tileSize int) []Placement {
	if width <= 0 || height <= 0 {
		return nil
	}

	centerWorld := ToWorldPixel(center, zoom, tileSize)
	topLeftX := centerWorld.X - float64(width)/2
	topLeftY := centerWorld.Y - float64(height)/2

	ts := float64(tileSize)
	tileXStart := int(math.Floor(topLeftX / ts))
	tileXEnd := int(math.Floor((topLeftX + float64(width)) / ts))
	tileYStart := int(math.Floor(topLeftY / ts))
	tileYEnd := int(math.Floor((topLeftY + float64(height)) / ts))

	n := 1 << uint(zoom)

	var placements []Placement
	for tx := tileXStart; tx <= tileXEnd; tx++ {
		wrappedX := ((tx % n) + n) % n
		for ty := tileYStart; ty <= tileYEnd; ty++ {
			if ty < 0 || ty >= n {
				continue
			}
			placements = append(placements, Placement{
				Tile: Tile{Z: zoom, X: wrappedX, Y: ty},
				Left: float64(tx)*ts - topLeftX,
				Top:  float64(ty)*ts - topLeftY,
			})
		}
	}

	return placements
}
