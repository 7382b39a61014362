// Package mercator provides Web Mercator projection math for a fixed-zoom
// tile raster: geographic coordinates to world pixels and back, and the set
// of tiles covering a pixel viewport.
package mercator

import (
	"math"
)

const (
	// MaxLat is the highest latitude representable in Web Mercator
	// (arctan(sinh(π))). Beyond it the projection is not usable.
	MaxLat = 85.0511
	MinLat = -MaxLat

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// WorldPixel is a position in the fixed-zoom world raster. The raster is
// tileSize*2^zoom pixels in both axes.
type WorldPixel struct {
	X float64
	Y float64
}

// WorldSize returns the world raster size in pixels for a zoom level.
func WorldSize(zoom, tileSize int) float64 {
	return float64(tileSize) * math.Exp2(float64(zoom))
}

// ToWorldPixel projects a geographic point into world pixel coordinates.
// The latitude must be strictly inside (-90, 90); at the poles the Mercator
// logarithm is undefined and the caller must reject the input first.
func ToWorldPixel(p Point, zoom, tileSize int) WorldPixel {
	worldSize := WorldSize(zoom, tileSize)

	x := (p.Lng + 180.0) / 360.0 * worldSize

	sinLat := math.Sin(p.Lat * degToRad)
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * worldSize

	return WorldPixel{X: x, Y: y}
}

// ToPoint is the inverse of ToWorldPixel.
func ToPoint(wp WorldPixel, zoom, tileSize int) Point {
	worldSize := WorldSize(zoom, tileSize)

	lng := wp.X/worldSize*360.0 - 180.0

	n := math.Pi - 2*math.Pi*wp.Y/worldSize
	lat := radToDeg * math.Atan(math.Sinh(n))

	return Point{Lat: lat, Lng: lng}
}
