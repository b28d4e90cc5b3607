package geo

import (
	"math"

	"github.com/quackquavk/gridminer/internal/model"
)

// 1 degree of latitude is ~111 km; longitude degrees shrink with cos(lat).
const kmPerDegree = 111.0

// GenerateGrid creates a square grid of tiles centered on the given point.
// steps = floor(radius/spacing), yielding a (2*steps+1) x (2*steps+1) grid in
// row-major order. A spacing larger than the radius still yields the single
// center tile, never an empty grid. Breaks down at lat = +/-90 where the
// longitude correction divides by zero.
func GenerateGrid(centerLat, centerLon, radiusKm, spacingKm float64, zoom int) []model.Tile {
	latStep := spacingKm / kmPerDegree
	lonStep := spacingKm / (kmPerDegree * math.Cos(centerLat*math.Pi/180.0))

	steps := int(radiusKm / spacingKm)
	side := steps*2 + 1

	tiles := make([]model.Tile, 0, side*side)
	lat := centerLat - float64(steps)*latStep
	startLon := centerLon - float64(steps)*lonStep

	for row := 0; row < side; row++ {
		lon := startLon
		for col := 0; col < side; col++ {
			tiles = append(tiles, model.Tile{
				Lat:  lat,
				Lon:  lon,
				Zoom: zoom,
				Row:  row,
				Col:  col,
			})
			lon += lonStep
		}
		lat += latStep
	}

	return tiles
}

// TileCount returns how many tiles GenerateGrid would produce for the given
// radius and spacing, without generating them.
func TileCount(radiusKm, spacingKm float64) int {
	steps := int(radiusKm / spacingKm)
	side := steps*2 + 1
	return side * side
}

// AdaptiveRadius enlarges radiusKm so the grid holds at least enough tiles to
// satisfy target results under perTileCap results per tile. Overestimates on
// purpose: a closed-form bump beats an iterative search here. Returns the
// input radius unchanged when the configured grid already suffices.
func AdaptiveRadius(target, perTileCap int, radiusKm, spacingKm float64) float64 {
	needed := target/perTileCap + 1
	if TileCount(radiusKm, spacingKm) >= needed {
		return radiusKm
	}
	neededSteps := math.Ceil((math.Sqrt(float64(needed)) - 1) / 2)
	return neededSteps*spacingKm + 1
}
