package geo

import (
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/paulmach/orb"
	"github.com/quackquavk/gridminer/internal/model"
)

// TrimToRadius removes tiles whose centers fall outside the requested radius.
// The square grid overshoots at the corners; trimming them saves roughly a
// fifth of the tile budget on large grids.
func TrimToRadius(tiles []model.Tile, centerLat, centerLon, radiusKm float64) []model.Tile {
	center := orb.Point{centerLon, centerLat} // orb.Point is [lon, lat]
	var kept []model.Tile
	for _, t := range tiles {
		if orbgeo.Distance(center, orb.Point{t.Lon, t.Lat}) <= radiusKm*1000 {
			kept = append(kept, t)
		}
	}
	return kept
}
