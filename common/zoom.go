package common

import (
	"encoding/json"
	"math"
)

/*
Level 	Tile width (° of longitudes) 	m / pixel (on Equator) 	Examples of areas to represent
0 	360 	156 543 	whole world
2 	90 	39 136 	subcontinental area
3 	45 	19 568 	largest country
5 	11.25 	4 892 	large African country
6 	5.625 	2 446 	large European country
7 	2.813 	1 223 	small country, US state
8 	1.406 	611.496
9 	0.703 	305.748 	wide area, large metropolitan area
*/

// TileSize is the edge length in pixels of a slippy map tile.
const TileSize = 256

// MaxMercatorLatitude is where Web Mercator is clipped (square world).
const MaxMercatorLatitude = 85.0511287798066

// WorldPixels is the edge length of the whole world in pixels at zoom.
// Fractional zooms scale continuously.
func WorldPixels(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// ZoomRange is an inclusive zoom interval walked in Step increments.
type ZoomRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Each calls fn for Min, Min+Step, ... while <= Max, stopping when fn returns false.
// Zooms are computed by multiplication so long walks do not drift.
func (zr ZoomRange) Each(fn func(zoom float64) bool) {
	if zr.Step <= 0 || math.IsInf(zr.Min, 0) || math.IsInf(zr.Max, 0) {
		return
	}
	for i := 0; ; i++ {
		z := zr.Min + float64(i)*zr.Step
		if z > zr.Max+zr.Step*1e-9 {
			return
		}
		if !fn(z) {
			return
		}
	}
}

// SnapZoom floors zoom onto the step grid (multiples of step).
// Zooms within a hair of a grid line snap to it.
func SnapZoom(zoom, step float64) float64 {
	if step <= 0 || math.IsInf(zoom, 0) || math.IsNaN(zoom) {
		return zoom
	}
	return math.Floor(zoom/step+1e-9) * step
}

// JSONFloat marshals non-finite values, such as open zoom bounds, as null.
type JSONFloat float64

func (z JSONFloat) MarshalJSON() ([]byte, error) {
	f := float64(z)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}
