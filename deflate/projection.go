package deflate

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotblauer/choromap/common"
)

// Projection measures a geographic bound on screen.
// It must be a pure function of the bound and the zoom.
type Projection interface {
	PixelSize(b orb.Bound, zoom float64) (width, height float64)
}

// WebMercator is the slippy map projection with 256px tiles.
type WebMercator struct{}

// mercatorWorldMeters is the projected width of the world.
const mercatorWorldMeters = 2 * math.Pi * orb.EarthRadius

func (WebMercator) PixelSize(b orb.Bound, zoom float64) (width, height float64) {
	lo := project.WGS84.ToMercator(clampLat(b.Min))
	hi := project.WGS84.ToMercator(clampLat(b.Max))
	scale := common.WorldPixels(zoom) / mercatorWorldMeters
	return math.Abs(hi[0]-lo[0]) * scale, math.Abs(hi[1]-lo[1]) * scale
}

func clampLat(p orb.Point) orb.Point {
	return orb.Point{p[0], math.Max(-common.MaxMercatorLatitude, math.Min(common.MaxMercatorLatitude, p[1]))}
}
