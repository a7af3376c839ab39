// Package deflate replaces features too small to read on screen
// with point markers below the zoom at which they become readable.
package deflate

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/feature"
)

// CollapseZoom walks zr upward and returns the first zoom at which
// the bound is at least minPixelSize wide and tall on screen.
// A zero-extent dimension always passes, so points and lines terminate.
// ok is false when the bound is readable at zr.Min, i.e. never deflated.
// A bound that never becomes readable within zr collapses at +Inf:
// it is a marker across the whole range.
func CollapseZoom(b orb.Bound, zr common.ZoomRange, minPixelSize float64, proj Projection) (zoom float64, ok bool) {
	if math.IsInf(zr.Min, 0) || math.IsNaN(zr.Min) {
		return 0, false
	}
	flatX := b.Max[0] == b.Min[0]
	flatY := b.Max[1] == b.Min[1]
	readable := math.Inf(1)
	zr.Each(func(z float64) bool {
		w, h := proj.PixelSize(b, z)
		if (flatX || w >= minPixelSize) && (flatY || h >= minPixelSize) {
			readable = z
			return false
		}
		return true
	})
	if readable == zr.Min {
		return 0, false
	}
	return readable, true
}

// Marker stands in for a feature below its collapse zoom.
type Marker struct {
	FeatureID    string    `json:"featureId"`
	Centroid     orb.Point `json:"centroid"`
	CollapseZoom float64   `json:"collapseZoom"`
}

// Group is every marker of a band sharing one collapse zoom;
// visibility is toggled per group, not per marker.
type Group struct {
	CollapseZoom float64  `json:"collapseZoom"`
	Markers      []Marker `json:"markers"`
}

// Deflated reports whether markers (not shapes) render at zoom.
func (g Group) Deflated(zoom float64) bool {
	return zoom < g.CollapseZoom
}

// Groups are ordered by ascending collapse zoom.
type Groups []Group

// Marker finds the marker of a feature id.
func (gs Groups) Marker(featureID string) (Marker, bool) {
	for _, g := range gs {
		for _, m := range g.Markers {
			if m.FeatureID == featureID {
				return m, true
			}
		}
	}
	return Marker{}, false
}

// Len is the total number of markers.
func (gs Groups) Len() int {
	n := 0
	for _, g := range gs {
		n += len(g.Markers)
	}
	return n
}

type Engine struct {
	Range        common.ZoomRange
	MinPixelSize float64
	Projection   Projection
}

func NewEngine(zr common.ZoomRange, minPixelSize float64) *Engine {
	return &Engine{
		Range:        zr,
		MinPixelSize: minPixelSize,
		Projection:   WebMercator{},
	}
}

// Deflate computes collapse zooms once, at load time, for a band's features.
func (e *Engine) Deflate(features []*feature.Feature) Groups {
	if e.MinPixelSize <= 0 {
		return nil
	}
	byZoom := map[float64][]Marker{}
	for _, f := range features {
		cz, ok := CollapseZoom(f.Bound, e.Range, e.MinPixelSize, e.Projection)
		if !ok {
			continue
		}
		byZoom[cz] = append(byZoom[cz], Marker{
			FeatureID:    f.ID,
			Centroid:     f.Bound.Center(),
			CollapseZoom: cz,
		})
	}
	out := make(Groups, 0, len(byZoom))
	for cz, markers := range byZoom {
		out = append(out, Group{CollapseZoom: cz, Markers: markers})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CollapseZoom < out[j].CollapseZoom
	})
	return out
}
