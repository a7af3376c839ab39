// Package surface is the boundary to whatever renders the map.
// The engine only ever calls out through Surface.
package surface

import (
	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/params"
)

type Surface interface {
	// AddLayer registers a band's shapes, each painted with its initial style.
	AddLayer(band string, features []*feature.Feature, style func(*feature.Feature) choropleth.Style)

	// AddMarkers registers one group of deflated markers for a band.
	AddMarkers(band string, group deflate.Group)

	SetLayerVisible(band string, visible bool)

	// SetDeflated shows a group's markers and hides their shapes when deflated
	// is true, and the reverse when false.
	SetDeflated(band string, collapseZoom float64, deflated bool)

	// UpsertFeatureStyle restyles the band's shape and marker with the feature id.
	// Shapes sharing the id in other bands keep their style.
	UpsertFeatureStyle(band, featureID string, style choropleth.Style)

	// BringToFront raises the band's shape and marker with the feature id.
	BringToFront(band, featureID string)

	ShowTooltip(anchor orb.Point, text string, placement params.TooltipPlacement)
	HideTooltip()
}

// Discard ignores every call.
type Discard struct{}

func (Discard) AddLayer(string, []*feature.Feature, func(*feature.Feature) choropleth.Style) {}
func (Discard) AddMarkers(string, deflate.Group)                                              {}
func (Discard) SetLayerVisible(string, bool)                                                  {}
func (Discard) SetDeflated(string, float64, bool)                                             {}
func (Discard) UpsertFeatureStyle(string, string, choropleth.Style)                           {}
func (Discard) BringToFront(string, string)                                                   {}
func (Discard) ShowTooltip(orb.Point, string, params.TooltipPlacement)                        {}
func (Discard) HideTooltip()                                                                  {}
