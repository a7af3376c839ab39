// Package highlight tracks the single feature under the pointer.
package highlight

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/metrics"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/surface"
)

// Lookup resolves feature ids against the band currently shown.
type Lookup interface {
	Lookup(id string) (*feature.Feature, bool)
	Visible() string
}

// HoverEvent is a pointer entering a shape or marker.
type HoverEvent struct {
	FeatureID string

	// Anchor is the pointer location, when HasAnchor.
	Anchor    orb.Point
	HasAnchor bool
}

type Controller struct {
	surface   surface.Surface
	scale     *choropleth.Scale
	lookup    Lookup
	placement params.TooltipPlacement
	logger    *slog.Logger

	// current is the highlighted feature, nil when none,
	// and band the band it was highlighted in.
	current *feature.Feature
	band    string
}

func NewController(s surface.Surface, scale *choropleth.Scale, lookup Lookup, placement params.TooltipPlacement) *Controller {
	if placement == "" {
		placement = params.TooltipPlacementTop
	}
	return &Controller{
		surface:   s,
		scale:     scale,
		lookup:    lookup,
		placement: placement,
		logger:    slog.With("d", "highlight"),
	}
}

// Hover highlights the feature under the pointer, reverting any other,
// and opens its tooltip. Ids not currently shown are ignored.
func (c *Controller) Hover(ev HoverEvent) {
	f, ok := c.lookup.Lookup(ev.FeatureID)
	if !ok {
		metrics.HoverStale.Inc(1)
		c.logger.Debug("Stale hover", "id", ev.FeatureID)
		return
	}
	band := c.lookup.Visible()
	if c.current != nil && (c.current.ID != f.ID || c.band != band) {
		c.revert()
	}
	c.current, c.band = f, band
	metrics.Hovered.Inc(1)

	c.surface.UpsertFeatureStyle(band, f.ID, c.scale.Highlighted(f.Metric))
	c.surface.BringToFront(band, f.ID)

	anchor := ev.Anchor
	if !ev.HasAnchor {
		anchor = Anchor(f.Bound, c.placement)
	}
	c.surface.ShowTooltip(anchor, choropleth.Tooltip(f.Name, f.Metric), c.placement)
}

// Unhover reverts the highlighted feature and closes the tooltip.
// It does nothing when no feature is highlighted.
func (c *Controller) Unhover() {
	if c.current == nil {
		return
	}
	c.revert()
	c.surface.HideTooltip()
}

func (c *Controller) revert() {
	c.surface.UpsertFeatureStyle(c.band, c.current.ID, c.scale.Choropleth(c.current.Metric))
	c.current, c.band = nil, ""
}

// Highlighted returns the highlighted feature id, or "".
func (c *Controller) Highlighted() string {
	if c.current == nil {
		return ""
	}
	return c.current.ID
}

// Anchor is where a tooltip opens for a bound with no pointer location.
func Anchor(b orb.Bound, placement params.TooltipPlacement) orb.Point {
	center := b.Center()
	if placement == params.TooltipPlacementTop {
		return orb.Point{center[0], b.Max[1]}
	}
	return center
}
