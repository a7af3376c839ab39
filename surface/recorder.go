package surface

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/params"
)

// Call is one recorded Surface call.
type Call struct {
	Method    string
	Band      string
	FeatureID string
	Visible   bool
	Zoom      float64
	Style     choropleth.Style
	Text      string
	Anchor    orb.Point
	N         int
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%s%s)", c.Method, c.Band, c.FeatureID)
}

// Recorder keeps the calls made to it and the resulting surface state.
// It is safe for use from several goroutines.
type Recorder struct {
	mu sync.Mutex

	Calls []Call

	// Visible is the last visibility set per band.
	Visible map[string]bool

	// Styles is the last style set per feature id, in any band.
	Styles map[string]choropleth.Style

	// Layers is the style of each shape per band and feature id.
	Layers map[string]map[string]choropleth.Style

	// Deflated is the last state per band and collapse zoom.
	Deflated map[string]map[float64]bool

	// Tooltip is the text of the open tooltip, empty when hidden.
	Tooltip string
}

func NewRecorder() *Recorder {
	return &Recorder{
		Visible:  map[string]bool{},
		Styles:   map[string]choropleth.Style{},
		Layers:   map[string]map[string]choropleth.Style{},
		Deflated: map[string]map[float64]bool{},
	}
}

func (r *Recorder) record(c Call) {
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) AddLayer(band string, features []*feature.Feature, style func(*feature.Feature) choropleth.Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "AddLayer", Band: band, N: len(features)})
	layer := map[string]choropleth.Style{}
	for _, f := range features {
		layer[f.ID] = style(f)
		r.Styles[f.ID] = layer[f.ID]
	}
	r.Layers[band] = layer
}

func (r *Recorder) AddMarkers(band string, group deflate.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "AddMarkers", Band: band, Zoom: group.CollapseZoom, N: len(group.Markers)})
}

func (r *Recorder) SetLayerVisible(band string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "SetLayerVisible", Band: band, Visible: visible})
	r.Visible[band] = visible
}

func (r *Recorder) SetDeflated(band string, collapseZoom float64, deflated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "SetDeflated", Band: band, Zoom: collapseZoom, Visible: deflated})
	if r.Deflated[band] == nil {
		r.Deflated[band] = map[float64]bool{}
	}
	r.Deflated[band][collapseZoom] = deflated
}

func (r *Recorder) UpsertFeatureStyle(band, featureID string, style choropleth.Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "UpsertFeatureStyle", Band: band, FeatureID: featureID, Style: style})
	r.Styles[featureID] = style
	if r.Layers[band] == nil {
		r.Layers[band] = map[string]choropleth.Style{}
	}
	r.Layers[band][featureID] = style
}

func (r *Recorder) BringToFront(band, featureID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "BringToFront", Band: band, FeatureID: featureID})
}

func (r *Recorder) ShowTooltip(anchor orb.Point, text string, _ params.TooltipPlacement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "ShowTooltip", Anchor: anchor, Text: text})
	r.Tooltip = text
}

func (r *Recorder) HideTooltip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "HideTooltip"})
	r.Tooltip = ""
}

// VisibleBands lists bands currently visible.
func (r *Recorder) VisibleBands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for b, v := range r.Visible {
		if v {
			out = append(out, b)
		}
	}
	return out
}

// Count returns how many calls of method were recorded.
func (r *Recorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Style returns the current style of a feature id.
func (r *Recorder) Style(featureID string) (choropleth.Style, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Styles[featureID]
	return s, ok
}

// LayerStyle returns the style of a feature's shape in one band.
func (r *Recorder) LayerStyle(band, featureID string) (choropleth.Style, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Layers[band][featureID]
	return s, ok
}

// Reset forgets recorded calls but keeps surface state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
}
