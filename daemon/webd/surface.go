package webd

import (
	"encoding/json"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/params"
)

type surfaceAction string

const (
	actionAddLayer        surfaceAction = "addLayer"
	actionAddMarkers      surfaceAction = "addMarkers"
	actionSetLayerVisible surfaceAction = "setLayerVisible"
	actionSetDeflated     surfaceAction = "setDeflated"
	actionUpsertStyle     surfaceAction = "upsertFeatureStyle"
	actionBringToFront    surfaceAction = "bringToFront"
	actionShowTooltip     surfaceAction = "showTooltip"
	actionHideTooltip     surfaceAction = "hideTooltip"
)

type wireMarker struct {
	FeatureID string    `json:"featureId"`
	Centroid  orb.Point `json:"centroid"`
}

// surfaceCommand is one call toward the browser map.
type surfaceCommand struct {
	Action       surfaceAction               `json:"action"`
	Band         string                      `json:"band,omitempty"`
	FeatureID    string                      `json:"featureId,omitempty"`
	Visible      *bool                       `json:"visible,omitempty"`
	Deflated     *bool                       `json:"deflated,omitempty"`
	CollapseZoom *common.JSONFloat           `json:"collapseZoom,omitempty"`
	Style        *choropleth.Style           `json:"style,omitempty"`
	Features     *geojson.FeatureCollection  `json:"features,omitempty"`
	Styles       map[string]choropleth.Style `json:"styles,omitempty"`
	Markers      []wireMarker                `json:"markers,omitempty"`
	Anchor       *orb.Point                  `json:"anchor,omitempty"`
	Text         string                      `json:"text,omitempty"`
	Placement    params.TooltipPlacement     `json:"placement,omitempty"`
}

type messageWriter interface {
	Write(msg []byte) error
}

// WebSurface renders by sending JSON commands over a websocket.
// Style upserts that would not change a band's feature are skipped.
type WebSurface struct {
	w      messageWriter
	styles *lru.Cache[string, uint64]
	logger *slog.Logger
}

func NewWebSurface(w messageWriter, styleCacheSize int) (*WebSurface, error) {
	if styleCacheSize <= 0 {
		styleCacheSize = params.DefaultWebDaemonConfig().StyleCacheSize
	}
	cache, err := lru.New[string, uint64](styleCacheSize)
	if err != nil {
		return nil, err
	}
	return &WebSurface{
		w:      w,
		styles: cache,
		logger: slog.With("d", "web", "surface", "ws"),
	}, nil
}

func (ws *WebSurface) send(c surfaceCommand) {
	b, err := json.Marshal(c)
	if err != nil {
		ws.logger.Error("Failed to marshal surface command", "action", c.Action, "error", err)
		return
	}
	if err := ws.w.Write(b); err != nil {
		ws.logger.Warn("Failed to write surface command", "action", c.Action, "error", err)
	}
}

// changed reports whether style differs from the last one sent for
// the band's feature id, and remembers it.
func (ws *WebSurface) changed(band, id string, style choropleth.Style) bool {
	h, err := hashstructure.Hash(style, hashstructure.FormatV2, nil)
	if err != nil {
		return true
	}
	key := band + "/" + id
	if last, ok := ws.styles.Get(key); ok && last == h {
		return false
	}
	ws.styles.Add(key, h)
	return true
}

func (ws *WebSurface) AddLayer(band string, features []*feature.Feature, style func(*feature.Feature) choropleth.Style) {
	fc := geojson.NewFeatureCollection()
	styles := make(map[string]choropleth.Style, len(features))
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		gf.Properties = f.Properties.Clone()
		if gf.Properties == nil {
			gf.Properties = geojson.Properties{}
		}
		gf.Properties["name"] = f.Name
		fc.Append(gf)
		st := style(f)
		styles[f.ID] = st
		ws.changed(band, f.ID, st)
	}
	ws.send(surfaceCommand{Action: actionAddLayer, Band: band, Features: fc, Styles: styles})
}

func (ws *WebSurface) AddMarkers(band string, group deflate.Group) {
	cz := common.JSONFloat(group.CollapseZoom)
	markers := make([]wireMarker, len(group.Markers))
	for i, m := range group.Markers {
		markers[i] = wireMarker{FeatureID: m.FeatureID, Centroid: m.Centroid}
	}
	ws.send(surfaceCommand{Action: actionAddMarkers, Band: band, CollapseZoom: &cz, Markers: markers})
}

func (ws *WebSurface) SetLayerVisible(band string, visible bool) {
	ws.send(surfaceCommand{Action: actionSetLayerVisible, Band: band, Visible: &visible})
}

func (ws *WebSurface) SetDeflated(band string, collapseZoom float64, deflated bool) {
	cz := common.JSONFloat(collapseZoom)
	ws.send(surfaceCommand{Action: actionSetDeflated, Band: band, CollapseZoom: &cz, Deflated: &deflated})
}

func (ws *WebSurface) UpsertFeatureStyle(band, featureID string, style choropleth.Style) {
	if !ws.changed(band, featureID, style) {
		return
	}
	ws.send(surfaceCommand{Action: actionUpsertStyle, Band: band, FeatureID: featureID, Style: &style})
}

func (ws *WebSurface) BringToFront(band, featureID string) {
	ws.send(surfaceCommand{Action: actionBringToFront, Band: band, FeatureID: featureID})
}

func (ws *WebSurface) ShowTooltip(anchor orb.Point, text string, placement params.TooltipPlacement) {
	ws.send(surfaceCommand{Action: actionShowTooltip, Anchor: &anchor, Text: text, Placement: placement})
}

func (ws *WebSurface) HideTooltip() {
	ws.send(surfaceCommand{Action: actionHideTooltip})
}
