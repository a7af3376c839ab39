package webd

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/metrics"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/resolution"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

type bandView struct {
	Name    string           `json:"name"`
	MinZoom common.JSONFloat `json:"minZoom"`
	MaxZoom common.JSONFloat `json:"maxZoom"`
	Source  string           `json:"source"`
}

// configView is what a browser map needs to set itself up.
type configView struct {
	Thresholds           []float64               `json:"thresholds"`
	Colors               []string                `json:"colors"`
	NoDataColor          string                  `json:"noDataColor"`
	ZoomBands            []bandView              `json:"zoomBands"`
	MapMinZoom           float64                 `json:"mapMinZoom"`
	MapMaxZoom           float64                 `json:"mapMaxZoom"`
	ZoomStep             float64                 `json:"zoomStep"`
	MinDeflatedPixelSize float64                 `json:"minDeflatedPixelSize"`
	TooltipPlacement     params.TooltipPlacement `json:"tooltipPlacement"`
	SocketPath           string                  `json:"socketPath"`
}

func (s *WebDaemon) handleConfig(w http.ResponseWriter, r *http.Request) {
	c := s.MapConfig
	v := configView{
		Thresholds:           c.Thresholds,
		Colors:               c.Colors,
		NoDataColor:          c.NoDataColor,
		MapMinZoom:           c.MapMinZoom,
		MapMaxZoom:           c.MapMaxZoom,
		ZoomStep:             c.ZoomStep,
		MinDeflatedPixelSize: c.MinDeflatedPixelSize,
		TooltipPlacement:     c.TooltipPlacement,
		SocketPath:           s.Config.SocketPath,
	}
	for _, b := range c.ZoomBands {
		v.ZoomBands = append(v.ZoomBands, bandView{
			Name:    b.Name,
			MinZoom: common.JSONFloat(b.MinZoom),
			MaxZoom: common.JSONFloat(b.MaxZoom),
			Source:  b.Source,
		})
	}
	s.writeJSON(w, v)
}

type legendView struct {
	Title   string                   `json:"title"`
	Entries []choropleth.LegendEntry `json:"entries"`
}

func (s *WebDaemon) handleLegend(w http.ResponseWriter, r *http.Request) {
	scale, err := choropleth.ScaleFromConfig(s.MapConfig)
	if err != nil {
		s.logger.Error("Invalid scale", "error", err)
		http.Error(w, "Invalid scale", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, legendView{Title: choropleth.LegendTitle, Entries: scale.Legend()})
}

type webDaemonStats struct {
	StartedAt time.Time                          `json:"started_at"`
	Uptime    string                             `json:"uptime"`
	Since     string                             `json:"since"`
	WSOpen    bool                               `json:"ws_open"`
	WSConns   int                                `json:"ws_conns"`
	Counters  map[string]int64                   `json:"counters"`
	Sessions  map[string][]resolution.BandStatus `json:"sessions"`
	Recent    []bandEventView                    `json:"recent"`
}

func (s *WebDaemon) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, webDaemonStats{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Since:     humanize.Time(s.started),
		WSOpen:    !s.melodyInstance.IsClosed(),
		WSConns:   s.melodyInstance.Len(),
		Counters:  metrics.Counts(),
		Sessions:  s.sessions.snapshot(),
		Recent:    s.recent.Items(),
	})
}
