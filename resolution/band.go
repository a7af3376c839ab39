package resolution

import (
	"math"

	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/params"
)

// State is a band's load state. There is no way back to Unloaded.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return "invalid"
}

// Band is one geometry resolution bound to a zoom interval.
type Band struct {
	Config params.BandConfig

	// Priority is the configuration index; higher wins overlaps.
	Priority int

	// MinZoom and MaxZoom are the effective interval,
	// narrowed from Config when a finer band loads.
	MinZoom float64
	MaxZoom float64

	State    State
	Features []*feature.Feature
	Borders  int
	Groups   deflate.Groups

	index map[string]*feature.Feature

	// deflated is the last SetDeflated value sent per group.
	deflated map[float64]bool

	// requests counts fetches issued; never more than one.
	requests int

	// Err is the last fetch failure. The band stays Loading.
	Err error
}

func newBand(c params.BandConfig, priority int) *Band {
	return &Band{
		Config:   c,
		Priority: priority,
		MinZoom:  c.MinZoom,
		MaxZoom:  c.MaxZoom,
		deflated: map[float64]bool{},
	}
}

func (b *Band) Name() string {
	return b.Config.Name
}

// Contains tests zoom against the effective interval.
func (b *Band) Contains(zoom float64) bool {
	return b.MinZoom <= zoom && zoom <= b.MaxZoom
}

// Empty reports a band fully shadowed by finer bands.
func (b *Band) Empty() bool {
	return b.MinZoom > b.MaxZoom
}

// triggers reports whether zoom should start this band's fetch:
// the configured interval, widened downward by prefetch.
func (b *Band) triggers(zoom, prefetch float64) bool {
	lo := b.Config.MinZoom
	if !math.IsInf(lo, -1) {
		lo -= prefetch
	}
	return lo <= zoom && zoom <= b.Config.MaxZoom
}

// Requests is the number of fetches issued for the band.
func (b *Band) Requests() int {
	return b.requests
}

// Lookup finds a loaded feature by id.
func (b *Band) Lookup(id string) (*feature.Feature, bool) {
	f, ok := b.index[id]
	return f, ok
}

// BandStatus is a read-only view of a band for diagnostics.
type BandStatus struct {
	Name     string           `json:"name"`
	State    string           `json:"state"`
	MinZoom  common.JSONFloat `json:"minZoom"`
	MaxZoom  common.JSONFloat `json:"maxZoom"`
	Visible  bool             `json:"visible"`
	Features int              `json:"features"`
	Markers  int              `json:"markers"`
	Groups   int              `json:"groups"`
	Error    string           `json:"error,omitempty"`
}
