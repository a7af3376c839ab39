// Package resolution picks the geometry resolution shown at each zoom.
// Bands load lazily the first time the viewport reaches them and are
// narrowed on load so that loaded bands partition the zoom axis.
package resolution

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/events"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/metrics"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/surface"
)

var (
	ErrFetchFailure = errors.New("geometry fetch failed")
	ErrUnknownBand  = errors.New("unknown band")
	ErrNotLoading   = errors.New("band is not loading")
)

// Requester starts an asynchronous fetch of a band's document.
// It must return at once; the result is handed back through Manager.Resolve
// on the same event loop that calls OnZoom.
type Requester interface {
	Request(band params.BandConfig)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(band params.BandConfig)

func (f RequesterFunc) Request(band params.BandConfig) {
	f(band)
}

type ManagerConfig struct {
	Config    *params.Config
	Surface   surface.Surface
	Requester Requester

	// Engine and Scale default from Config when nil.
	Engine *deflate.Engine
	Scale  *choropleth.Scale

	// Session names the map instance in logs and events.
	Session string
}

// Manager owns band state for one map instance.
// It is not safe for concurrent use; all calls come from one event loop.
type Manager struct {
	bands   []*Band
	byName  map[string]*Band
	visible *Band

	zoom    float64
	hasZoom bool

	step     float64
	prefetch float64

	surface   surface.Surface
	requester Requester
	engine    *deflate.Engine
	scale     *choropleth.Scale
	session   string
	logger    *slog.Logger
}

func NewManager(mc ManagerConfig) (*Manager, error) {
	c := mc.Config
	if c == nil {
		c = params.DefaultConfig()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if mc.Requester == nil {
		return nil, errors.New("resolution: nil requester")
	}
	if mc.Surface == nil {
		mc.Surface = surface.Discard{}
	}
	if mc.Scale == nil {
		s, err := choropleth.ScaleFromConfig(c)
		if err != nil {
			return nil, err
		}
		mc.Scale = s
	}
	if mc.Engine == nil {
		mc.Engine = deflate.NewEngine(common.ZoomRange{Min: c.MapMinZoom, Max: c.MapMaxZoom, Step: c.ZoomStep}, c.MinDeflatedPixelSize)
	}
	m := &Manager{
		byName:    map[string]*Band{},
		step:      c.ZoomStep,
		prefetch:  c.Prefetch,
		surface:   mc.Surface,
		requester: mc.Requester,
		engine:    mc.Engine,
		scale:     mc.Scale,
		session:   mc.Session,
		logger:    slog.With("d", "resolution", "session", mc.Session),
	}
	for i, bc := range c.ZoomBands {
		b := newBand(bc, i)
		m.bands = append(m.bands, b)
		m.byName[bc.Name] = b
	}
	return m, nil
}

// OnZoom handles a viewport zoom change. It is idempotent:
// repeated calls with any zooms never fetch a band twice.
// Zooms between steps are floored onto the step grid, on which
// band intervals are defined.
func (m *Manager) OnZoom(zoom float64) {
	if math.IsNaN(zoom) {
		m.logger.Warn("Ignored NaN zoom")
		return
	}
	m.zoom = common.SnapZoom(zoom, m.step)
	m.hasZoom = true
	for _, b := range m.bands {
		if b.State == Unloaded && b.triggers(zoom, m.prefetch) {
			m.request(b)
		}
	}
	m.refresh()
}

func (m *Manager) request(b *Band) {
	b.State = Loading
	b.requests++
	metrics.FetchRequested.Inc(1)
	m.logger.Info("Loading band", "band", b.Name(), "source", b.Config.Source, "zoom", m.zoom)
	m.emit(b, nil)
	m.requester.Request(b.Config)
}

// Resolve completes a band's fetch. A failed fetch leaves the band Loading,
// never refetched, and the visible band untouched.
func (m *Manager) Resolve(name string, doc *feature.Document, fetchErr error) error {
	b, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBand, name)
	}
	if b.State != Loading {
		return fmt.Errorf("%w: %q is %s", ErrNotLoading, name, b.State)
	}
	if fetchErr == nil && doc == nil {
		fetchErr = errors.New("no document")
	}
	if fetchErr != nil {
		b.Err = fetchErr
		metrics.FetchFailed.Inc(1)
		m.logger.Error("Band fetch failed", "band", name, "error", fetchErr)
		m.emit(b, fetchErr)
		return fmt.Errorf("%w: band %q: %w", ErrFetchFailure, name, fetchErr)
	}

	b.Features = doc.Features
	b.Borders = len(doc.Borders)
	b.index = feature.Index(doc.Features)
	b.Groups = m.engine.Deflate(doc.Features)
	b.Err = nil
	b.State = Loaded
	metrics.BandLoaded.Inc(1)
	metrics.MarkersAdded.Inc(int64(b.Groups.Len()))

	m.surface.AddLayer(name, b.Features, func(f *feature.Feature) choropleth.Style {
		return m.scale.Choropleth(f.Metric)
	})
	for _, g := range b.Groups {
		m.surface.AddMarkers(name, g)
	}
	m.logger.Info("Band loaded", "band", name, "kind", doc.Kind,
		"features", len(b.Features), "markers", b.Groups.Len(), "groups", len(b.Groups))
	m.emit(b, nil)

	m.partition(b)
	m.refresh()
	return nil
}

// partition narrows overlapping loaded bands in favor of the higher priority one.
func (m *Manager) partition(loaded *Band) {
	for _, o := range m.bands {
		if o == loaded || o.State != Loaded {
			continue
		}
		lo, hi := o, loaded
		if lo.Priority > hi.Priority {
			lo, hi = hi, lo
		}
		if lo.Empty() || lo.MaxZoom < hi.MinZoom || lo.MinZoom > hi.MaxZoom {
			continue
		}
		was := lo.MaxZoom
		lo.MaxZoom = hi.MinZoom - m.step
		m.logger.Info("Narrowed band", "band", lo.Name(), "maxZoom.was", was, "maxZoom", lo.MaxZoom, "by", hi.Name())
	}
}

// refresh shows the loaded band containing the zoom, if any,
// otherwise leaves the current band shown, then syncs its marker groups.
func (m *Manager) refresh() {
	if !m.hasZoom {
		return
	}
	var next *Band
	for _, b := range m.bands {
		if b.State == Loaded && b.Contains(m.zoom) {
			next = b
		}
	}
	if next == nil {
		next = m.visible
	}
	if next != m.visible {
		// Show before hiding so no frame renders without a band.
		m.surface.SetLayerVisible(next.Name(), true)
		if m.visible != nil {
			m.surface.SetLayerVisible(m.visible.Name(), false)
			metrics.BandSwapped.Inc(1)
			m.logger.Info("Swapped band", "from", m.visible.Name(), "to", next.Name(), "zoom", m.zoom)
		}
		m.visible = next
	}
	if m.visible != nil {
		m.syncGroups(m.visible)
	}
}

func (m *Manager) syncGroups(b *Band) {
	for _, g := range b.Groups {
		d := g.Deflated(m.zoom)
		if last, ok := b.deflated[g.CollapseZoom]; ok && last == d {
			continue
		}
		b.deflated[g.CollapseZoom] = d
		m.surface.SetDeflated(b.Name(), g.CollapseZoom, d)
	}
}

func (m *Manager) emit(b *Band, err error) {
	events.BandFeed.Send(events.BandEvent{
		Session:  m.session,
		Band:     b.Name(),
		State:    b.State.String(),
		Features: len(b.Features),
		Markers:  b.Groups.Len(),
		Err:      err,
	})
}

// Visible returns the name of the band shown, or "" before any band loads.
func (m *Manager) Visible() string {
	if m.visible == nil {
		return ""
	}
	return m.visible.Name()
}

// Zoom is the last zoom seen, snapped to the step grid.
func (m *Manager) Zoom() float64 {
	return m.zoom
}

// Band returns a band by name.
func (m *Manager) Band(name string) (*Band, bool) {
	b, ok := m.byName[name]
	return b, ok
}

// Lookup finds a feature in the visible band.
func (m *Manager) Lookup(id string) (*feature.Feature, bool) {
	if m.visible == nil {
		return nil, false
	}
	return m.visible.Lookup(id)
}

// Snapshot reports every band's state.
func (m *Manager) Snapshot() []BandStatus {
	out := make([]BandStatus, 0, len(m.bands))
	for _, b := range m.bands {
		s := BandStatus{
			Name:     b.Name(),
			State:    b.State.String(),
			MinZoom:  common.JSONFloat(b.MinZoom),
			MaxZoom:  common.JSONFloat(b.MaxZoom),
			Visible:  b == m.visible,
			Features: len(b.Features),
			Markers:  b.Groups.Len(),
			Groups:   len(b.Groups),
		}
		if b.Err != nil {
			s.Error = b.Err.Error()
		}
		out = append(out, s)
	}
	return out
}
