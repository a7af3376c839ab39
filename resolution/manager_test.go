package resolution

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/highlight"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/surface"
)

type queueRequester struct {
	requested []string
}

func (q *queueRequester) Request(band params.BandConfig) {
	q.requested = append(q.requested, band.Name)
}

func (q *queueRequester) pop() (string, bool) {
	if len(q.requested) == 0 {
		return "", false
	}
	n := q.requested[0]
	q.requested = q.requested[1:]
	return n, true
}

// square is a size-degree square feature sitting on the equator.
func square(id string, lng, size float64, metric float64) *feature.Feature {
	b := orb.Bound{Min: orb.Point{lng, 0}, Max: orb.Point{lng + size, size}}
	return &feature.Feature{
		ID:       id,
		Geometry: b.ToPolygon(),
		Bound:    b,
		Name:     id,
		Metric:   metric,
	}
}

func testDoc(band string) *feature.Document {
	return &feature.Document{
		Kind: feature.KindTopology,
		Features: []*feature.Feature{
			square(band+"-big", 0, 40, 120),
			square(band+"-small", 60, 0.5, 3),
		},
	}
}

// sharedDoc has the same feature ids in every band, as real tiers do.
func sharedDoc(fraMetric float64) *feature.Document {
	return &feature.Document{
		Kind: feature.KindTopology,
		Features: []*feature.Feature{
			square("FRA", 0, 40, fraMetric),
			square("AND", 60, 0.5, 3),
		},
	}
}

func newTestManager(t *testing.T, c *params.Config) (*Manager, *surface.Recorder, *queueRequester) {
	t.Helper()
	rec := surface.NewRecorder()
	req := &queueRequester{}
	m, err := NewManager(ManagerConfig{Config: c, Surface: rec, Requester: req, Session: t.Name()})
	if err != nil {
		t.Fatal(err)
	}
	return m, rec, req
}

func mustResolve(t *testing.T, m *Manager, name string) {
	t.Helper()
	if err := m.Resolve(name, testDoc(name), nil); err != nil {
		t.Fatal(err)
	}
}

func TestManagerDefaultBands(t *testing.T) {
	m, rec, req := newTestManager(t, params.DefaultConfig())

	m.OnZoom(2)
	if got := req.requested; len(got) != 1 || got[0] != "50m" {
		t.Fatalf("Expected [50m] requested, got %v", got)
	}
	if m.Visible() != "" {
		t.Errorf("Expected nothing visible before load, got %q", m.Visible())
	}
	req.pop()
	mustResolve(t, m, "50m")
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m visible, got %q", m.Visible())
	}

	m.OnZoom(4)
	if len(req.requested) != 0 {
		t.Errorf("Expected no fetch at zoom 4, got %v", req.requested)
	}

	// Prefetch one level early, still showing 50m.
	m.OnZoom(5)
	if got := req.requested; len(got) != 1 || got[0] != "10m" {
		t.Fatalf("Expected [10m] requested at zoom 5, got %v", got)
	}
	req.pop()
	mustResolve(t, m, "10m")
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m visible at zoom 5, got %q", m.Visible())
	}
	b50, _ := m.Band("50m")
	if b50.MaxZoom != 5 {
		t.Errorf("Expected 50m narrowed to max 5, got %v", b50.MaxZoom)
	}

	m.OnZoom(6)
	if m.Visible() != "10m" {
		t.Errorf("Expected 10m visible at zoom 6, got %q", m.Visible())
	}
	if got := rec.VisibleBands(); len(got) != 1 || got[0] != "10m" {
		t.Errorf("Expected only 10m on the surface, got %v", got)
	}

	m.OnZoom(3)
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m visible at zoom 3, got %q", m.Visible())
	}
	for _, z := range []float64{2, 8, 5, 6, 2} {
		m.OnZoom(z)
	}
	for _, name := range []string{"50m", "10m"} {
		b, _ := m.Band(name)
		if b.Requests() != 1 {
			t.Errorf("Expected one fetch of %s, got %d", name, b.Requests())
		}
	}
	if rec.Count("AddLayer") != 2 {
		t.Errorf("Expected 2 layers added, got %d", rec.Count("AddLayer"))
	}
}

func TestManagerFetchFailure(t *testing.T) {
	m, rec, req := newTestManager(t, params.DefaultConfig())
	m.OnZoom(2)
	req.pop()
	mustResolve(t, m, "50m")

	m.OnZoom(7)
	req.pop()
	err := m.Resolve("10m", nil, errors.New("404"))
	if !errors.Is(err, ErrFetchFailure) {
		t.Fatalf("Expected ErrFetchFailure, got %v", err)
	}
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m to stay visible, got %q", m.Visible())
	}
	if got := rec.VisibleBands(); len(got) != 1 || got[0] != "50m" {
		t.Errorf("Expected only 50m on the surface, got %v", got)
	}

	m.OnZoom(4)
	m.OnZoom(8)
	b10, _ := m.Band("10m")
	if b10.State != Loading {
		t.Errorf("Expected failed band to stay loading, got %s", b10.State)
	}
	if b10.Requests() != 1 || len(req.requested) != 0 {
		t.Errorf("Expected no refetch, got %d requests, pending %v", b10.Requests(), req.requested)
	}
	snap := m.Snapshot()
	if snap[1].Error == "" {
		t.Errorf("Expected failure in snapshot, got %+v", snap[1])
	}
}

func TestManagerResolveErrors(t *testing.T) {
	m, _, req := newTestManager(t, params.DefaultConfig())
	if err := m.Resolve("nope", testDoc("nope"), nil); !errors.Is(err, ErrUnknownBand) {
		t.Errorf("Expected ErrUnknownBand, got %v", err)
	}
	if err := m.Resolve("10m", testDoc("10m"), nil); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Expected ErrNotLoading, got %v", err)
	}
	m.OnZoom(2)
	req.pop()
	mustResolve(t, m, "50m")
	if err := m.Resolve("50m", testDoc("50m"), nil); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Expected ErrNotLoading on second resolve, got %v", err)
	}
}

func TestManagerInvalidConfig(t *testing.T) {
	c := params.DefaultConfig()
	c.ZoomBands = []params.BandConfig{{Name: "only", MinZoom: 4, MaxZoom: 8}}
	_, err := NewManager(ManagerConfig{Config: c, Requester: &queueRequester{}})
	if !errors.Is(err, params.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// Zoom lands in a band whose fetch is still pending: the old band stays.
func TestManagerZoomDuringFetch(t *testing.T) {
	m, _, req := newTestManager(t, params.DefaultConfig())
	m.OnZoom(3)
	req.pop()
	mustResolve(t, m, "50m")

	m.OnZoom(8)
	m.OnZoom(7)
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m visible while 10m loads, got %q", m.Visible())
	}
	// The viewport left the band before its fetch completed.
	m.OnZoom(3)
	req.pop()
	mustResolve(t, m, "10m")
	if m.Visible() != "50m" {
		t.Errorf("Expected 50m visible at zoom 3 after late load, got %q", m.Visible())
	}
	m.OnZoom(7)
	if m.Visible() != "10m" {
		t.Errorf("Expected 10m visible at zoom 7, got %q", m.Visible())
	}
}

func TestManagerThreeBands(t *testing.T) {
	inf := math.Inf(1)
	c := params.DefaultConfig()
	c.Prefetch = 0
	c.ZoomBands = []params.BandConfig{
		{Name: "110m", MinZoom: math.Inf(-1), MaxZoom: 3},
		{Name: "50m", MinZoom: 2, MaxZoom: inf},
		{Name: "10m", MinZoom: 6, MaxZoom: inf},
	}
	m, _, req := newTestManager(t, c)

	// 50m loads before 10m and 110m loads last;
	// each coarser band narrows against the finer loaded ones.
	m.OnZoom(7)
	name, _ := req.pop()
	mustResolve(t, m, name)
	m.OnZoom(2)
	for {
		name, ok := req.pop()
		if !ok {
			break
		}
		mustResolve(t, m, name)
	}

	cases := []struct {
		zoom float64
		want string
	}{
		{1, "110m"},
		{2, "50m"},
		{3, "50m"},
		{5, "50m"},
		{6, "10m"},
		{8, "10m"},
	}
	for _, c := range cases {
		m.OnZoom(c.zoom)
		if m.Visible() != c.want {
			t.Errorf("Expected %s at zoom %v, got %q", c.want, c.zoom, m.Visible())
		}
	}
	b110, _ := m.Band("110m")
	if b110.MaxZoom != 1 {
		t.Errorf("Expected 110m narrowed to max 1, got %v", b110.MaxZoom)
	}
}

// Whatever order zooms and fetch completions interleave in,
// at most one band is on the surface and loaded bands never overlap.
func TestManagerRandomZooms(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		t.Run(fmt.Sprint(run), func(t *testing.T) {
			m, rec, req := newTestManager(t, params.DefaultConfig())
			for i := 0; i < 40; i++ {
				m.OnZoom(float64(2 + rnd.Intn(7)))
				if rnd.Intn(3) == 0 {
					if name, ok := req.pop(); ok {
						mustResolve(t, m, name)
					}
				}
				visible := rec.VisibleBands()
				if len(visible) > 1 {
					t.Fatalf("Expected at most one visible band, got %v", visible)
				}
				if m.Visible() != "" && (len(visible) != 1 || visible[0] != m.Visible()) {
					t.Fatalf("Expected surface to show %q, got %v", m.Visible(), visible)
				}
				var containing int
				for _, s := range m.Snapshot() {
					if s.State == Loaded.String() {
						b, _ := m.Band(s.Name)
						if b.Contains(m.Zoom()) {
							containing++
						}
					}
				}
				if containing > 1 {
					t.Fatalf("Expected loaded bands to partition zoom %v, %d contain it", m.Zoom(), containing)
				}
			}
			for _, s := range m.Snapshot() {
				b, _ := m.Band(s.Name)
				if b.Requests() > 1 {
					t.Errorf("Expected at most one fetch of %s, got %d", s.Name, b.Requests())
				}
			}
		})
	}
}

func TestManagerFractionalZooms(t *testing.T) {
	m, _, req := newTestManager(t, params.DefaultConfig())
	m.OnZoom(5)
	for {
		name, ok := req.pop()
		if !ok {
			break
		}
		mustResolve(t, m, name)
	}

	containing := func() []string {
		var out []string
		for _, s := range m.Snapshot() {
			b, _ := m.Band(s.Name)
			if b.State == Loaded && b.Contains(m.Zoom()) {
				out = append(out, s.Name)
			}
		}
		return out
	}

	cases := []struct {
		from, zoom float64
		want       string
	}{
		{7, 5.5, "50m"},
		{4, 5.5, "50m"},
		{2, 5.999, "50m"},
		{8, 6.25, "10m"},
		{3, 2.5, "50m"},
	}
	for _, c := range cases {
		m.OnZoom(c.from)
		m.OnZoom(c.zoom)
		if m.Visible() != c.want {
			t.Errorf("Zoom %v from %v: expected %s visible, got %q", c.zoom, c.from, c.want, m.Visible())
		}
		if got := containing(); len(got) != 1 || got[0] != c.want {
			t.Errorf("Zoom %v from %v: expected only %s to contain the zoom, got %v", c.zoom, c.from, c.want, got)
		}
	}

	m.OnZoom(math.NaN())
	if m.Zoom() != 2 {
		t.Errorf("Expected NaN zoom ignored, got zoom %v", m.Zoom())
	}
}

func TestManagerDeflatedGroups(t *testing.T) {
	m, rec, req := newTestManager(t, params.DefaultConfig())
	m.OnZoom(2)
	req.pop()
	mustResolve(t, m, "50m")

	b, _ := m.Band("50m")
	if len(b.Groups) != 1 {
		t.Fatalf("Expected one marker group, got %d", len(b.Groups))
	}
	if _, ok := b.Groups.Marker("50m-small"); !ok {
		t.Errorf("Expected a marker for the small square")
	}
	if _, ok := b.Groups.Marker("50m-big"); ok {
		t.Errorf("Expected no marker for the big square")
	}
	cz := b.Groups[0].CollapseZoom
	if cz != 4 {
		t.Errorf("Expected collapse zoom 4, got %v", cz)
	}
	if !rec.Deflated["50m"][cz] {
		t.Errorf("Expected group deflated at zoom 2")
	}

	rec.Reset()
	m.OnZoom(3)
	if n := rec.Count("SetDeflated"); n != 0 {
		t.Errorf("Expected no deflate toggles at zoom 3, got %d", n)
	}
	m.OnZoom(4)
	if n := rec.Count("SetDeflated"); n != 1 {
		t.Errorf("Expected one deflate toggle at zoom 4, got %d", n)
	}
	if rec.Deflated["50m"][cz] {
		t.Errorf("Expected group inflated at zoom 4")
	}
}

func TestManagerLookup(t *testing.T) {
	m, _, req := newTestManager(t, params.DefaultConfig())
	if _, ok := m.Lookup("50m-big"); ok {
		t.Errorf("Expected no lookup before load")
	}
	m.OnZoom(2)
	req.pop()
	mustResolve(t, m, "50m")
	f, ok := m.Lookup("50m-big")
	if !ok || f.Metric != 120 {
		t.Errorf("Expected 50m-big with metric 120, got %v %v", f, ok)
	}
}

func TestManagerSharedIDsAcrossBands(t *testing.T) {
	m, rec, req := newTestManager(t, params.DefaultConfig())
	scale := choropleth.DefaultScale()
	hl := highlight.NewController(rec, scale, m, params.TooltipPlacementTop)

	m.OnZoom(4)
	req.pop()
	if err := m.Resolve("50m", sharedDoc(12), nil); err != nil {
		t.Fatal(err)
	}
	hl.Hover(highlight.HoverEvent{FeatureID: "FRA"})
	if st, _ := rec.LayerStyle("50m", "FRA"); st != scale.Highlighted(12) {
		t.Errorf("Expected 50m FRA highlighted, got %+v", st)
	}

	// 10m loads in the background while FRA is highlighted.
	m.OnZoom(5)
	req.pop()
	if err := m.Resolve("10m", sharedDoc(40), nil); err != nil {
		t.Fatal(err)
	}
	if m.Visible() != "50m" || hl.Highlighted() != "FRA" {
		t.Fatalf("Expected FRA still highlighted in 50m, got %q in %q", hl.Highlighted(), m.Visible())
	}
	if f, _ := m.Lookup("FRA"); f.Metric != 12 {
		t.Errorf("Expected lookup to resolve against 50m, got metric %v", f.Metric)
	}

	if st, _ := rec.LayerStyle("10m", "FRA"); st != scale.Choropleth(40) {
		t.Errorf("Expected 10m FRA painted with its own metric, got %+v", st)
	}

	hl.Unhover()
	if st, _ := rec.LayerStyle("50m", "FRA"); st != scale.Choropleth(12) {
		t.Errorf("Expected 50m FRA reverted, got %+v", st)
	}
	if st, _ := rec.LayerStyle("10m", "FRA"); st != scale.Choropleth(40) {
		t.Errorf("Expected 10m FRA untouched by the 50m revert, got %+v", st)
	}

	// After the swap the same id resolves to the 10m feature.
	m.OnZoom(6)
	if m.Visible() != "10m" {
		t.Fatalf("Expected 10m visible, got %q", m.Visible())
	}
	hl.Hover(highlight.HoverEvent{FeatureID: "FRA"})
	if st, _ := rec.LayerStyle("10m", "FRA"); st != scale.Highlighted(40) {
		t.Errorf("Expected 10m FRA highlighted with its own metric, got %+v", st)
	}
	hl.Hover(highlight.HoverEvent{FeatureID: "AND"})
	if st, _ := rec.LayerStyle("10m", "FRA"); st != scale.Choropleth(40) {
		t.Errorf("Expected 10m FRA reverted on hover of AND, got %+v", st)
	}
	if hl.Highlighted() != "AND" {
		t.Errorf("Expected AND highlighted, got %q", hl.Highlighted())
	}
}
