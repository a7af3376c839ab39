// Package session runs one map instance: a single event loop owning
// band state and the highlight, fed by viewport events and fetch results.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/highlight"
	"github.com/rotblauer/choromap/metrics"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/resolution"
	"github.com/rotblauer/choromap/source"
	"github.com/rotblauer/choromap/surface"
)

var (
	ErrClosed     = errors.New("session closed")
	ErrNotStarted = errors.New("session not started")
)

type Config struct {
	ID      string
	Config  *params.Config
	Surface surface.Surface
	Source  source.Source

	// Inbox is the event queue length.
	Inbox int
}

type Session struct {
	id      string
	config  *params.Config
	schema  feature.Schema
	src     source.Source
	manager *resolution.Manager
	hl      *highlight.Controller

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool

	// ctx bounds fetches; set by Run.
	ctx    context.Context
	logger *slog.Logger
}

func New(c Config) (*Session, error) {
	if c.Config == nil {
		c.Config = params.DefaultConfig()
	}
	if c.Source == nil {
		return nil, errors.New("session: nil source")
	}
	if c.Surface == nil {
		c.Surface = surface.Discard{}
	}
	if c.Inbox <= 0 {
		c.Inbox = 64
	}
	scale, err := choropleth.ScaleFromConfig(c.Config)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:     c.ID,
		config: c.Config,
		schema: feature.Schema(c.Config.Schema),
		src:    c.Source,
		inbox:  make(chan func(), c.Inbox),
		done:   make(chan struct{}),
		ctx:    context.Background(),
		logger: slog.With("d", "session", "id", c.ID),
	}
	s.manager, err = resolution.NewManager(resolution.ManagerConfig{
		Config:    c.Config,
		Surface:   c.Surface,
		Requester: resolution.RequesterFunc(s.request),
		Scale:     scale,
		Session:   c.ID,
	})
	if err != nil {
		return nil, err
	}
	s.hl = highlight.NewController(c.Surface, scale, s.manager, c.Config.TooltipPlacement)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Run handles events until ctx is done. Fetches started by the session
// are cancelled with it. A session runs once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session: already run")
	}
	s.ctx = ctx
	metrics.Sessions.Inc(1)
	s.logger.Info("Session started")
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session stopped", "zoom", s.manager.Zoom(), "band", s.manager.Visible())
			return ctx.Err()
		case fn := <-s.inbox:
			fn()
		}
	}
}

// Running reports whether Run has been called.
func (s *Session) Running() bool {
	return s.running.Load()
}

// post queues fn on the loop. It fails once the loop has stopped,
// and before Run when the inbox is full.
func (s *Session) post(fn func()) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- fn:
		return nil
	default:
	}
	if !s.running.Load() {
		return fmt.Errorf("%w: inbox full", ErrNotStarted)
	}
	select {
	case <-s.done:
		return ErrClosed
	case s.inbox <- fn:
		return nil
	}
}

// Do runs fn on the loop and waits for it. It fails before Run.
func (s *Session) Do(fn func(m *resolution.Manager, hl *highlight.Controller)) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if !s.running.Load() {
		return ErrNotStarted
	}
	ran := make(chan struct{})
	if err := s.post(func() {
		defer close(ran)
		fn(s.manager, s.hl)
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) Zoom(zoom float64) error {
	return s.post(func() {
		s.swapping(func() { s.manager.OnZoom(zoom) })
	})
}

// swapping runs fn and drops the highlight if fn changed the visible band;
// the highlighted shape belongs to a hidden layer then.
func (s *Session) swapping(fn func()) {
	before := s.manager.Visible()
	fn()
	if s.manager.Visible() != before {
		s.hl.Unhover()
	}
}

// PointerEnter hovers a feature. anchor may be nil when the pointer location is unknown.
func (s *Session) PointerEnter(featureID string, anchor *orb.Point) error {
	ev := highlight.HoverEvent{FeatureID: featureID}
	if anchor != nil {
		ev.Anchor, ev.HasAnchor = *anchor, true
	}
	return s.post(func() { s.hl.Hover(ev) })
}

func (s *Session) PointerLeave() error {
	return s.post(s.hl.Unhover)
}

// Click is accepted and has no effect.
func (s *Session) Click(featureID string) error {
	return s.post(func() {
		s.logger.Debug("Click", "id", featureID)
	})
}

// request runs on the loop; the fetch does not.
func (s *Session) request(band params.BandConfig) {
	ctx := s.ctx
	go func() {
		doc, err := s.fetch(ctx, band)
		if perr := s.post(func() {
			s.swapping(func() {
				// The error is logged and counted by the manager.
				_ = s.manager.Resolve(band.Name, doc, err)
			})
		}); perr != nil {
			s.logger.Debug("Dropped fetch result", "band", band.Name, "error", perr)
		}
	}()
}

func (s *Session) fetch(ctx context.Context, band params.BandConfig) (*feature.Document, error) {
	data, err := s.src.Fetch(ctx, band.Source)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", band.Source, err)
	}
	doc, err := feature.Decode(data, s.schema)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", band.Source, err)
	}
	return doc, nil
}
