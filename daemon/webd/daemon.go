// Package webd serves choropleth maps to browsers: one websocket
// connection per map, plus a small JSON API.
package webd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/events"
	"github.com/rotblauer/choromap/highlight"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/resolution"
	"github.com/rotblauer/choromap/session"
	"github.com/rotblauer/choromap/source"
)

type WebDaemon struct {
	Config    *params.WebDaemonConfig
	MapConfig *params.Config

	logger         *slog.Logger
	melodyInstance *melody.Melody
	source         *source.Shared
	sessions       *sessionSet
	started        time.Time

	// recent holds the last band transitions of any session, for /stats.
	recent *common.Recent[bandEventView]

	// ctx bounds every session; cancelled by Run's context.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebDaemon(config *params.WebDaemonConfig, mapConfig *params.Config) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	if mapConfig == nil {
		mapConfig = params.DefaultConfig()
	}
	if err := mapConfig.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &WebDaemon{
		Config:    config,
		MapConfig: mapConfig,
		logger:    slog.With("d", "web"),
		source:    source.NewShared(source.NewMux(mapConfig.SourceRoot, config.FetchTimeout), config.SourceCacheTTL),
		sessions:  &sessionSet{m: map[string]*session.Session{}},
		started:   time.Now(),
		recent:    common.NewRecent[bandEventView](recentBandEvents),
		ctx:       ctx,
		cancel:    cancel,
	}
	d.initMelody()
	return d, nil
}

// Run listens and serves until ctx is done, then closes every session.
func (s *WebDaemon) Run(ctx context.Context) error {
	listener, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *WebDaemon) Serve(ctx context.Context, listener net.Listener) error {
	s.source.Start()
	defer s.source.Stop()
	go s.logBandEvents(ctx)

	server := &http.Server{Handler: s.NewRouter()}
	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(listener)
	}()
	s.logger.Info("Web daemon listening",
		"network", s.Config.Network, "address", listener.Addr().String(), "socket", s.Config.SocketPath)

	select {
	case err := <-errs:
		s.cancel()
		return err
	case <-ctx.Done():
	}
	s.logger.Info("Web daemon stopping", "sessions", s.sessions.len())
	s.cancel()
	_ = s.melodyInstance.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	router.Path(s.Config.SocketPath).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.melodyInstance.HandleRequest(w, r); err != nil {
			s.logger.Warn("Websocket upgrade failed", "error", err)
		}
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/config").HandlerFunc(s.handleConfig).Methods(http.MethodGet)
	apiJSONRoutes.Path("/legend").HandlerFunc(s.handleLegend).Methods(http.MethodGet)
	apiJSONRoutes.Path("/stats").HandlerFunc(s.handleStats).Methods(http.MethodGet)

	return router
}

const recentBandEvents = 50

type bandEventView struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session"`
	Band    string    `json:"band"`
	State   string    `json:"state"`
	Error   string    `json:"error,omitempty"`
}

// logBandEvents logs band transitions of every session.
func (s *WebDaemon) logBandEvents(ctx context.Context) {
	ch := make(chan events.BandEvent, 16)
	sub := events.BandFeed.Subscribe(ch)
	defer sub.Unsubscribe()
	for {
		select {
		case ev := <-ch:
			v := bandEventView{Time: time.Now(), Session: ev.Session, Band: ev.Band, State: ev.State}
			if ev.Err != nil {
				v.Error = ev.Err.Error()
			}
			s.recent.Add(v)
			if ev.Err != nil {
				s.logger.Warn("Band event", "session", ev.Session, "band", ev.Band, "state", ev.State, "error", ev.Err)
				continue
			}
			s.logger.Debug("Band event", "session", ev.Session, "band", ev.Band, "state", ev.State,
				"features", ev.Features, "markers", ev.Markers)
		case err := <-sub.Err():
			if err != nil {
				s.logger.Error("Band event subscription failed", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// sessionSet tracks live map sessions for /stats.
type sessionSet struct {
	mu sync.Mutex
	m  map[string]*session.Session
}

func (ss *sessionSet) add(sess *session.Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.m[sess.ID()] = sess
}

func (ss *sessionSet) remove(sess *session.Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.m, sess.ID())
}

func (ss *sessionSet) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}

func (ss *sessionSet) list() []*session.Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]*session.Session, 0, len(ss.m))
	for _, sess := range ss.m {
		out = append(out, sess)
	}
	return out
}

// snapshot asks each session loop for its band state.
func (ss *sessionSet) snapshot() map[string][]resolution.BandStatus {
	out := map[string][]resolution.BandStatus{}
	for _, sess := range ss.list() {
		var bands []resolution.BandStatus
		err := sess.Do(func(m *resolution.Manager, _ *highlight.Controller) {
			bands = m.Snapshot()
		})
		if err == nil {
			out[sess.ID()] = bands
		}
	}
	return out
}
