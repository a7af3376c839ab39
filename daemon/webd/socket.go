package webd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/olahol/melody"
	"github.com/paulmach/orb"
	"github.com/rotblauer/choromap/session"
)

type websocketAction string

const (
	websocketActionZoom         websocketAction = "zoom"
	websocketActionPointerEnter websocketAction = "pointerenter"
	websocketActionPointerLeave websocketAction = "pointerleave"
	websocketActionClick        websocketAction = "click"
)

var ErrBadMessage = errors.New("bad websocket message")

// socketMessage is a viewport event from the browser map.
type socketMessage struct {
	Action    websocketAction `json:"action"`
	Zoom      *float64        `json:"zoom,omitempty"`
	FeatureID string          `json:"featureId,omitempty"`
	Anchor    *orb.Point      `json:"anchor,omitempty"`
}

func decodeSocketMessage(msg []byte) (socketMessage, error) {
	m := socketMessage{}
	if err := json.Unmarshal(msg, &m); err != nil {
		return m, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	switch m.Action {
	case websocketActionZoom:
		if m.Zoom == nil {
			return m, fmt.Errorf("%w: zoom without zoom", ErrBadMessage)
		}
	case websocketActionPointerEnter, websocketActionClick:
		if m.FeatureID == "" {
			return m, fmt.Errorf("%w: %s without featureId", ErrBadMessage, m.Action)
		}
	case websocketActionPointerLeave:
	default:
		return m, fmt.Errorf("%w: unknown action %q", ErrBadMessage, m.Action)
	}
	return m, nil
}

// dispatch hands a decoded message to the map session.
func dispatch(sess *session.Session, m socketMessage) error {
	switch m.Action {
	case websocketActionZoom:
		return sess.Zoom(*m.Zoom)
	case websocketActionPointerEnter:
		return sess.PointerEnter(m.FeatureID, m.Anchor)
	case websocketActionPointerLeave:
		return sess.PointerLeave()
	case websocketActionClick:
		return sess.Click(m.FeatureID)
	}
	return nil
}

const (
	sessionKey = "session"
	cancelKey  = "cancel"
)

var sessionSeq atomic.Uint64

// initMelody sets up the websocket handler.
// Every connection is one map with its own session loop.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(ms *melody.Session) {
		id := fmt.Sprintf("%d-%s", sessionSeq.Add(1), ms.Request.RemoteAddr)
		surf, err := NewWebSurface(ms, s.Config.StyleCacheSize)
		if err != nil {
			s.logger.Error("Failed to create surface", "error", err)
			ms.Close()
			return
		}
		sess, err := session.New(session.Config{
			ID:      id,
			Config:  s.MapConfig,
			Surface: surf,
			Source:  s.source,
		})
		if err != nil {
			s.logger.Error("Failed to create session", "error", err)
			ms.Close()
			return
		}
		ctx, cancel := context.WithCancel(s.ctx)
		ms.Set(sessionKey, sess)
		ms.Set(cancelKey, cancel)
		s.sessions.add(sess)
		go func() {
			_ = sess.Run(ctx)
			s.sessions.remove(sess)
		}()
		s.logger.Info("Websocket connected", "session", id)
	})

	s.melodyInstance.HandleMessage(func(ms *melody.Session, msg []byte) {
		v, ok := ms.Get(sessionKey)
		if !ok {
			return
		}
		sess := v.(*session.Session)
		m, err := decodeSocketMessage(msg)
		if err != nil {
			s.logger.Warn("Dropped websocket message", "session", sess.ID(), "error", err)
			return
		}
		if err := dispatch(sess, m); err != nil {
			s.logger.Warn("Failed to dispatch websocket message", "session", sess.ID(), "action", m.Action, "error", err)
		}
	})

	s.melodyInstance.HandleDisconnect(func(ms *melody.Session) {
		if v, ok := ms.Get(cancelKey); ok {
			v.(context.CancelFunc)()
		}
		s.logger.Info("Websocket disconnected", "remote", ms.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(ms *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", ms.Request.RemoteAddr, "error", e)
	})
}
