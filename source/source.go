// Package source fetches geometry documents by reference.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/singleflight"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/go-homedir"
)

// Source returns the bytes of the document named by ref.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// File reads documents from the local filesystem.
// Relative refs are resolved against Root.
type File struct {
	Root string
}

func (f File) Fetch(ctx context.Context, ref string) ([]byte, error) {
	p, err := f.path(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	slog.Debug("Read document", "d", "source", "path", p, "size", humanize.Bytes(uint64(len(data))))
	return data, nil
}

func (f File) path(ref string) (string, error) {
	ref = strings.TrimPrefix(ref, "file://")
	p, err := homedir.Expand(ref)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	root, err := homedir.Expand(f.Root)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, p), nil
}

// HTTP fetches documents with GET. Non-2xx responses are errors.
type HTTP struct {
	Client *http.Client
}

func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", ref, res.Status)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	slog.Debug("Fetched document", "d", "source", "url", ref, "size", humanize.Bytes(uint64(len(data))))
	return data, nil
}

// Mux picks a source by ref scheme; refs without a known scheme go to Default.
type Mux struct {
	Schemes map[string]Source
	Default Source
}

// NewMux serves http(s) refs over HTTP and everything else from files under root.
func NewMux(root string, timeout time.Duration) *Mux {
	h := NewHTTP(timeout)
	return &Mux{
		Schemes: map[string]Source{"http": h, "https": h},
		Default: File{Root: root},
	}
}

func (m *Mux) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if s, ok := m.Schemes[u.Scheme]; ok {
			return s.Fetch(ctx, ref)
		}
	}
	if m.Default == nil {
		return nil, fmt.Errorf("no source for %q", ref)
	}
	return m.Default.Fetch(ctx, ref)
}

// Shared collapses concurrent fetches of the same ref into one,
// and keeps results for TTL when TTL is positive.
// Sessions of one server share a single Shared.
type Shared struct {
	src   Source
	group singleflight.Group
	cache *ttlcache.Cache[string, []byte]
}

func NewShared(src Source, ttl time.Duration) *Shared {
	s := &Shared{src: src}
	if ttl > 0 {
		s.cache = ttlcache.New[string, []byte](ttlcache.WithTTL[string, []byte](ttl))
	}
	return s
}

// Start runs cache expiry until Stop. It is a no-op without a TTL.
func (s *Shared) Start() {
	if s.cache != nil {
		s.cache.Start()
	}
}

func (s *Shared) Stop() {
	if s.cache != nil {
		s.cache.Stop()
	}
}

type sharedResult struct {
	data []byte
	err  error
}

// Fetch returns the shared result. The fetch itself runs detached from
// any caller's cancellation, so callers joined on it are unaffected when
// the one that started it goes away; each caller still returns when its
// own ctx is done.
func (s *Shared) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if s.cache != nil {
		if item := s.cache.Get(ref); item != nil {
			return item.Value(), nil
		}
	}
	done := make(chan sharedResult, 1)
	go func() {
		v, err := s.group.Do(ref, func() (interface{}, error) {
			data, err := s.src.Fetch(context.WithoutCancel(ctx), ref)
			if err != nil {
				return nil, err
			}
			if s.cache != nil {
				s.cache.Set(ref, data, ttlcache.DefaultTTL)
			}
			return data, nil
		})
		if err != nil {
			done <- sharedResult{err: err}
			return
		}
		done <- sharedResult{data: v.([]byte)}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.data, r.err
	}
}

// Func adapts a function to Source.
type Func func(ctx context.Context, ref string) ([]byte, error)

func (f Func) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}
