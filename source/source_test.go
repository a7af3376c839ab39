package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data", "50m.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	f := File{Root: dir}
	for _, ref := range []string{"data/50m.json", filepath.Join(dir, "data", "50m.json"), "file://data/50m.json"} {
		got, err := f.Fetch(context.Background(), ref)
		if err != nil {
			t.Errorf("%s: %v", ref, err)
			continue
		}
		if string(got) != `{}` {
			t.Errorf("Expected {}, got %s", got)
		}
	}
	if _, err := f.Fetch(context.Background(), "data/missing.json"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"type":"Topology"}`))
	}))
	defer srv.Close()

	h := NewHTTP(time.Second)
	got, err := h.Fetch(context.Background(), srv.URL+"/10m.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"type":"Topology"}` {
		t.Errorf("Unexpected body %s", got)
	}
	if _, err := h.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Errorf("Expected error for 404")
	}
}

func TestMux(t *testing.T) {
	var hits []string
	rec := func(name string) Source {
		return Func(func(ctx context.Context, ref string) ([]byte, error) {
			hits = append(hits, name)
			return nil, nil
		})
	}
	m := &Mux{Schemes: map[string]Source{"https": rec("https")}, Default: rec("file")}
	for _, ref := range []string{"https://example.com/a.json", "data/a.json", "/abs/a.json", "s3://bucket/a.json"} {
		m.Fetch(context.Background(), ref)
	}
	want := []string{"https", "file", "file", "file"}
	for i := range want {
		if hits[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, hits)
			break
		}
	}
}

func TestSharedCollapsesConcurrentFetches(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	slow := Func(func(ctx context.Context, ref string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte(ref), nil
	})
	s := NewShared(slow, 0)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := s.Fetch(context.Background(), "data/10m.json")
			if err != nil {
				t.Error(err)
			}
			results[i] = string(b)
		}(i)
	}
	// Let the goroutines pile up behind the first fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n < 1 || n > int32(len(results)) {
		t.Errorf("Expected collapsed fetches, got %d", n)
	}
	for _, r := range results {
		if r != "data/10m.json" {
			t.Errorf("Expected shared result, got %q", r)
		}
	}

	// Without a TTL nothing is kept.
	s.Fetch(context.Background(), "data/10m.json")
	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("Expected a new fetch after completion, got %d calls", n)
	}
}

func TestSharedTTL(t *testing.T) {
	var calls int32
	src := Func(func(ctx context.Context, ref string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("x"), nil
	})
	s := NewShared(src, time.Minute)
	s.Start()
	defer s.Stop()
	for i := 0; i < 3; i++ {
		if _, err := s.Fetch(context.Background(), "a"); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls)
	}
}

func TestSharedErrorNotKept(t *testing.T) {
	var calls int32
	src := Func(func(ctx context.Context, ref string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	})
	s := NewShared(src, time.Minute)
	s.Fetch(context.Background(), "a")
	s.Fetch(context.Background(), "a")
	if calls != 2 {
		t.Errorf("Expected failures not cached, got %d fetches", calls)
	}
}

func TestSharedOutlivesStartingCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	src := Func(func(ctx context.Context, ref string) ([]byte, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte(ref), nil
	})
	s := NewShared(src, 0)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctxA, "data/10m.json")
		errA <- err
	}()
	<-started

	type result struct {
		data []byte
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		b, err := s.Fetch(context.Background(), "data/10m.json")
		resB <- result{b, err}
	}()
	// Let B join the fetch A started.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the cancelled caller to return context.Canceled, got %v", err)
	}
	close(release)

	r := <-resB
	if r.err != nil {
		t.Fatalf("Expected the joined caller to be unaffected, got %v", r.err)
	}
	if string(r.data) != "data/10m.json" {
		t.Errorf("Expected shared result, got %q", r.data)
	}
}
