package webd

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rotblauer/choromap/events"
	"github.com/rotblauer/choromap/params"
)

func TestWebDaemon_Serve(t *testing.T) {
	d := newTestWebDaemon(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("Expected pong, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestWebDaemon_recentBandEvents(t *testing.T) {
	d := newTestWebDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.logBandEvents(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for d.recent.Len() == 0 && time.Now().Before(deadline) {
		events.BandFeed.Send(events.BandEvent{Session: "s1", Band: "10m", State: "loading", Err: errors.New("404")})
		time.Sleep(10 * time.Millisecond)
	}
	items := d.recent.Items()
	if len(items) == 0 {
		t.Fatal("Expected a recorded band event")
	}
	if items[0].Band != "10m" || items[0].Error != "404" {
		t.Errorf("Unexpected event %+v", items[0])
	}
}

func TestNewWebDaemon_invalidConfig(t *testing.T) {
	c := params.DefaultConfig()
	c.Thresholds = nil
	if _, err := NewWebDaemon(nil, c); !errors.Is(err, params.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
