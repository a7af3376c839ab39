// Package metrics counts engine activity in a go-ethereum metrics registry.
package metrics

import (
	"sort"

	"github.com/ethereum/go-ethereum/metrics"
)

func init() {
	// The metrics package hands out no-op meters unless enabled.
	metrics.Enabled = true
}

// Registry holds every engine counter; /stats reads it.
var Registry = metrics.NewRegistry()

var (
	FetchRequested = metrics.NewRegisteredCounter("resolution/fetch", Registry)
	FetchFailed    = metrics.NewRegisteredCounter("resolution/fetch/fail", Registry)
	BandLoaded     = metrics.NewRegisteredCounter("resolution/loaded", Registry)
	BandSwapped    = metrics.NewRegisteredCounter("resolution/swap", Registry)
	MarkersAdded   = metrics.NewRegisteredCounter("deflate/markers", Registry)
	Hovered        = metrics.NewRegisteredCounter("highlight/hover", Registry)
	HoverStale     = metrics.NewRegisteredCounter("highlight/hover/stale", Registry)
	Sessions       = metrics.NewRegisteredCounter("session/open", Registry)
)

// Counts snapshots every counter in the registry by name.
func Counts() map[string]int64 {
	out := map[string]int64{}
	Registry.Each(func(name string, i interface{}) {
		if c, ok := i.(metrics.Counter); ok {
			out[name] = c.Snapshot().Count()
		}
	})
	return out
}

// Names lists registered counter names, sorted.
func Names() []string {
	counts := Counts()
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
