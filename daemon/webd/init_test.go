package webd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotblauer/choromap/params"
)

const testCountries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "FRA",
     "geometry": {"type": "Polygon", "coordinates": [[[0,40],[8,40],[8,50],[0,50],[0,40]]]},
     "properties": {"NAME": "France", "all": 12}},
    {"type": "Feature", "id": "AND",
     "geometry": {"type": "Polygon", "coordinates": [[[1.4,42.4],[1.8,42.4],[1.8,42.6],[1.4,42.6],[1.4,42.4]]]},
     "properties": {"NAME": "Andorra", "all": 0}}
  ]
}`

// newTestWebDaemon creates a WebDaemon reading both default bands
// from a temporary directory.
func newTestWebDaemon(t *testing.T) *WebDaemon {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"50m", "10m"} {
		if err := os.WriteFile(filepath.Join(dir, "data", name+".topojson"), []byte(testCountries), 0644); err != nil {
			t.Fatal(err)
		}
	}
	mapConfig := params.DefaultConfig()
	mapConfig.SourceRoot = dir
	d, err := NewWebDaemon(params.DefaultTestWebDaemonConfig(), mapConfig)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.cancel)
	return d
}
