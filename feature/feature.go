// Package feature is the canonical in-memory form of a region,
// whatever shape of document it was decoded from.
package feature

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/choromap/params"
)

// Feature is immutable once decoded.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Bound      orb.Bound
	Properties geojson.Properties
	Name       string

	// Metric is NaN when the property is absent or not numeric.
	Metric float64
}

// Kind is the shape of a geometry document.
type Kind int

const (
	KindUnknown Kind = iota
	KindFeatureCollection
	KindTopology
)

func (k Kind) String() string {
	switch k {
	case KindFeatureCollection:
		return "FeatureCollection"
	case KindTopology:
		return "Topology"
	}
	return "unknown"
}

// Document is a decoded geometry document.
type Document struct {
	Kind     Kind
	Features []*Feature

	// Borders are boundaries shared by two or more features,
	// for stroke rendering. Only topology documents carry them.
	Borders orb.MultiLineString
}

// Schema names the fields read from feature properties.
type Schema params.SchemaConfig

func DefaultSchema() Schema {
	return Schema(params.DefaultSchemaConfig())
}

// newFeature builds a canonical feature. fallbackID is used when
// neither the document id nor the schema id property is present.
func newFeature(id any, g orb.Geometry, props geojson.Properties, schema Schema, fallbackID string) *Feature {
	if props == nil {
		props = geojson.Properties{}
	}
	f := &Feature{
		ID:         idString(id),
		Geometry:   g,
		Bound:      g.Bound(),
		Properties: props,
		Name:       props.MustString(schema.NameField, ""),
		Metric:     metricValue(props[schema.MetricField]),
	}
	if f.ID == "" && schema.IDField != "" {
		f.ID = idString(props[schema.IDField])
	}
	if f.ID == "" {
		f.ID = fallbackID
	}
	return f
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

func metricValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// Index maps feature id to feature. Later duplicates win.
func Index(features []*Feature) map[string]*Feature {
	m := make(map[string]*Feature, len(features))
	for _, f := range features {
		m[f.ID] = f
	}
	return m
}
