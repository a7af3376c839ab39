package feature

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

var ErrUnknownDocument = errors.New("unknown geometry document (not a FeatureCollection or Topology)")

// Sniff reports the document kind from its top-level type member.
func Sniff(data []byte) Kind {
	switch gjson.GetBytes(data, "type").String() {
	case "FeatureCollection":
		return KindFeatureCollection
	case "Topology":
		return KindTopology
	}
	// Some writers omit the FeatureCollection type.
	if gjson.GetBytes(data, "features").IsArray() {
		return KindFeatureCollection
	}
	return KindUnknown
}

// Decode resolves either document shape into canonical features.
// Downstream code never looks at Kind to find features.
func Decode(data []byte, schema Schema) (*Document, error) {
	switch kind := Sniff(data); kind {
	case KindFeatureCollection:
		return decodeFeatureCollection(data, schema)
	case KindTopology:
		return decodeTopology(data, schema)
	}
	return nil, ErrUnknownDocument
}

func decodeFeatureCollection(data []byte, schema Schema) (*Document, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	doc := &Document{Kind: KindFeatureCollection}
	for i, f := range fc.Features {
		if f.Geometry == nil || !IsPolygonal(f.Geometry) {
			slog.Debug("Skipping non-polygonal feature", "index", i, "id", f.ID)
			continue
		}
		doc.Features = append(doc.Features, newFeature(f.ID, f.Geometry, f.Properties, schema, strconv.Itoa(i)))
	}
	return doc, nil
}
