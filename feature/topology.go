package feature

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// topology is a TopoJSON document: geometries reference shared arcs by index.
// https://github.com/topojson/topojson-specification
type topology struct {
	Type      string                   `json:"type"`
	Transform *topoTransform           `json:"transform"`
	Objects   map[string]*topoGeometry `json:"objects"`
	Arcs      [][][]float64            `json:"arcs"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []*topoGeometry `json:"geometries"`
}

func decodeTopology(data []byte, schema Schema) (*Document, error) {
	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	arcs := topo.decodeArcs()

	names := make([]string, 0, len(topo.Objects))
	for name := range topo.Objects {
		if schema.Object != "" && name != schema.Object {
			continue
		}
		names = append(names, name)
	}
	if schema.Object != "" && len(names) == 0 {
		return nil, fmt.Errorf("decode topology: no object %q", schema.Object)
	}
	sort.Strings(names)

	doc := &Document{Kind: KindTopology}
	// arcUsers counts the features referencing each arc.
	arcUsers := make([]int, len(arcs))
	for _, name := range names {
		var leaves []*topoGeometry
		flattenTopoGeometry(topo.Objects[name], &leaves)
		for i, g := range leaves {
			geom, used, err := g.toOrb(arcs)
			if err != nil {
				return nil, fmt.Errorf("decode topology object %q geometry %d: %w", name, i, err)
			}
			if geom == nil {
				slog.Debug("Skipping non-polygonal topology geometry", "object", name, "index", i, "type", g.Type)
				continue
			}
			for a := range used {
				arcUsers[a]++
			}
			fallback := name + ":" + strconv.Itoa(i)
			doc.Features = append(doc.Features, newFeature(g.ID, geom, geojson.Properties(g.Properties), schema, fallback))
		}
	}
	for a, n := range arcUsers {
		if n > 1 {
			doc.Borders = append(doc.Borders, arcs[a])
		}
	}
	return doc, nil
}

func flattenTopoGeometry(g *topoGeometry, out *[]*topoGeometry) {
	if g == nil {
		return
	}
	if g.Type == "GeometryCollection" {
		for _, c := range g.Geometries {
			flattenTopoGeometry(c, out)
		}
		return
	}
	*out = append(*out, g)
}

// decodeArcs returns absolute arc coordinates, undoing the
// delta encoding and quantization when a transform is present.
func (t *topology) decodeArcs() []orb.LineString {
	out := make([]orb.LineString, len(t.Arcs))
	for i, arc := range t.Arcs {
		ls := make(orb.LineString, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform == nil {
				ls = append(ls, orb.Point{pos[0], pos[1]})
				continue
			}
			x += pos[0]
			y += pos[1]
			ls = append(ls, orb.Point{
				x*t.Transform.Scale[0] + t.Transform.Translate[0],
				y*t.Transform.Scale[1] + t.Transform.Translate[1],
			})
		}
		out[i] = ls
	}
	return out
}

// toOrb converts a polygonal topology geometry. It returns nil for other types,
// and the set of arc indexes the geometry references.
func (g *topoGeometry) toOrb(arcs []orb.LineString) (orb.Geometry, map[int]struct{}, error) {
	used := map[int]struct{}{}
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return nil, nil, err
		}
		p, err := stitchPolygon(rings, arcs, used)
		if err != nil {
			return nil, nil, err
		}
		return p, used, nil
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return nil, nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := stitchPolygon(rings, arcs, used)
			if err != nil {
				return nil, nil, err
			}
			mp = append(mp, p)
		}
		return mp, used, nil
	}
	return nil, nil, nil
}

func stitchPolygon(rings [][]int, arcs []orb.LineString, used map[int]struct{}) (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(rings))
	for _, refs := range rings {
		var ring orb.Ring
		for k, ref := range refs {
			idx, reverse := ref, false
			if ref < 0 {
				// ~ref: the arc is traversed backwards.
				idx, reverse = -ref-1, true
			}
			if idx >= len(arcs) {
				return nil, fmt.Errorf("arc %d out of range (%d arcs)", idx, len(arcs))
			}
			used[idx] = struct{}{}
			pts := arcs[idx]
			if reverse {
				pts = reversed(pts)
			}
			// Consecutive arcs share their joining point.
			if k > 0 && len(pts) > 0 {
				pts = pts[1:]
			}
			ring = append(ring, pts...)
		}
		p = append(p, ring)
	}
	return p, nil
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, pt := range ls {
		out[len(ls)-1-i] = pt
	}
	return out
}
