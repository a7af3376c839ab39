package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidConfig = errors.New("invalid config")

// TooltipPlacement is where a tooltip is anchored when the pointer
// location is not known.
type TooltipPlacement string

const (
	TooltipPlacementTop    TooltipPlacement = "top"
	TooltipPlacementCenter TooltipPlacement = "center"
)

// BandConfig binds a geometry source to an inclusive zoom interval.
// MinZoom and MaxZoom may be -Inf and +Inf.
type BandConfig struct {
	Name    string  `mapstructure:"name" json:"name"`
	MinZoom float64 `mapstructure:"minZoom" json:"minZoom"`
	MaxZoom float64 `mapstructure:"maxZoom" json:"maxZoom"`
	Source  string  `mapstructure:"source" json:"source"`
}

// Contains reports whether zoom is within the configured interval.
func (b BandConfig) Contains(zoom float64) bool {
	return b.MinZoom <= zoom && zoom <= b.MaxZoom
}

// SchemaConfig names the fields read from each feature of a geometry document.
type SchemaConfig struct {
	// IDField is a property used as the feature id when the feature has none.
	IDField string `mapstructure:"idField" json:"idField"`

	// NameField is the display name property.
	NameField string `mapstructure:"nameField" json:"nameField"`

	// MetricField is the numeric property driving color.
	MetricField string `mapstructure:"metricField" json:"metricField"`

	// Object limits topology decoding to one named object.
	// Empty means all objects.
	Object string `mapstructure:"object" json:"object"`
}

type Config struct {
	// Thresholds are ascending bucket boundaries for the color scale.
	Thresholds []float64 `mapstructure:"thresholds" json:"thresholds"`

	// Colors has one color per threshold; Colors[i] paints metrics
	// above Thresholds[i] and not above Thresholds[i+1].
	Colors      []string `mapstructure:"colors" json:"colors"`
	NoDataColor string   `mapstructure:"noDataColor" json:"noDataColor"`

	ZoomBands []BandConfig `mapstructure:"zoomBands" json:"zoomBands"`

	// MapMinZoom and MapMaxZoom are the zoom limits of the map widget.
	// The bands must cover this range.
	MapMinZoom float64 `mapstructure:"mapMinZoom" json:"mapMinZoom"`
	MapMaxZoom float64 `mapstructure:"mapMaxZoom" json:"mapMaxZoom"`

	// ZoomStep is the zoom granularity of the map widget (zoomSnap).
	ZoomStep float64 `mapstructure:"zoomStep" json:"zoomStep"`

	// Prefetch starts a band's fetch this many zoom levels
	// before the viewport enters its interval.
	Prefetch float64 `mapstructure:"prefetch" json:"prefetch"`

	MinDeflatedPixelSize float64          `mapstructure:"minDeflatedPixelSize" json:"minDeflatedPixelSize"`
	TooltipPlacement     TooltipPlacement `mapstructure:"tooltipPlacement" json:"tooltipPlacement"`

	Schema SchemaConfig `mapstructure:"schema" json:"schema"`

	// SourceRoot is the directory relative file sources are read from.
	SourceRoot string `mapstructure:"sourceRoot" json:"-"`
}

var DefaultThresholds = []float64{0, 10, 30, 100}

var DefaultColors = []string{"#00af3f", "#008c32", "#006925", "#004619"}

const DefaultNoDataColor = "#C6C6C6"

func DefaultSchemaConfig() SchemaConfig {
	return SchemaConfig{
		IDField:     "id",
		NameField:   "NAME",
		MetricField: "all",
	}
}

// DefaultConfig is the students map: 50m countries everywhere,
// swapped for 10m above zoom 5 (fetched one level early).
func DefaultConfig() *Config {
	return &Config{
		Thresholds:  append([]float64{}, DefaultThresholds...),
		Colors:      append([]string{}, DefaultColors...),
		NoDataColor: DefaultNoDataColor,
		ZoomBands: []BandConfig{
			{Name: "50m", MinZoom: math.Inf(-1), MaxZoom: math.Inf(1), Source: "data/50m.topojson"},
			{Name: "10m", MinZoom: 6, MaxZoom: math.Inf(1), Source: "data/10m.topojson"},
		},
		MapMinZoom:           2,
		MapMaxZoom:           8,
		ZoomStep:             1,
		Prefetch:             1,
		MinDeflatedPixelSize: 5,
		TooltipPlacement:     TooltipPlacementTop,
		Schema:               DefaultSchemaConfig(),
		SourceRoot:           ".",
	}
}

// Validate checks thresholds and that the bands partition
// [MapMinZoom, MapMaxZoom] once narrowed.
func (c *Config) Validate() error {
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds", ErrInvalidConfig)
	}
	if !sort.Float64sAreSorted(c.Thresholds) {
		return fmt.Errorf("%w: thresholds not ascending: %v", ErrInvalidConfig, c.Thresholds)
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i] == c.Thresholds[i-1] {
			return fmt.Errorf("%w: duplicate threshold %v", ErrInvalidConfig, c.Thresholds[i])
		}
	}
	if len(c.Colors) != len(c.Thresholds) {
		return fmt.Errorf("%w: %d colors for %d thresholds", ErrInvalidConfig, len(c.Colors), len(c.Thresholds))
	}
	if c.ZoomStep <= 0 {
		return fmt.Errorf("%w: zoomStep must be positive", ErrInvalidConfig)
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("%w: prefetch must not be negative", ErrInvalidConfig)
	}
	if c.MapMinZoom > c.MapMaxZoom {
		return fmt.Errorf("%w: mapMinZoom %v > mapMaxZoom %v", ErrInvalidConfig, c.MapMinZoom, c.MapMaxZoom)
	}
	switch c.TooltipPlacement {
	case TooltipPlacementTop, TooltipPlacementCenter:
	default:
		return fmt.Errorf("%w: tooltipPlacement %q", ErrInvalidConfig, c.TooltipPlacement)
	}
	return ValidateBands(c.ZoomBands, c.MapMinZoom, c.MapMaxZoom, c.ZoomStep)
}

// ValidateBands checks that bands are ordered coarse to fine
// and that their union covers [min, max] without gaps.
// Overlap is allowed; it is resolved at load time in favor of the later band.
func ValidateBands(bands []BandConfig, min, max, step float64) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: no zoom bands", ErrInvalidConfig)
	}
	seen := map[string]bool{}
	for i, b := range bands {
		if b.Name == "" {
			return fmt.Errorf("%w: band %d has no name", ErrInvalidConfig, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate band %q", ErrInvalidConfig, b.Name)
		}
		seen[b.Name] = true
		if b.MinZoom > b.MaxZoom {
			return fmt.Errorf("%w: band %q minZoom > maxZoom", ErrInvalidConfig, b.Name)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if !(b.MinZoom > prev.MinZoom) || (!math.IsInf(prev.MinZoom, -1) && b.MinZoom-prev.MinZoom < step) {
			return fmt.Errorf("%w: band %q must start at least one step above %q", ErrInvalidConfig, b.Name, prev.Name)
		}
		if b.MaxZoom < prev.MaxZoom {
			return fmt.Errorf("%w: band %q ends below %q", ErrInvalidConfig, b.Name, prev.Name)
		}
	}

	// Walk the covered range upward from min.
	covered := math.Inf(-1)
	if bands[0].MinZoom > min {
		return fmt.Errorf("%w: zoom %v not covered", ErrInvalidConfig, min)
	}
	for i, b := range bands {
		if i > 0 && covered < max && b.MinZoom > covered+step {
			return fmt.Errorf("%w: gap below band %q", ErrInvalidConfig, b.Name)
		}
		covered = math.Max(covered, b.MaxZoom)
	}
	if covered < max {
		return fmt.Errorf("%w: zoom %v not covered", ErrInvalidConfig, max)
	}
	return nil
}
