// Package choropleth holds the stateless paint lookups of the map:
// metric to bucket color, paint styles, legend entries and tooltip text.
package choropleth

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotblauer/choromap/params"
)

// Scale maps a metric to a discrete bucket color.
// A metric m is in bucket i when m > Thresholds[i] and m <= Thresholds[i+1];
// a metric equal to a threshold belongs to the bucket below it.
// Metrics at or below the first threshold, and NaN, are no-data.
type Scale struct {
	thresholds []float64
	colors     []string
	noData     string
}

func NewScale(thresholds []float64, colors []string, noData string) (*Scale, error) {
	if len(thresholds) == 0 || len(thresholds) != len(colors) {
		return nil, fmt.Errorf("%w: %d thresholds, %d colors", params.ErrInvalidConfig, len(thresholds), len(colors))
	}
	if !sort.Float64sAreSorted(thresholds) {
		return nil, fmt.Errorf("%w: thresholds not ascending", params.ErrInvalidConfig)
	}
	return &Scale{
		thresholds: append([]float64{}, thresholds...),
		colors:     append([]string{}, colors...),
		noData:     noData,
	}, nil
}

// DefaultScale is the students count scale.
func DefaultScale() *Scale {
	s, err := NewScale(params.DefaultThresholds, params.DefaultColors, params.DefaultNoDataColor)
	if err != nil {
		panic(err)
	}
	return s
}

func ScaleFromConfig(c *params.Config) (*Scale, error) {
	return NewScale(c.Thresholds, c.Colors, c.NoDataColor)
}

// Bucket returns the bucket index of metric, or -1 for no-data.
func (s *Scale) Bucket(metric float64) int {
	if math.IsNaN(metric) {
		return -1
	}
	// First threshold not strictly below metric.
	i := sort.Search(len(s.thresholds), func(i int) bool {
		return s.thresholds[i] >= metric
	})
	return i - 1
}

// ColorFor is total over all float64 values.
func (s *Scale) ColorFor(metric float64) string {
	b := s.Bucket(metric)
	if b < 0 {
		return s.noData
	}
	return s.colors[b]
}

func (s *Scale) NoDataColor() string {
	return s.noData
}

func (s *Scale) Thresholds() []float64 {
	return append([]float64{}, s.thresholds...)
}
