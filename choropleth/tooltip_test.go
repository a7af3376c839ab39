package choropleth

import (
	"math"
	"testing"
)

func TestTooltip(t *testing.T) {
	cases := []struct {
		name   string
		metric float64
		want   string
	}{
		{"Sample", 0, "Sample"},
		{"Sample", 5, "Sample<br>(5)"},
		{"Sample", 5.5, "Sample<br>(5.5)"},
		{"Sample", -2, "Sample"},
		{"Sample", math.NaN(), "Sample"},
		{"Sample", 1234, "Sample<br>(1234)"},
		{"", 3, "<br>(3)"},
		{"Sample", math.Inf(1), "Sample<br>(∞)"},
		{"Sample", math.Inf(-1), "Sample"},
	}
	for _, c := range cases {
		if got := Tooltip(c.name, c.metric); got != c.want {
			t.Errorf("Tooltip(%q, %v): expected %q, got %q", c.name, c.metric, c.want, got)
		}
	}
}

func TestStyles(t *testing.T) {
	s := DefaultScale()
	plain := s.Choropleth(42)
	hi := s.Highlighted(42)
	if plain.FillColor != hi.FillColor {
		t.Errorf("Highlight must keep the bucket fill: %s vs %s", plain.FillColor, hi.FillColor)
	}
	if plain.Color == hi.Color || plain.Weight == hi.Weight {
		t.Errorf("Highlight must change the stroke: %+v vs %+v", plain, hi)
	}
	if plain != s.Choropleth(42) {
		t.Error("Choropleth style must be deterministic")
	}
}
