package choropleth

// Style is the paint of one feature.
type Style struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

const (
	strokeColor          = "white"
	strokeWeight         = 0.8
	fillOpacity          = 0.9
	highlightStrokeColor = "#004619"
	highlightWeight      = 3
)

// Choropleth is the unhighlighted style of a feature with metric.
func (s *Scale) Choropleth(metric float64) Style {
	return Style{
		FillColor:   s.ColorFor(metric),
		Color:       strokeColor,
		Weight:      strokeWeight,
		FillOpacity: fillOpacity,
	}
}

// Highlighted keeps the bucket fill and distinguishes the stroke.
func (s *Scale) Highlighted(metric float64) Style {
	st := s.Choropleth(metric)
	st.Color = highlightStrokeColor
	st.Weight = highlightWeight
	return st
}
