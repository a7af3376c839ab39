package choropleth

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/choromap/common"
)

// LegendTitle heads the legend of the students map.
const LegendTitle = "Number of students"

// LegendEntry is one colored row of the legend.
// From is the smallest whole metric painted Color, To the largest
// (To is +Inf for the top bucket).
// To marshals as null for the top bucket.
type LegendEntry struct {
	Color string           `json:"color"`
	From  float64          `json:"from"`
	To    common.JSONFloat `json:"to"`
	Label string           `json:"label"`
}

// Legend lists one entry per bucket. Colors are looked up through ColorFor
// so the legend cannot disagree with the fill at any boundary.
func (s *Scale) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(s.thresholds))
	for i, t := range s.thresholds {
		from := math.Floor(t) + 1
		if i+1 < len(s.thresholds) && from > s.thresholds[i+1] {
			from = math.Nextafter(t, math.Inf(1))
		}
		e := LegendEntry{
			Color: s.ColorFor(from),
			From:  from,
			To:    common.JSONFloat(math.Inf(1)),
		}
		if i+1 < len(s.thresholds) {
			e.To = common.JSONFloat(s.thresholds[i+1])
			e.Label = formatLegendNumber(from) + "–" + formatLegendNumber(s.thresholds[i+1])
		} else {
			e.Label = formatLegendNumber(from) + "+"
		}
		out = append(out, e)
	}
	return out
}

func formatLegendNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return humanize.Comma(int64(v))
	}
	return FormatMetric(v)
}
