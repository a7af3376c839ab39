package choropleth

import (
	"math"

	"github.com/shopspring/decimal"
)

// TooltipLineBreak separates the name from the count.
const TooltipLineBreak = "<br>"

// Tooltip is the hover text of a feature: the name, and the metric
// in parentheses on a second line when it is a positive count.
func Tooltip(name string, metric float64) string {
	if !(metric > 0) {
		return name
	}
	return name + TooltipLineBreak + "(" + FormatMetric(metric) + ")"
}

// FormatMetric prints the shortest decimal form, 5 not 5.0.
// Infinities print as ∞ and -∞.
func FormatMetric(metric float64) string {
	switch {
	case math.IsInf(metric, 1):
		return "∞"
	case math.IsInf(metric, -1):
		return "-∞"
	case math.IsNaN(metric):
		return "NaN"
	}
	return decimal.NewFromFloat(metric).String()
}
