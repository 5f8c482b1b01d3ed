package mdx

import (
	"math"
	"regexp"
	"strings"
)

// BarLayout is a bar with its computed width.
type BarLayout struct {
	Label   string
	Value   float64
	Color   string  // "" when absent or rejected
	Percent float64 // value relative to the chart maximum, 0..100 for in-range values
}

var (
	reHexColor  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	reFuncColor = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\([0-9.,%\s/+-]+(?:deg)?[0-9.,%\s/+-]*\)$`)
	reNameColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// LayoutBars computes bar widths. The denominator is explicitMax when it is
// set and positive, otherwise the largest value. A non-positive denominator
// yields 0% for every bar. Input order is preserved.
func LayoutBars(data []Bar, explicitMax *float64) []BarLayout {
	denom := 0.0
	if explicitMax != nil && *explicitMax > 0 {
		denom = *explicitMax
	} else {
		for i, b := range data {
			if i == 0 || b.Value > denom {
				denom = b.Value
			}
		}
	}

	out := make([]BarLayout, len(data))
	for i, b := range data {
		l := BarLayout{Label: b.Label, Value: b.Value, Color: SafeColor(b.Color)}
		if denom > 0 {
			l.Percent = b.Value / denom * 100
			if math.IsNaN(l.Percent) || math.IsInf(l.Percent, 0) {
				l.Percent = 0
			}
		}
		out[i] = l
	}
	return out
}

// SafeColor returns c when it is a hex, rgb(), hsl() or named CSS color and
// "" otherwise.
func SafeColor(c string) string {
	c = strings.TrimSpace(c)
	switch {
	case c == "":
		return ""
	case reHexColor.MatchString(c), reFuncColor.MatchString(c), reNameColor.MatchString(c):
		return c
	}
	return ""
}

// barWidth clamps a percentage to a valid CSS width.
func barWidth(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}
