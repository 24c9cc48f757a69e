package chart

import (
	"fmt"

	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/iwvelando/portfolio-pilot/pkg/mathutil"
	"gonum.org/v1/gonum/floats"
)

// Point is a Cartesian coordinate in the chart viewBox.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ArcSegment is one wedge of a pie chart. Angles are in degrees, measured
// clockwise from the positive x axis in SVG coordinates.
type ArcSegment struct {
	Ticker     string  `json:"ticker"`
	Weight     float64 `json:"weight"`
	Percent    float64 `json:"percent"`
	StartAngle float64 `json:"startAngle"`
	EndAngle   float64 `json:"endAngle"`
	LargeArc   bool    `json:"largeArc"`
	Color      Color   `json:"color"`
	Start      Point   `json:"start"`
	End        Point   `json:"end"`
}

// Span returns the sweep of the segment in degrees.
func (s ArcSegment) Span() float64 {
	return s.EndAngle - s.StartAngle
}

// Path returns the SVG path drawing the wedge from the centre.
func (s ArcSegment) Path() string {
	flag := 0
	if s.LargeArc {
		flag = 1
	}
	c := trimFloat(constants.ChartCenter)
	r := trimFloat(constants.ChartRadius)
	return fmt.Sprintf("M %s,%s L %s,%s A %s,%s 0 %d,1 %s,%s Z",
		c, c,
		trimFloat(s.Start.X), trimFloat(s.Start.Y),
		r, r, flag,
		trimFloat(s.End.X), trimFloat(s.End.Y),
	)
}

// Segment splits the full circle proportionally to weights, in mapping order.
// Weights are normalized against their own total. A zero total yields one
// zero-span segment per entry; an empty mapping yields no segments. Weights
// are not validated: negative or NaN values propagate into the geometry.
func Segment(weights portfolio.WeightMapping) []ArcSegment {
	n := len(weights)
	if n == 0 {
		return []ArcSegment{}
	}

	values := weights.Values()
	total := floats.Sum(values)

	percents := make([]float64, n)
	for i, v := range values {
		percents[i] = mathutil.CalculatePercentage(v, total)
	}
	cumulative := floats.CumSum(make([]float64, n), percents)
	colors := AssignColors(n)

	segments := make([]ArcSegment, n)
	for i, w := range weights {
		startPercent := 0.0
		if i > 0 {
			startPercent = cumulative[i-1]
		}
		start := mathutil.PercentToDegrees(startPercent)
		end := mathutil.PercentToDegrees(cumulative[i])

		sx, sy := mathutil.PolarToCartesian(constants.ChartCenter, constants.ChartCenter, constants.ChartRadius, start)
		ex, ey := mathutil.PolarToCartesian(constants.ChartCenter, constants.ChartCenter, constants.ChartRadius, end)

		segments[i] = ArcSegment{
			Ticker:     w.Ticker,
			Weight:     w.Value,
			Percent:    percents[i],
			StartAngle: start,
			EndAngle:   end,
			LargeArc:   percents[i] > 50,
			Color:      colors[i],
			Start:      Point{X: sx, Y: sy},
			End:        Point{X: ex, Y: ey},
		}
	}
	return segments
}
