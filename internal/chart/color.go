// Package chart turns portfolio weights into pie-chart geometry: proportional
// arc segments, a deterministic colour per segment, and an SVG rendering.
// Everything here is pure and safe for concurrent use.
package chart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/lucasb-eyer/go-colorful"
)

// Color is an HSL colour. Saturation and Lightness are percentages.
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// String renders the colour in CSS notation, e.g. "hsl(137.5, 70%, 50%)".
func (c Color) String() string {
	return fmt.Sprintf("hsl(%s, %s%%, %s%%)", trimFloat(c.Hue), trimFloat(c.Saturation), trimFloat(c.Lightness))
}

// Hex renders the colour as #rrggbb.
func (c Color) Hex() string {
	return colorful.Hsl(c.Hue, c.Saturation/100, c.Lightness/100).Hex()
}

// AssignColors returns n colours whose hues step by 360/(n·φ), φ being the
// golden ratio, so neighbouring segments never share a hue. The result
// depends only on n.
func AssignColors(n int) []Color {
	if n <= 0 {
		return []Color{}
	}

	step := constants.FullCircleDegrees / (float64(n) * math.Phi)
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = Color{
			Hue:        math.Mod(float64(i)*step, constants.FullCircleDegrees),
			Saturation: constants.ColorSaturation,
			Lightness:  constants.ColorLightness,
		}
	}
	return colors
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
