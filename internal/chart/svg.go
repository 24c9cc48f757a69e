package chart

import (
	"fmt"
	"html"
	"strings"

	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/iwvelando/portfolio-pilot/pkg/mathutil"
)

// Chart is a rendered pie: its segments and a standalone SVG document.
type Chart struct {
	Segments []ArcSegment `json:"segments"`
	SVG      string       `json:"svg"`
}

// Render segments weights and draws them.
func Render(weights portfolio.WeightMapping) Chart {
	segments := Segment(weights)
	return Chart{Segments: segments, SVG: RenderSVG(segments)}
}

// RenderSVG draws segments in a square viewBox. Zero-span (and non-finite)
// segments are skipped. A segment covering the whole circle is drawn as a
// circle since an arc whose endpoints coincide draws nothing.
func RenderSVG(segments []ArcSegment) string {
	var sb strings.Builder
	size := trimFloat(constants.ChartViewBox)
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" role="img">`, size, size))

	visible := make([]ArcSegment, 0, len(segments))
	for _, s := range segments {
		if s.Span() > 0 {
			visible = append(visible, s)
		}
	}

	if len(visible) == 1 && mathutil.WithinTolerance(visible[0].Span(), constants.FullCircleDegrees, constants.AngleTolerance) {
		s := visible[0]
		sb.WriteString(fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s"><title>%s</title></circle>`,
			trimFloat(constants.ChartCenter), trimFloat(constants.ChartCenter), trimFloat(constants.ChartRadius),
			s.Color.Hex(), segmentTitle(s)))
	} else {
		for _, s := range visible {
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="%s"><title>%s</title></path>`,
				s.Path(), s.Color.Hex(), segmentTitle(s)))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func segmentTitle(s ArcSegment) string {
	return html.EscapeString(fmt.Sprintf("%s %.1f%%", s.Ticker, s.Percent))
}
