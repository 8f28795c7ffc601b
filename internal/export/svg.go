package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/blocksim/internal/analysis"
)

// Series is one named signal sampled at shared times.
type Series struct {
	Name   string
	Values []float64
}

var palette = []string{"#00ff9f", "#ff6b6b", "#4dabf7", "#ffd43b", "#cc5de8", "#ff922b"}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
}

type frame struct {
	minX, minY, rangeX, rangeY float64
	width, height              float64
}

func newFrame(minX, maxX, minY, maxY float64, width, height int) frame {
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2
	return frame{minX: minX, minY: minY, rangeX: rangeX, rangeY: rangeY, width: float64(width), height: float64(height)}
}

func (f frame) project(x, y float64) (float64, float64) {
	return (x - f.minX) / f.rangeX * f.width, f.height - (y-f.minY)/f.rangeY*f.height
}

// path writes one polyline, starting a new subpath after every gap.
func path(sb *strings.Builder, f frame, xs, ys []float64, color string) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, color))
	move := true
	for i := 0; i < len(xs) && i < len(ys); i++ {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			move = true
			continue
		}
		x, y := f.project(xs[i], ys[i])
		if move {
			sb.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
			move = false
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}

// SignalsToSVG plots each series against time. Missing samples break the
// line.
func SignalsToSVG(times []float64, series []Series, width, height int) string {
	if len(times) < 2 || len(series) == 0 {
		return ""
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY, maxY = math.Min(minY, v), math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 1) {
		return ""
	}
	f := newFrame(times[0], times[len(times)-1], minY, maxY, width, height)

	var sb strings.Builder
	header(&sb, width, height)
	for i, s := range series {
		color := palette[i%len(palette)]
		path(&sb, f, times, s.Values, color)
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(i+1), color, escape(s.Name)))
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// PortraitToSVG draws a phase portrait as a single trajectory.
func PortraitToSVG(p *analysis.PhasePortrait, width, height int, strokeColor string) string {
	if p == nil || len(p.Points) < 2 {
		return ""
	}
	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	xs := make([]float64, len(p.Points))
	ys := make([]float64, len(p.Points))
	for i, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		xs[i], ys[i] = pt.X, pt.Y
	}
	f := newFrame(minX, maxX, minY, maxY, width, height)

	var sb strings.Builder
	header(&sb, width, height)
	path(&sb, f, xs, ys, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
