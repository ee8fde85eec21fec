package chart

import (
	"fmt"
	"html"
	"math"
	"strings"

	"ecoresiduos/internal/aggregate"
)

// SVG renders the result as standalone SVG markup.
func SVG(res aggregate.Result, kind Kind, opts Options) ([]byte, error) {
	l, err := newLayout(res, kind, opts)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		int(l.Width), int(l.Height), int(l.Width), int(l.Height))
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)
	if l.Title != "" {
		fmt.Fprintf(&b, `<text x="%.1f" y="26" text-anchor="middle" font-size="15" font-weight="bold" fill="%s">%s</text>`,
			l.Width/2, hexColor(inkColor), html.EscapeString(l.Title))
	}
	switch kind {
	case KindBar, KindLine:
		writeAxes(&b, l)
	case KindPie:
		writePie(&b, l)
	}
	b.WriteString(`</svg>`)
	return []byte(b.String()), nil
}

func writeAxes(b *strings.Builder, l layout) {
	ink := hexColor(inkColor)
	for _, g := range l.Grid {
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`,
			l.Plot.X, g.Y, l.Plot.X+l.Plot.W, g.Y, hexColor(gridColor))
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="end" font-size="11" fill="%s">%d</text>`,
			l.Plot.X-6, g.Y+4, ink, g.Value)
	}
	base := l.Plot.Y + l.Plot.H
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`,
		l.Plot.X, base, l.Plot.X+l.Plot.W, base, ink)
	for _, t := range l.Ticks {
		y := base + 16
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="end" font-size="11" fill="%s" transform="rotate(-30 %.1f %.1f)">`,
			t.X, y, ink, t.X, y)
		for i, line := range t.Lines {
			dy := 0
			if i > 0 {
				dy = 13
			}
			fmt.Fprintf(b, `<tspan x="%.1f" dy="%d">%s</tspan>`, t.X, dy, html.EscapeString(line))
		}
		b.WriteString(`</text>`)
	}
	for _, bar := range l.Bars {
		fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			bar.Rect.X, bar.Rect.Y, bar.Rect.W, bar.Rect.H, hexColor(paletteColor(bar.Color)))
		writeAnnotation(b, bar.Note)
	}
	if len(l.Points) > 0 {
		pts := make([]string, len(l.Points))
		for i, p := range l.Points {
			pts[i] = fmt.Sprintf("%.1f,%.1f", p.X, p.Y)
		}
		color := hexColor(paletteColor(0))
		fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(pts, " "), color)
		for _, p := range l.Points {
			fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>`, p.X, p.Y, color)
		}
		for _, n := range l.Notes {
			writeAnnotation(b, n)
		}
	}
}

func writeAnnotation(b *strings.Builder, n annotation) {
	ink := hexColor(inkColor)
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="11" font-weight="bold" fill="%s">%s</text>`,
		n.X, n.Y-13, ink, n.Count)
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="10" fill="%s">%s</text>`,
		n.X, n.Y, ink, n.Percent)
}

func writePie(b *strings.Builder, l layout) {
	ink := hexColor(inkColor)
	if l.Empty {
		fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`, l.CX, l.CY, l.Radius, hexColor(gridColor))
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="13" fill="%s">Sin datos</text>`, l.CX, l.CY+4, ink)
	}
	for _, s := range l.Slices {
		fill := hexColor(paletteColor(s.Color))
		if s.End-s.Start >= 2*math.Pi-1e-9 {
			fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`, l.CX, l.CY, l.Radius, fill)
		} else {
			x0, y0 := arcPoint(l.CX, l.CY, l.Radius, s.Start)
			x1, y1 := arcPoint(l.CX, l.CY, l.Radius, s.End)
			large := 0
			if s.End-s.Start > math.Pi {
				large = 1
			}
			fmt.Fprintf(b, `<path d="M%.1f,%.1f L%.1f,%.1f A%.1f,%.1f 0 %d 1 %.1f,%.1f Z" fill="%s" stroke="#ffffff"/>`,
				l.CX, l.CY, x0, y0, l.Radius, l.Radius, large, x1, y1, fill)
		}
		if s.Label != "" {
			fmt.Fprintf(b, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="11" font-weight="bold" fill="#ffffff">%s</text>`,
				s.LabelX, s.LabelY+4, s.Label)
		}
	}
	for _, item := range l.Legend {
		fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="12" height="12" fill="%s"/>`,
			item.X, item.Y-10, hexColor(paletteColor(item.Color)))
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" font-size="12" fill="%s">%s</text>`,
			item.X+18, item.Y, ink, html.EscapeString(item.Text))
	}
}
