package chart

import (
	"math"
	"strconv"

	"ecoresiduos/internal/aggregate"
)

type rect struct{ X, Y, W, H float64 }

// annotation is the two-line "count / percentage" label of a bar or point.
type annotation struct {
	X, Y    float64
	Count   string
	Percent string
}

type barGeom struct {
	Rect  rect
	Color int
	Note  annotation
}

type tick struct {
	X     float64
	Lines []string
}

type gridLine struct {
	Y     float64
	Value int
}

type sliceGeom struct {
	Start, End float64 // radians, clockwise from 12 o'clock
	Color      int
	LabelX     float64
	LabelY     float64
	Label      string // empty when under the threshold
}

type legendItem struct {
	X, Y  float64
	Color int
	Text  string
}

type point struct{ X, Y float64 }

// layout is the renderer-independent geometry of one chart.
type layout struct {
	Kind   Kind
	Width  float64
	Height float64
	Title  string
	Plot   rect
	Grid   []gridLine
	Ticks  []tick
	Bars   []barGeom
	Points []point
	Notes  []annotation
	// Pie
	CX, CY, Radius float64
	Slices         []sliceGeom
	Legend         []legendItem
	Empty          bool
}

func newLayout(res aggregate.Result, kind Kind, opts Options) (layout, error) {
	w, h := opts.Size()
	l := layout{Kind: kind, Width: float64(w), Height: float64(h), Title: opts.Title}
	if l.Title == "" {
		l.Title = res.Title
	}
	l.Empty = res.Total == 0
	switch kind {
	case KindBar, KindLine:
		l.axes(res)
	case KindPie:
		l.pie(res, opts.pieThreshold())
	default:
		return layout{}, ErrUnsupportedKind
	}
	return l, nil
}

func (l *layout) axes(res aggregate.Result) {
	l.Plot = rect{X: 56, Y: 48, W: l.Width - 56 - 24, H: l.Height - 48 - 96}
	maxCount := 0
	for _, e := range res.Entries {
		if e.Count > maxCount {
			maxCount = e.Count
		}
	}
	top := niceCeil(maxCount)
	step := top / 4
	if step == 0 {
		step = 1
	}
	for v := 0; v <= top; v += step {
		l.Grid = append(l.Grid, gridLine{Y: l.scaleY(v, top), Value: v})
	}
	n := len(res.Entries)
	if n == 0 {
		return
	}
	slot := l.Plot.W / float64(n)
	for i, e := range res.Entries {
		cx := l.Plot.X + slot*(float64(i)+0.5)
		y := l.scaleY(e.Count, top)
		note := annotation{X: cx, Y: y - 6, Count: strconv.Itoa(e.Count), Percent: aggregate.FormatPercentShort(e.Percentage)}
		l.Ticks = append(l.Ticks, tick{X: cx, Lines: WrapTickLabel(e.Label)})
		if l.Kind == KindBar {
			bw := slot * 0.6
			l.Bars = append(l.Bars, barGeom{
				Rect:  rect{X: cx - bw/2, Y: y, W: bw, H: l.Plot.Y + l.Plot.H - y},
				Color: i,
				Note:  note,
			})
			continue
		}
		l.Points = append(l.Points, point{X: cx, Y: y})
		note.Y -= 4
		l.Notes = append(l.Notes, note)
	}
}

func (l *layout) scaleY(v, top int) float64 {
	if top <= 0 {
		return l.Plot.Y + l.Plot.H
	}
	return l.Plot.Y + l.Plot.H - float64(v)/float64(top)*l.Plot.H
}

func (l *layout) pie(res aggregate.Result, threshold float64) {
	l.Plot = rect{X: 16, Y: 48, W: l.Width * 0.58, H: l.Height - 64}
	l.CX = l.Plot.X + l.Plot.W/2
	l.CY = l.Plot.Y + l.Plot.H/2
	l.Radius = math.Min(l.Plot.W, l.Plot.H)/2 - 12
	legendX := l.Plot.X + l.Plot.W + 16
	for i, e := range res.Entries {
		l.Legend = append(l.Legend, legendItem{
			X:     legendX,
			Y:     l.Plot.Y + 20 + float64(i)*24,
			Color: i,
			Text:  e.Label + ": " + strconv.Itoa(e.Count) + " (" + aggregate.FormatPercentShort(e.Percentage) + ")",
		})
	}
	if l.Empty {
		return
	}
	angle := 0.0
	for i, e := range res.Entries {
		if e.Count == 0 {
			continue
		}
		span := float64(e.Count) / float64(res.Total) * 2 * math.Pi
		s := sliceGeom{Start: angle, End: angle + span, Color: i}
		mid := angle + span/2
		s.LabelX = l.CX + math.Sin(mid)*l.Radius*0.65
		s.LabelY = l.CY - math.Cos(mid)*l.Radius*0.65
		if e.Percentage >= threshold {
			s.Label = aggregate.FormatPercentShort(e.Percentage)
		}
		l.Slices = append(l.Slices, s)
		angle += span
	}
}

// niceCeil rounds the axis maximum up to a round value
// that splits into four integer steps.
func niceCeil(v int) int {
	if v <= 4 {
		return 4
	}
	mag := math.Pow(10, math.Floor(math.Log10(float64(v))))
	for _, m := range []float64{1, 2, 4, 5, 10} {
		if c := m * mag; c >= float64(v) && math.Mod(c, 4) == 0 {
			return int(c)
		}
	}
	return int(math.Ceil(float64(v)/4)) * 4
}

// arcPoint returns the point at angle a (clockwise from 12 o'clock).
func arcPoint(cx, cy, r, a float64) (float64, float64) {
	return cx + math.Sin(a)*r, cy - math.Cos(a)*r
}
