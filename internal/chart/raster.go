package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"ecoresiduos/internal/aggregate"
)

type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var loadFonts = sync.OnceValues(func() (fontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("parse bold font: %w", err)
	}
	return fontSet{regular: regular, bold: bold}, nil
})

// canvas owns the faces of one rendering; font.Face values are not shared
// between goroutines.
type canvas struct {
	img    *image.RGBA
	small  font.Face
	normal font.Face
	strong font.Face
	title  font.Face
}

func newCanvas(w, h int) (*canvas, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	face := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	c := &canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	if c.small, err = face(fonts.regular, 10); err != nil {
		return nil, err
	}
	if c.normal, err = face(fonts.regular, 12); err != nil {
		return nil, err
	}
	if c.strong, err = face(fonts.bold, 11); err != nil {
		return nil, err
	}
	if c.title, err = face(fonts.bold, 15); err != nil {
		return nil, err
	}
	draw.Draw(c.img, c.img.Bounds(), image.White, image.Point{}, draw.Src)
	return c, nil
}

func (c *canvas) close() {
	for _, f := range []font.Face{c.small, c.normal, c.strong, c.title} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Raster renders the result into an RGBA image.
func Raster(res aggregate.Result, kind Kind, opts Options) (*image.RGBA, error) {
	l, err := newLayout(res, kind, opts)
	if err != nil {
		return nil, err
	}
	c, err := newCanvas(int(l.Width), int(l.Height))
	if err != nil {
		return nil, err
	}
	defer c.close()

	if l.Title != "" {
		c.text(c.title, l.Title, l.Width/2, 26, inkColor, alignCenter)
	}
	switch kind {
	case KindBar, KindLine:
		c.axes(l)
	case KindPie:
		c.pie(l)
	}
	return c.img, nil
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

func (c *canvas) text(face font.Face, s string, x, y float64, col color.Color, a align) {
	d := font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	w := float64(d.MeasureString(s).Round())
	switch a {
	case alignCenter:
		x -= w / 2
	case alignRight:
		x -= w
	}
	d.Dot = fixed.P(int(math.Round(x)), int(math.Round(y)))
	d.DrawString(s)
}

// fill rasterizes a closed polygon.
func (c *canvas) fill(pts []point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func (c *canvas) rect(r rect, col color.Color) {
	c.fill([]point{{r.X, r.Y}, {r.X + r.W, r.Y}, {r.X + r.W, r.Y + r.H}, {r.X, r.Y + r.H}}, col)
}

// line strokes a segment as a thin quad.
func (c *canvas) line(a, b point, width float64, col color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	ox, oy := -dy/n*width/2, dx/n*width/2
	c.fill([]point{{a.X + ox, a.Y + oy}, {b.X + ox, b.Y + oy}, {b.X - ox, b.Y - oy}, {a.X - ox, a.Y - oy}}, col)
}

func (c *canvas) sector(cx, cy, r, start, end float64, col color.Color) {
	steps := int(math.Ceil((end-start)/(math.Pi/90))) + 1
	pts := make([]point, 0, steps+2)
	if end-start < 2*math.Pi-1e-9 {
		pts = append(pts, point{cx, cy})
	}
	for i := 0; i <= steps; i++ {
		a := start + (end-start)*float64(i)/float64(steps)
		x, y := arcPoint(cx, cy, r, a)
		pts = append(pts, point{x, y})
	}
	c.fill(pts, col)
}

func (c *canvas) axes(l layout) {
	for _, g := range l.Grid {
		c.line(point{l.Plot.X, g.Y}, point{l.Plot.X + l.Plot.W, g.Y}, 1, gridColor)
		c.text(c.small, fmt.Sprintf("%d", g.Value), l.Plot.X-6, g.Y+4, inkColor, alignRight)
	}
	base := l.Plot.Y + l.Plot.H
	c.line(point{l.Plot.X, base}, point{l.Plot.X + l.Plot.W, base}, 1, inkColor)
	for _, t := range l.Ticks {
		c.tickLabel(t, base+6)
	}
	for _, bar := range l.Bars {
		c.rect(bar.Rect, paletteColor(bar.Color))
		c.annotate(bar.Note)
	}
	stroke := paletteColor(0)
	for i := 1; i < len(l.Points); i++ {
		c.line(l.Points[i-1], l.Points[i], 2, stroke)
	}
	for _, p := range l.Points {
		c.sector(p.X, p.Y, 4, 0, 2*math.Pi, stroke)
	}
	for _, n := range l.Notes {
		c.annotate(n)
	}
}

func (c *canvas) annotate(n annotation) {
	c.text(c.strong, n.Count, n.X, n.Y-13, inkColor, alignCenter)
	c.text(c.small, n.Percent, n.X, n.Y, inkColor, alignCenter)
}

// tickLabel draws the wrapped label right-aligned on a scratch image, then
// pastes it rotated 30 degrees with its end under the tick.
func (c *canvas) tickLabel(t tick, top float64) {
	width := 0
	for _, line := range t.Lines {
		if w := font.MeasureString(c.small, line).Round(); w > width {
			width = w
		}
	}
	lineH := 13
	scratch := image.NewRGBA(image.Rect(0, 0, width+4, lineH*len(t.Lines)+4))
	for i, line := range t.Lines {
		w := font.MeasureString(c.small, line).Round()
		d := font.Drawer{
			Dst:  scratch,
			Src:  image.NewUniform(inkColor),
			Face: c.small,
			Dot:  fixed.P(width-w+2, lineH*(i+1)-1),
		}
		d.DrawString(line)
	}
	rotated := imaging.Rotate(scratch, 30, color.Transparent)
	rb := rotated.Bounds()
	at := image.Pt(int(t.X)-rb.Dx(), int(top))
	draw.Draw(c.img, rb.Add(at), rotated, rb.Min, draw.Over)
}

func (c *canvas) pie(l layout) {
	if l.Empty {
		c.sector(l.CX, l.CY, l.Radius, 0, 2*math.Pi, gridColor)
		c.text(c.normal, "Sin datos", l.CX, l.CY+4, inkColor, alignCenter)
	}
	for _, s := range l.Slices {
		c.sector(l.CX, l.CY, l.Radius, s.Start, s.End, paletteColor(s.Color))
	}
	for _, s := range l.Slices {
		if s.Label != "" {
			c.text(c.strong, s.Label, s.LabelX, s.LabelY+4, color.White, alignCenter)
		}
	}
	for _, item := range l.Legend {
		c.rect(rect{X: item.X, Y: item.Y - 10, W: 12, H: 12}, paletteColor(item.Color))
		c.text(c.normal, item.Text, item.X+18, item.Y, inkColor, alignLeft)
	}
}
