// Package chart renders aggregation results as bar, pie or line charts, as
// vector markup for interactive previews and as raster images captured
// off-screen for exports.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Kind selects the chart type.
type Kind string

const (
	KindBar  Kind = "bar"
	KindPie  Kind = "pie"
	KindLine Kind = "line"
)

// Mode distinguishes on-screen previews from export rendering.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeExport      Mode = "export"
)

// Export geometry shared by every figure of a document.
const (
	ExportWidth  = 800
	ExportHeight = 500
)

// Pie labels below these percentages are drawn only in the legend.
const (
	PieLabelThreshold        = 5.0
	CompactPieLabelThreshold = 8.0
)

// ErrUnsupportedKind is returned for chart kinds other than bar, pie and line.
var ErrUnsupportedKind = errors.New("chart: unsupported kind")

// ParseKind validates a user supplied kind. Empty selects bars.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindBar, nil
	case KindBar, KindPie, KindLine:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, s)
	}
}

// Options tune a rendering.
type Options struct {
	Mode Mode
	// Width is the viewport width in interactive mode; ignored for export.
	Width int
	// Compact selects the small-screen layout and pie label threshold.
	Compact bool
	Title   string
}

// Size returns the pixel geometry for the options.
func (o Options) Size() (int, int) {
	if o.Mode != ModeInteractive {
		return ExportWidth, ExportHeight
	}
	w := o.Width
	switch {
	case w <= 0:
		w = 640
	case w < 320:
		w = 320
	case w > 1600:
		w = 1600
	}
	if o.Compact {
		return w, w * 4 / 5
	}
	return w, w * 5 / 8
}

func (o Options) pieThreshold() float64 {
	if o.Compact {
		return CompactPieLabelThreshold
	}
	return PieLabelThreshold
}

// WrapTickLabel splits a category label for the axis: multi-word labels move
// their last word to a second line, except "De acuerdo" which stays whole.
func WrapTickLabel(label string) []string {
	if label == "De acuerdo" {
		return []string{label}
	}
	words := strings.Fields(label)
	if len(words) < 2 {
		return []string{label}
	}
	return []string{strings.Join(words[:len(words)-1], " "), words[len(words)-1]}
}

var palette = []color.RGBA{
	{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
	{R: 0x66, G: 0xbb, B: 0x6a, A: 0xff},
	{R: 0xf9, G: 0xa8, B: 0x25, A: 0xff},
	{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff},
	{R: 0x8d, G: 0x6e, B: 0x63, A: 0xff},
	{R: 0xe5, G: 0x39, B: 0x35, A: 0xff},
	{R: 0x00, G: 0x89, B: 0x7b, A: 0xff},
	{R: 0x7e, G: 0x57, B: 0xc2, A: 0xff},
}

func paletteColor(i int) color.RGBA { return palette[i%len(palette)] }

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	inkColor  = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	gridColor = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)
