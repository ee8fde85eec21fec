package chart

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/catalog"
)

func civilStatus() aggregate.Result {
	return aggregate.Result{
		VariableID: "estado-civil",
		Title:      "Estado civil",
		Kind:       catalog.KindCategorical,
		Entries: []aggregate.Entry{
			{Label: "Casado", Count: 4, Percentage: 40},
			{Label: "Soltero", Count: 6, Percentage: 60},
			{Label: "Unión libre", Count: 0, Percentage: 0},
		},
		Total:   10,
		Records: 10,
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"": KindBar, "bar": KindBar, " PIE ": KindPie, "line": KindLine}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("radar"); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestOptionsSize(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		w, h int
	}{
		{"export ignores width", Options{Mode: ModeExport, Width: 300}, 800, 500},
		{"zero value is export", Options{}, 800, 500},
		{"interactive default", Options{Mode: ModeInteractive}, 640, 400},
		{"interactive clamps", Options{Mode: ModeInteractive, Width: 100}, 320, 200},
		{"compact", Options{Mode: ModeInteractive, Width: 400, Compact: true}, 400, 320},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.opts.Size()
			if w != tt.w || h != tt.h {
				t.Fatalf("Size() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestWrapTickLabel(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"De acuerdo", []string{"De acuerdo"}},
		{"Totalmente de acuerdo", []string{"Totalmente de", "acuerdo"}},
		{"Casado", []string{"Casado"}},
		{"Unión libre", []string{"Unión", "libre"}},
	}
	for _, tt := range tests {
		got := WrapTickLabel(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Fatalf("WrapTickLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSVGBarAnnotations(t *testing.T) {
	out, err := SVG(civilStatus(), KindBar, Options{Mode: ModeExport})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	svg := string(out)
	for _, want := range []string{`viewBox="0 0 800 500"`, ">4<", ">40%<", ">60%<", ">Unión</tspan>", "Estado civil"} {
		if !strings.Contains(svg, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	if got := strings.Count(svg, `<rect x=`); got != 3 {
		t.Fatalf("expected 3 bars, got %d", got)
	}
}

func TestSVGPieThreshold(t *testing.T) {
	res := aggregate.Result{
		Title: "Sexo",
		Entries: []aggregate.Entry{
			{Label: "Mujer", Count: 93, Percentage: 93},
			{Label: "Hombre", Count: 6, Percentage: 6},
			{Label: "Otro", Count: 1, Percentage: 1},
		},
		Total: 100,
	}
	normal, err := SVG(res, KindPie, Options{Mode: ModeInteractive, Width: 640})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if !strings.Contains(string(normal), ">6%</text>") {
		t.Fatalf("6%% slice should be labelled at the default threshold")
	}
	if strings.Contains(string(normal), ">1%</text>") {
		t.Fatalf("1%% slice should not be labelled")
	}
	if !strings.Contains(string(normal), "Otro: 1 (1%)") {
		t.Fatalf("legend should list every slice")
	}
	compact, err := SVG(res, KindPie, Options{Mode: ModeInteractive, Width: 360, Compact: true})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if strings.Contains(string(compact), ">6%</text>") {
		t.Fatalf("6%% slice should be hidden in compact mode")
	}
}

func TestSVGEmptyPie(t *testing.T) {
	res := civilStatus()
	for i := range res.Entries {
		res.Entries[i].Count, res.Entries[i].Percentage = 0, 0
	}
	res.Total = 0
	out, err := SVG(res, KindPie, Options{})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if !strings.Contains(string(out), "Sin datos") {
		t.Fatalf("empty pie should say so")
	}
}

func TestSVGRejectsUnknownKind(t *testing.T) {
	if _, err := SVG(civilStatus(), Kind("radar"), Options{}); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestSVGEscapesTitle(t *testing.T) {
	out, err := SVG(civilStatus(), KindLine, Options{Title: "A & B <c>"})
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if !strings.Contains(string(out), "A &amp; B &lt;c&gt;") {
		t.Fatalf("title not escaped: %s", out)
	}
	if !strings.Contains(string(out), "<polyline") {
		t.Fatalf("line chart missing polyline")
	}
}

func TestRasterGeometry(t *testing.T) {
	for _, kind := range []Kind{KindBar, KindPie, KindLine} {
		img, err := Raster(civilStatus(), kind, Options{Mode: ModeExport})
		if err != nil {
			t.Fatalf("Raster(%s): %v", kind, err)
		}
		if b := img.Bounds(); b.Dx() != ExportWidth || b.Dy() != ExportHeight {
			t.Fatalf("Raster(%s) bounds %v", kind, b)
		}
	}
}

func TestRasterDrawsBars(t *testing.T) {
	img, err := Raster(civilStatus(), KindBar, Options{Mode: ModeExport})
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	l, _ := newLayout(civilStatus(), KindBar, Options{Mode: ModeExport})
	bar := l.Bars[1].Rect
	got := img.RGBAAt(int(bar.X+bar.W/2), int(bar.Y+bar.H-2))
	if got != paletteColor(1) {
		t.Fatalf("bar pixel = %v, want %v", got, paletteColor(1))
	}
}

func TestNiceCeil(t *testing.T) {
	for in, want := range map[int]int{0: 4, 3: 4, 6: 8, 10: 20, 37: 40, 150: 200} {
		if got := niceCeil(in); got != want {
			t.Fatalf("niceCeil(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestOffscreenCaptureSettles(t *testing.T) {
	var slept []time.Duration
	o := NewOffscreen(WithSleep(func(d time.Duration) { slept = append(slept, d) }))
	out, err := o.Capture(civilStatus(), KindBar)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 500 {
		t.Fatalf("capture bounds %v", b)
	}
	if _, err := o.Capture(civilStatus(), KindPie); err != nil {
		t.Fatalf("Capture pie: %v", err)
	}
	if len(slept) != 2 || slept[0] != DefaultSettleDelay || slept[1] != DefaultPieSettleDelay {
		t.Fatalf("unexpected settle delays %v", slept)
	}
	if o.Busy() {
		t.Fatalf("surface should be released")
	}
	if o.Captures() != 2 {
		t.Fatalf("captures = %d", o.Captures())
	}
}

func TestOffscreenReleasesAfterFailure(t *testing.T) {
	o := NewOffscreen(WithSettleDelay(0, 0), WithSleep(func(time.Duration) {}))
	if _, err := o.Capture(civilStatus(), Kind("radar")); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
	err := o.With(func(s *Surface) error {
		if err := s.Mount(civilStatus(), KindBar); err != nil {
			return err
		}
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	if o.Busy() {
		t.Fatalf("surface should be released after panic")
	}
	if _, err := o.Capture(civilStatus(), KindLine); err != nil {
		t.Fatalf("surface unusable after failure: %v", err)
	}
}

func TestTerminalPreview(t *testing.T) {
	out := Terminal(civilStatus(), 60)
	for _, want := range []string{"Estado civil", "Casado", "4 (40%)", "Total: 10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("terminal preview missing %q:\n%s", want, out)
		}
	}
}
