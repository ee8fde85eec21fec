package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"ecoresiduos/internal/aggregate"
)

// Default settle delays before a mounted chart is read back. Pie charts
// animate their sweep and need longer.
const (
	DefaultSettleDelay    = 300 * time.Millisecond
	DefaultPieSettleDelay = 900 * time.Millisecond
)

var errEmptySurface = errors.New("chart: surface is empty")

// Capturer turns a result into an encoded export image.
type Capturer interface {
	Capture(res aggregate.Result, kind Kind) ([]byte, error)
}

// Surface is the detached drawing area a chart is mounted on during a capture.
type Surface struct {
	Width, Height int
	img           *image.RGBA
	mounted       bool
}

// Mount renders the chart onto the surface at export geometry.
func (s *Surface) Mount(res aggregate.Result, kind Kind) error {
	img, err := Raster(res, kind, Options{Mode: ModeExport})
	if err != nil {
		return err
	}
	s.img = img
	s.mounted = true
	return nil
}

// Mounted reports whether a chart currently occupies the surface.
func (s *Surface) Mounted() bool { return s.mounted }

// Image returns the mounted chart.
func (s *Surface) Image() (*image.RGBA, error) {
	if !s.mounted || s.img == nil {
		return nil, errEmptySurface
	}
	return s.img, nil
}

func (s *Surface) unmount() {
	s.img = nil
	s.mounted = false
}

// OffscreenOption configures an Offscreen surface.
type OffscreenOption func(*Offscreen)

// WithSettleDelay overrides the bar/line and pie settle delays.
func WithSettleDelay(axes, pie time.Duration) OffscreenOption {
	return func(o *Offscreen) {
		o.delay = axes
		o.pieDelay = pie
	}
}

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(fn func(time.Duration)) OffscreenOption {
	return func(o *Offscreen) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// Offscreen serialises captures on a single reusable surface. The surface is
// released after every capture, including failed ones.
type Offscreen struct {
	mu       sync.Mutex
	surface  Surface
	delay    time.Duration
	pieDelay time.Duration
	sleep    func(time.Duration)
	captures int
}

// NewOffscreen constructs an export surface with default settle delays.
func NewOffscreen(opts ...OffscreenOption) *Offscreen {
	o := &Offscreen{
		surface:  Surface{Width: ExportWidth, Height: ExportHeight},
		delay:    DefaultSettleDelay,
		pieDelay: DefaultPieSettleDelay,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// With acquires the surface, runs fn, and releases the surface whatever fn
// does. Panics inside fn are returned as errors.
func (o *Offscreen) With(fn func(*Surface) error) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.surface.unmount()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart: capture panicked: %v", r)
		}
	}()
	o.captures++
	return fn(&o.surface)
}

// Capture mounts the chart, waits for it to settle and encodes it as PNG.
func (o *Offscreen) Capture(res aggregate.Result, kind Kind) ([]byte, error) {
	var out []byte
	err := o.With(func(s *Surface) error {
		if err := s.Mount(res, kind); err != nil {
			return err
		}
		o.sleep(o.settleDelay(kind))
		img, err := s.Image()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		out = buf.Bytes()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("capture %s chart %q: %w", kind, res.VariableID, err)
	}
	return out, nil
}

func (o *Offscreen) settleDelay(kind Kind) time.Duration {
	if kind == KindPie {
		return o.pieDelay
	}
	return o.delay
}

// Busy reports whether a chart is mounted right now.
func (o *Offscreen) Busy() bool {
	if o.mu.TryLock() {
		defer o.mu.Unlock()
		return o.surface.Mounted()
	}
	return true
}

// Captures returns how many captures have acquired the surface.
func (o *Offscreen) Captures() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.captures
}
