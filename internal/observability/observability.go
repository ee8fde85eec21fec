// Package observability holds the logging, metrics and tracing seams shared
// by the report pipeline, the export worker and the HTTP surface.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes the outcome and latency of an operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

type nopMetrics struct{}

func (nopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// NopMetrics discards observations.
func NopMetrics() MetricsRecorder { return nopMetrics{} }

type nopTracer struct{}
type nopSpan struct{}

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

func (nopSpan) End(error) {}

// NopTracer produces spans that record nothing.
func NopTracer() Tracer { return nopTracer{} }

// NewLogger builds a slog logger. format is "text" or "json"; an empty level
// means info.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if l := strings.TrimSpace(level); l != "" {
		if err := lvl.UnmarshalText([]byte(l)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

// Observe runs fn inside a span and records its outcome.
func Observe(ctx context.Context, m MetricsRecorder, t Tracer, operation string, fn func(context.Context) error) error {
	if m == nil {
		m = NopMetrics()
	}
	if t == nil {
		t = NopTracer()
	}
	start := time.Now()
	ctx, span := t.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	m.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}
