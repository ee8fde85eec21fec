package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetrics struct{ calls []metricsCall }

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", "json", &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("capture failed", "variable", "sexo")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "capture failed" || line["variable"] != "sexo" {
		t.Fatalf("unexpected log line %v", line)
	}
	if _, err := NewLogger("loud", "text", &buf); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := NewLogger("info", "xml", &buf); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNopImplementations(_ *testing.T) {
	l := NopLogger()
	l.Debug("d", "k", 1)
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	NopMetrics().Observe(context.Background(), "op", true, time.Second)
	_, span := NopTracer().Start(context.Background(), "op")
	span.End(nil)
}

func decodeSpans(t *testing.T, raw string) []SpanRecord {
	t.Helper()
	var spans []SpanRecord
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var rec SpanRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("span line %q: %v", line, err)
		}
		spans = append(spans, rec)
	}
	return spans
}

func TestObserveRecordsOutcome(t *testing.T) {
	metrics := &captureMetrics{}
	var buf bytes.Buffer
	tracer := NewSpanLog(&buf)
	boom := errors.New("boom")
	if err := Observe(context.Background(), metrics, tracer, "assemble_report", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
	if err := Observe(context.Background(), metrics, tracer, "aggregate", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(metrics.calls) != 2 || metrics.calls[0].success || !metrics.calls[1].success {
		t.Fatalf("unexpected metrics calls %+v", metrics.calls)
	}
	spans := decodeSpans(t, buf.String())
	if len(spans) != 2 || !spans[0].Failed || spans[0].Cause != "boom" || spans[1].Name != "aggregate" || spans[1].Failed {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if err := Observe(context.Background(), nil, nil, "nil_seams", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("nil seams: %v", err)
	}
}

func TestSpanLogNestsChildren(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewSpanLog(&buf)
	ctx, outer := tracer.Start(context.Background(), "assemble_report")
	_, inner := tracer.Start(ctx, "render_pdf")
	inner.End(nil)
	outer.End(nil)
	outer.End(errors.New("ignored"))

	spans := decodeSpans(t, buf.String())
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %+v", spans)
	}
	if spans[0].Name != "render_pdf" || spans[1].Name != "assemble_report" {
		t.Fatalf("spans out of completion order: %+v", spans)
	}
	if spans[0].Parent != spans[1].ID || spans[1].Parent != 0 || spans[1].Failed {
		t.Fatalf("unexpected nesting %+v", spans)
	}
}

func TestExpvarRecorder(t *testing.T) {
	rec := NewExpvarRecorder("")
	rec.Observe(context.Background(), "export_csv", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "export_csv", false, time.Millisecond)
	rec.Observe(context.Background(), " ", true, time.Millisecond)

	got := rec.Counts("export_csv")
	if got.OK != 1 || got.Failed != 1 || got.Elapsed != 3*time.Millisecond {
		t.Fatalf("unexpected counts %+v", got)
	}
	if zero := rec.Counts("export_pdf"); zero != (OperationCounts{}) {
		t.Fatalf("unknown operation should be zero, got %+v", zero)
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), `"export_csv.ok": 1`) {
		t.Fatalf("recorder not published: %v", published)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	rec := NewPrometheusRecorder("")
	rec.Observe(context.Background(), "render_pdf", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "render_pdf", false, 5*time.Millisecond)
	if got := testutil.ToFloat64(rec.results.WithLabelValues("render_pdf", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.CollectAndCount(rec.duration); got != 1 {
		t.Fatalf("histogram series = %d", got)
	}

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(body.String(), `ecoresiduos_operations_total{operation="render_pdf",status="error"} 1`) {
		t.Fatalf("exposition missing counter:\n%s", body.String())
	}
}

func TestMultiRecorder(t *testing.T) {
	a, b := &captureMetrics{}, &captureMetrics{}
	MultiRecorder{a, nil, b}.Observe(context.Background(), "op", true, 0)
	if len(a.calls) != 1 || len(b.calls) != 1 {
		t.Fatalf("fan-out failed")
	}
}
