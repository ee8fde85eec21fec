package observability

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// SpanRecord is the JSON line written for every finished span.
type SpanRecord struct {
	ID        uint64  `json:"span"`
	Parent    uint64  `json:"parent,omitempty"`
	Name      string  `json:"name"`
	Start     string  `json:"start"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Failed    bool    `json:"failed,omitempty"`
	Cause     string  `json:"cause,omitempty"`
}

type spanKey struct{}

// SpanLog is a Tracer that writes finished spans as JSON lines. Spans
// started from a context carrying another span record it as their parent,
// so render_pdf shows up nested under assemble_report.
type SpanLog struct {
	ids atomic.Uint64

	mu  sync.Mutex
	enc *json.Encoder
}

// NewSpanLog writes spans to w.
func NewSpanLog(w io.Writer) *SpanLog {
	return &SpanLog{enc: json.NewEncoder(w)}
}

// Start opens a span named name and returns a context that parents later
// spans to it.
func (l *SpanLog) Start(ctx context.Context, name string) (context.Context, TraceSpan) {
	s := &logSpan{log: l, id: l.ids.Add(1), name: name, start: time.Now()}
	if parent, ok := ctx.Value(spanKey{}).(uint64); ok {
		s.parent = parent
	}
	return context.WithValue(ctx, spanKey{}, s.id), s
}

type logSpan struct {
	log    *SpanLog
	id     uint64
	parent uint64
	name   string
	start  time.Time
	once   sync.Once
}

// End writes the span once; later calls are ignored.
func (s *logSpan) End(err error) {
	s.once.Do(func() {
		rec := SpanRecord{
			ID:        s.id,
			Parent:    s.parent,
			Name:      s.name,
			Start:     s.start.UTC().Format(time.RFC3339Nano),
			ElapsedMS: float64(time.Since(s.start)) / float64(time.Millisecond),
		}
		if err != nil {
			rec.Failed, rec.Cause = true, err.Error()
		}
		s.log.mu.Lock()
		defer s.log.mu.Unlock()
		_ = s.log.enc.Encode(rec)
	})
}
