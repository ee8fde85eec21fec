package report

import (
	"context"
	"fmt"
	"time"

	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/records"
)

// Assembler plans a report and renders it in the requested format.
type Assembler struct {
	planner *Planner
	pdf     *PDFRenderer
	doc     *DocRenderer
	logger  observability.Logger
	metrics observability.MetricsRecorder
	tracer  observability.Tracer
	now     func() time.Time
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for capture and table warnings.
func WithLogger(l observability.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records assemble and render latencies.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(a *Assembler) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTracer wraps assembly in spans.
func WithTracer(t observability.Tracer) Option {
	return func(a *Assembler) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithClock fixes the generation date, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler wires a planner over cat and capturer with both renderers.
func NewAssembler(cat *catalog.Catalog, capturer chart.Capturer, opts ...Option) *Assembler {
	a := &Assembler{
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
		tracer:  observability.NopTracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.planner = NewPlanner(cat, capturer, a.logger)
	a.planner.now = a.now
	a.pdf = &PDFRenderer{now: a.now}
	a.doc = NewDocRenderer()
	return a
}

// Plan exposes the layout plan of spec without rendering it.
func (a *Assembler) Plan(ctx context.Context, spec Spec, rows []records.Record) (Plan, error) {
	return a.planner.Plan(ctx, spec, rows)
}

// Assemble validates spec, plans the report over rows and renders it as a
// PDF or document artifact named reporte_<slug>_<date>.<ext>.
func (a *Assembler) Assemble(ctx context.Context, spec Spec, rows []records.Record) (export.Artifact, error) {
	if err := spec.Validate(); err != nil {
		return export.Artifact{}, err
	}
	var artifact export.Artifact
	err := observability.Observe(ctx, a.metrics, a.tracer, "assemble_report", func(ctx context.Context) error {
		plan, err := a.planner.Plan(ctx, spec, rows)
		if err != nil {
			return err
		}
		var payload []byte
		err = observability.Observe(ctx, a.metrics, a.tracer, "render_"+string(spec.Format), func(context.Context) error {
			var rerr error
			switch spec.Format {
			case export.FormatPDF:
				payload, rerr = a.pdf.Render(plan)
			case export.FormatDOC:
				payload, rerr = a.doc.Render(plan)
			default:
				rerr = fmt.Errorf("unsupported report format %q", spec.Format)
			}
			return rerr
		})
		if err != nil {
			return err
		}
		artifact = export.NewArtifact(spec.slug(), spec.Format, a.now(), payload)
		a.logger.Info("report assembled",
			"filename", artifact.Filename,
			"figures", plan.Figures,
			"tables", plan.Tables,
			"bytes", len(payload))
		return nil
	})
	if err != nil {
		return export.Artifact{}, err
	}
	return artifact, nil
}
