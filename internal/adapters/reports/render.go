// Package reports exposes aggregation, chart, tabular and report exports
// over HTTP and runs long exports on a background worker.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/records"
	"ecoresiduos/internal/report"
)

// ExportKind selects what an export produces.
type ExportKind string

const (
	KindReport  ExportKind = "report"  // PDF or document report
	KindRecords ExportKind = "records" // raw records
	KindResults ExportKind = "results" // aggregation rows
	KindChart   ExportKind = "chart"   // one chart image
)

// ErrInvalidExport wraps malformed export requests.
var ErrInvalidExport = errors.New("invalid export request")

// ExportInput describes one export. Report uses Report; the other kinds use
// Section, Variable and Filters.
type ExportInput struct {
	Kind        ExportKind        `json:"kind" validate:"oneof=report records results chart"`
	Dataset     string            `json:"dataset"`
	Format      export.Format     `json:"format" validate:"required"`
	Report      *report.Spec      `json:"report,omitempty" validate:"-"`
	Section     string            `json:"section,omitempty" validate:"required_if=Kind results,required_if=Kind chart"`
	Variable    string            `json:"variable,omitempty" validate:"required_if=Kind chart"`
	ChartKind   chart.Kind        `json:"chart_kind,omitempty"`
	Filters     records.FilterSet `json:"filters,omitempty"`
	RequestedBy string            `json:"requested_by,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

var validate = validator.New()

var kindFormats = map[ExportKind][]export.Format{
	KindReport:  {export.FormatPDF, export.FormatDOC},
	KindRecords: {export.FormatCSV, export.FormatXLSX, export.FormatJSON},
	KindResults: {export.FormatCSV, export.FormatXLSX, export.FormatJSON},
	KindChart:   {export.FormatPNG, export.FormatJPEG, export.FormatSVG},
}

// Check validates the input shape and resolves catalog references.
func (in ExportInput) Check(cat *catalog.Catalog) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	supported := false
	for _, f := range kindFormats[in.Kind] {
		if f == in.Format {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("%w: format %s not supported for %s exports", ErrInvalidExport, in.Format, in.Kind)
	}
	switch in.Kind {
	case KindReport:
		if in.Report == nil {
			return fmt.Errorf("%w: report selection required", ErrInvalidExport)
		}
		spec := *in.Report
		spec.Format = in.Format
		return spec.Validate()
	case KindResults:
		if in.Variable == "" {
			if _, ok := cat.Section(in.Section); !ok {
				return fmt.Errorf("%w: %s", catalog.ErrUnknownSection, in.Section)
			}
			return nil
		}
		_, err := cat.Lookup(in.Section, in.Variable)
		return err
	case KindChart:
		if _, err := chart.ParseKind(string(in.ChartKind)); err != nil {
			return err
		}
		_, err := cat.Lookup(in.Section, in.Variable)
		return err
	}
	return nil
}

// Exporter turns an ExportInput into an artifact. It is shared by the
// synchronous HTTP downloads and the background worker.
type Exporter struct {
	catalog   *catalog.Catalog
	source    records.Source
	assembler *report.Assembler
	capturer  chart.Capturer
	dataset   string
	now       func() time.Time
}

// NewExporter reads records from source; dataset is used when an input
// names none.
func NewExporter(cat *catalog.Catalog, source records.Source, assembler *report.Assembler, capturer chart.Capturer, dataset string) *Exporter {
	if cat == nil {
		cat = catalog.Default()
	}
	if dataset == "" {
		dataset = records.DatasetSurveys
	}
	return &Exporter{catalog: cat, source: source, assembler: assembler, capturer: capturer, dataset: dataset, now: time.Now}
}

// Catalog returns the catalog exports resolve against.
func (e *Exporter) Catalog() *catalog.Catalog { return e.catalog }

// Records loads the dataset and applies filters.
func (e *Exporter) Records(ctx context.Context, dataset string, filters records.FilterSet) ([]records.Record, error) {
	if e.source == nil {
		return nil, errors.New("records source not configured")
	}
	if dataset == "" {
		dataset = e.dataset
	}
	rows, err := e.source.Load(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dataset, err)
	}
	return filters.Apply(rows), nil
}

// Aggregate returns the result of one variable, or of every variable of the
// section when variableID is empty.
func (e *Exporter) Aggregate(ctx context.Context, dataset, sectionID, variableID string, filters records.FilterSet) ([]aggregate.Result, error) {
	section, ok := e.catalog.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownSection, sectionID)
	}
	vars := section.Variables
	if variableID != "" {
		v, err := e.catalog.Lookup(sectionID, variableID)
		if err != nil {
			return nil, err
		}
		vars = []catalog.Variable{v}
	}
	rows, err := e.Records(ctx, dataset, filters)
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.Result, len(vars))
	for i, v := range vars {
		out[i] = aggregate.Aggregate(rows, v)
	}
	return out, nil
}

// Render produces the artifact described by in.
func (e *Exporter) Render(ctx context.Context, in ExportInput) (export.Artifact, error) {
	if err := in.Check(e.catalog); err != nil {
		return export.Artifact{}, err
	}
	now := e.now()
	switch in.Kind {
	case KindReport:
		if e.assembler == nil {
			return export.Artifact{}, errors.New("report assembler not configured")
		}
		rows, err := e.Records(ctx, in.Dataset, nil)
		if err != nil {
			return export.Artifact{}, err
		}
		spec := *in.Report
		spec.Format = in.Format
		if len(spec.Filters) == 0 {
			spec.Filters = in.Filters
		}
		return e.assembler.Assemble(ctx, spec, rows)
	case KindRecords:
		rows, err := e.Records(ctx, in.Dataset, in.Filters)
		if err != nil {
			return export.Artifact{}, err
		}
		slug := export.FullDatabaseSlug
		if len(in.Filters) > 0 {
			slug = export.Slug("registros", in.Filters.Slug())
		}
		return export.RawRecords(rows, in.Format, slug, now)
	case KindResults:
		results, err := e.Aggregate(ctx, in.Dataset, in.Section, in.Variable, in.Filters)
		if err != nil {
			return export.Artifact{}, err
		}
		return export.Results(results, in.Format, export.Slug(in.Section, in.Variable, in.Filters.Slug()), now)
	case KindChart:
		results, err := e.Aggregate(ctx, in.Dataset, in.Section, in.Variable, in.Filters)
		if err != nil {
			return export.Artifact{}, err
		}
		kind, _ := chart.ParseKind(string(in.ChartKind))
		return export.ChartImage(results[0], kind, in.Format, e.capturer, now)
	}
	return export.Artifact{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidExport, in.Kind)
}
