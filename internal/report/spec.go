// Package report assembles multi-section survey reports. A Planner turns a
// ReportSpec into one format-agnostic Plan of blocks; PDFRenderer and
// DocRenderer paginate that plan into PDF and word-processor documents.
package report

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/records"
)

// ErrEmptySelection rejects a spec without sections or with a section that
// selects no variables.
var ErrEmptySelection = errors.New("report: no sections or variables selected")

// SectionSelection picks variables from one catalog section.
type SectionSelection struct {
	SectionID string   `json:"section_id" validate:"required"`
	Variables []string `json:"variables" validate:"required,min=1,dive,required"`
}

// Spec is the export configuration of one report.
type Spec struct {
	Title          string             `json:"title"`
	Sections       []SectionSelection `json:"sections" validate:"required,min=1,dive"`
	IncludeChart   bool               `json:"include_chart"`
	ChartKind      chart.Kind         `json:"chart_kind" validate:"omitempty,oneof=bar pie line"`
	IncludeTables  bool               `json:"include_tables"`
	Format         export.Format      `json:"format" validate:"oneof=pdf doc"`
	PreviewSection string             `json:"preview_section"`
	Filters        records.FilterSet  `json:"filters" validate:"dive"`
}

var validate = validator.New()

// Validate rejects empty selections with ErrEmptySelection and other
// malformed fields with a descriptive error.
func (s Spec) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid report spec: %w", err)
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Sections", "Variables":
			return ErrEmptySelection
		}
	}
	return fmt.Errorf("invalid report spec: %w", err)
}

func (s Spec) title() string {
	if s.Title != "" {
		return s.Title
	}
	return "Reporte del Programa de Manejo Ecológico de Residuos"
}

func (s Spec) chartKind() chart.Kind {
	if s.ChartKind == "" {
		return chart.KindBar
	}
	return s.ChartKind
}

// selection is a resolved SectionSelection.
type selection struct {
	section   catalog.Section
	variables []catalog.Variable
}

// resolve looks up every selected section and variable in the catalog.
func (s Spec) resolve(cat *catalog.Catalog) ([]selection, error) {
	out := make([]selection, 0, len(s.Sections))
	for _, sel := range s.Sections {
		section, ok := cat.Section(sel.SectionID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownSection, sel.SectionID)
		}
		r := selection{section: section}
		for _, id := range sel.Variables {
			v, err := cat.Lookup(sel.SectionID, id)
			if err != nil {
				return nil, err
			}
			r.variables = append(r.variables, v)
		}
		out = append(out, r)
	}
	return out, nil
}

// slug names the report in its filename.
func (s Spec) slug() string {
	parts := []string{"reporte"}
	if len(s.Sections) == 1 {
		parts = append(parts, s.Sections[0].SectionID)
	} else {
		parts = append(parts, "multiseccion")
	}
	if f := s.Filters.Slug(); f != "" {
		parts = append(parts, f)
	}
	return export.Slug(parts...)
}
