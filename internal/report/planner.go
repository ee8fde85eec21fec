package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/records"
)

// FooterNote closes every report.
const FooterNote = "Fuente: elaboración propia con datos del Programa de Manejo Ecológico de Residuos."

// NoDataNotice replaces a table that could not be built.
const NoDataNotice = "Sin datos para esta selección"

// CombinedVariableID identifies the pooled distribution of Figure 1.
const CombinedVariableID = "combinado"

// Planner lays out the content of a report without committing to an output
// format. Captures run one after another on the shared capturer.
type Planner struct {
	catalog  *catalog.Catalog
	capturer chart.Capturer
	logger   observability.Logger
	now      func() time.Time
}

// NewPlanner returns a planner over cat. A nil capturer turns every figure
// into a placeholder.
func NewPlanner(cat *catalog.Catalog, capturer chart.Capturer, logger observability.Logger) *Planner {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Planner{catalog: cat, capturer: capturer, logger: logger, now: time.Now}
}

// Plan validates spec, filters rows and builds the block sequence:
// header, combined figure, per-section figures and tables, trailing Likert
// table and footer.
func (p *Planner) Plan(ctx context.Context, spec Spec, rows []records.Record) (Plan, error) {
	if err := spec.Validate(); err != nil {
		return Plan{}, err
	}
	selected, err := spec.resolve(p.catalog)
	if err != nil {
		return Plan{}, err
	}
	filtered := spec.Filters.Apply(rows)
	plan := Plan{Title: spec.title()}

	plan.add(Block{Kind: BlockTitle, Text: plan.Title})
	plan.add(Block{Kind: BlockMeta, Text: "Fecha de generación: " + p.now().Format("02/01/2006")})
	plan.add(Block{Kind: BlockMeta, Text: spec.Filters.Summary()})
	plan.add(Block{Kind: BlockMeta, Text: fmt.Sprintf("Total de registros: %d", len(filtered))})

	kind := spec.chartKind()
	if spec.IncludeChart {
		if combined, ok := combinedVariable(selected); ok {
			if err := ctx.Err(); err != nil {
				return Plan{}, err
			}
			res := aggregate.Aggregate(filtered, combined)
			plan.addFigure(p.figure(res, kind, "Distribución general de respuestas de las secciones seleccionadas"))
		}
	}

	for _, sel := range selected {
		plan.add(Block{Kind: BlockHeading, Text: sel.section.Title, KeepWithNext: true})
		results := make([]aggregate.Result, 0, len(sel.variables))
		for _, v := range sel.variables {
			res := aggregate.Aggregate(filtered, v)
			results = append(results, res)
			if !spec.IncludeChart {
				continue
			}
			if err := ctx.Err(); err != nil {
				return Plan{}, err
			}
			plan.addFigure(p.figure(res, kind, res.Title))
		}
		if spec.IncludeTables {
			table, err := sectionTable(sel.section, results)
			if err != nil {
				p.logger.Warn("section table skipped", "section", sel.section.ID, "error", err)
				plan.add(Block{Kind: BlockNotice, Text: NoDataNotice})
				continue
			}
			plan.addTable(table)
		}
	}

	if section, ok := p.previewSection(spec.PreviewSection); ok {
		tables, err := likertTables(filtered, section, spec.Format == export.FormatDOC)
		if err != nil {
			p.logger.Warn("likert table skipped", "section", section.ID, "error", err)
			plan.add(Block{Kind: BlockNotice, Text: NoDataNotice})
		}
		for _, t := range tables {
			plan.addTable(t)
		}
	}

	plan.add(Block{Kind: BlockFooter, Text: FooterNote})
	return plan, nil
}

// figure captures res. Capture failures become a placeholder figure so the
// report still renders.
func (p *Planner) figure(res aggregate.Result, kind chart.Kind, caption string) Figure {
	f := Figure{Title: res.Title, Caption: caption, Note: figureNote(res), Kind: string(kind)}
	f.Width, f.Height = chart.ExportWidth, chart.ExportHeight
	if p.capturer == nil {
		f.Placeholder = placeholder(f.Title)
		p.logger.Warn("chart capture unavailable", "variable", res.VariableID)
		return f
	}
	png, err := p.capturer.Capture(res, kind)
	if err != nil {
		f.Placeholder = placeholder(f.Title)
		p.logger.Warn("chart capture failed", "variable", res.VariableID, "kind", kind, "error", err)
		return f
	}
	f.PNG = png
	return f
}

func placeholder(title string) string {
	return fmt.Sprintf("No fue posible generar la gráfica «%s».", title)
}

func figureNote(res aggregate.Result) string {
	note := fmt.Sprintf("Nota: n = %d respuestas de %d registros.", res.Total, res.Records)
	if res.WeightedScore != nil {
		note += " Puntaje ponderado: " + aggregate.FormatPercent(*res.WeightedScore) + "."
	}
	return note
}

// previewSection returns the section of the trailing Likert table, which is
// only emitted for non-demographic Likert sections.
func (p *Planner) previewSection(id string) (catalog.Section, bool) {
	if id == "" {
		return catalog.Section{}, false
	}
	section, ok := p.catalog.Section(id)
	if !ok || section.Demographic || !section.IsLikert() {
		return catalog.Section{}, false
	}
	return section, true
}

// combinedVariable pools the Likert variables selected in non-demographic
// sections. The "todas" pseudo-variable contributes all of its members once.
func combinedVariable(selected []selection) (catalog.Pooled, bool) {
	seen := make(map[string]struct{})
	var members []catalog.Likert
	addMember := func(l catalog.Likert) {
		if _, ok := seen[l.Field]; ok {
			return
		}
		seen[l.Field] = struct{}{}
		members = append(members, l)
	}
	for _, sel := range selected {
		if sel.section.Demographic {
			continue
		}
		for _, v := range sel.variables {
			switch v := v.(type) {
			case catalog.Likert:
				addMember(v)
			case catalog.Pooled:
				for _, m := range v.Members {
					addMember(m)
				}
			}
		}
	}
	if len(members) == 0 {
		return catalog.Pooled{}, false
	}
	return catalog.Pooled{ID: CombinedVariableID, Title: "Distribución general", Members: members}, true
}

var errNoVariables = errors.New("no variables to tabulate")

// sectionTable lists the tallies of every selected variable of a section:
// a shaded group row per variable, its entries, and a totals row.
func sectionTable(section catalog.Section, results []aggregate.Result) (Table, error) {
	if len(results) == 0 {
		return Table{}, errNoVariables
	}
	t := Table{
		Caption: "Resumen de " + section.Title,
		Columns: []string{"Respuesta", "Frecuencia", "Porcentaje"},
		Widths:  []float64{3, 1, 1},
		Note:    "Nota: porcentajes calculados sobre las respuestas válidas de cada variable.",
	}
	for _, res := range results {
		if len(res.Entries) == 0 {
			return Table{}, fmt.Errorf("variable %s has an empty domain", res.VariableID)
		}
		t.Rows = append(t.Rows, Row{Cells: []string{res.Title}, Style: RowGroup})
		for _, e := range res.Entries {
			t.Rows = append(t.Rows, Row{Cells: []string{e.Label, fmt.Sprint(e.Count), aggregate.FormatPercent(e.Percentage)}})
		}
		pct := 0.0
		for _, e := range res.Entries {
			pct += e.Percentage
		}
		t.Rows = append(t.Rows, Row{Cells: []string{"Total", fmt.Sprint(res.Total), aggregate.FormatPercent(pct)}, Style: RowTotal})
	}
	return t, nil
}

// likertTables cross-tabulates a Likert section. withCounts appends the
// table of column-wise average counts.
func likertTables(rows []records.Record, section catalog.Section, withCounts bool) ([]Table, error) {
	ct, err := aggregate.BuildLikertTable(rows, section)
	if err != nil {
		return nil, err
	}
	columns := append([]string{"Variable"}, ct.Levels...)
	widths := []float64{3}
	for range ct.Levels {
		widths = append(widths, 1)
	}
	pctTable := Table{
		Caption: "Escala de Likert: " + section.Title,
		Columns: append(append([]string(nil), columns...), "Puntaje ponderado"),
		Widths:  append(append([]float64(nil), widths...), 1.2),
		Note:    fmt.Sprintf("Nota: porcentajes por nivel de acuerdo sobre %d registros.", len(rows)),
	}
	all := append(append([]aggregate.LikertRow(nil), ct.Rows...), ct.Average)
	for _, r := range all {
		cells := []string{r.Title}
		for _, pct := range r.Percentages {
			cells = append(cells, aggregate.FormatPercent(pct))
		}
		cells = append(cells, aggregate.FormatPercent(r.WeightedScore))
		row := Row{Cells: cells}
		if r.VariableID == catalog.AllVariables {
			row.Style = RowAverage
		}
		pctTable.Rows = append(pctTable.Rows, row)
	}
	out := []Table{pctTable}
	if !withCounts {
		return out, nil
	}
	countTable := Table{
		Caption: "Promedio de respuestas por nivel: " + section.Title,
		Columns: columns,
		Widths:  widths,
		Note:    "Nota: promedio de respuestas por variable de la sección.",
	}
	cells := []string{"Promedio"}
	for _, c := range ct.CountAverages {
		cells = append(cells, strconv.FormatFloat(c, 'f', 2, 64))
	}
	countTable.Rows = append(countTable.Rows, Row{Cells: cells, Style: RowAverage})
	return append(out, countTable), nil
}
