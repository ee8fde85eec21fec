package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecoresiduos/internal/adapters/reports"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/records"
	"ecoresiduos/internal/report"
)

func newChartCmd(a *app) *cobra.Command {
	var (
		sel    selection
		kind   string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Export one chart as PNG, JPEG or SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := chart.ParseKind(kind)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filters, err := records.ParseFilters(sel.filters)
			if err != nil {
				return err
			}
			return a.render(cmd, reports.ExportInput{
				Kind:      reports.KindChart,
				Format:    f,
				Section:   sel.section,
				Variable:  sel.variable,
				ChartKind: k,
				Filters:   filters,
			}, out)
		},
	}
	sel.register(cmd, true)
	cmd.Flags().StringVarP(&kind, "kind", "k", "bar", "chart kind: bar, pie or line")
	cmd.Flags().StringVar(&format, "format", "png", "image format: png, jpeg or svg")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		sel    selection
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export raw records, or the results of a section, as CSV, XLSX or JSON",
		Long: `Without --section the filtered records are exported as they were collected.
With --section the aggregation rows of the section (or of one --variable)
are exported instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filters, err := records.ParseFilters(sel.filters)
			if err != nil {
				return err
			}
			in := reports.ExportInput{Kind: reports.KindRecords, Format: f, Filters: filters}
			if sel.section != "" {
				in.Kind = reports.KindResults
				in.Section = sel.section
				in.Variable = sel.variable
			}
			return a.render(cmd, in, out)
		},
	}
	cmd.Flags().StringVarP(&sel.section, "section", "s", "", "catalog section id; empty exports raw records")
	cmd.Flags().StringVarP(&sel.variable, "variable", "v", "", "variable id within --section")
	filterFlag(cmd, &sel.filters)
	cmd.Flags().StringVar(&format, "format", "csv", "table format: csv, xlsx or json")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		selections []string
		filters    []string
		spec       report.Spec
		chartKind  string
		format     string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Assemble a PDF or word-processor report",
		Long: `Each --select names a section, optionally followed by a comma separated
list of its variables: "separacion" or "separacion:separacion-hogar,todas".
A bare section selects all of its variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sections, err := parseSelections(a.cat, selections)
			if err != nil {
				return err
			}
			if spec.ChartKind, err = chart.ParseKind(chartKind); err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			fs, err := records.ParseFilters(filters)
			if err != nil {
				return err
			}
			spec.Sections = sections
			spec.Filters = fs
			return a.render(cmd, reports.ExportInput{
				Kind:    reports.KindReport,
				Format:  f,
				Report:  &spec,
				Filters: fs,
			}, out)
		},
	}
	cmd.Flags().StringArrayVar(&selections, "select", nil, `section selection "section[:var1,var2]", repeatable`)
	filterFlag(cmd, &filters)
	cmd.Flags().StringVarP(&spec.Title, "title", "t", "", "report title")
	cmd.Flags().BoolVar(&spec.IncludeChart, "charts", true, "include chart figures")
	cmd.Flags().BoolVar(&spec.IncludeTables, "tables", true, "include frequency tables")
	cmd.Flags().StringVarP(&chartKind, "kind", "k", "bar", "chart kind: bar, pie or line")
	cmd.Flags().StringVar(&spec.PreviewSection, "preview", "", "section whose Likert summary tables close the report")
	cmd.Flags().StringVar(&format, "format", "pdf", "report format: pdf or doc")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}

// parseSelections expands "section[:var1,var2]" arguments. A bare section
// selects every variable in catalog order.
func parseSelections(cat *catalog.Catalog, raw []string) ([]report.SectionSelection, error) {
	out := make([]report.SectionSelection, 0, len(raw))
	for _, r := range raw {
		id, vars, hasVars := strings.Cut(strings.TrimSpace(r), ":")
		sel := report.SectionSelection{SectionID: id}
		if hasVars {
			for _, v := range strings.Split(vars, ",") {
				if v = strings.TrimSpace(v); v != "" {
					sel.Variables = append(sel.Variables, v)
				}
			}
		} else {
			section, ok := cat.Section(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownSection, id)
			}
			for _, v := range section.Variables {
				sel.Variables = append(sel.Variables, v.Describe().ID)
			}
		}
		out = append(out, sel)
	}
	return out, nil
}
