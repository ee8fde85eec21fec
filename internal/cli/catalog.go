package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/catalog"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	kindStyle    = lipgloss.NewStyle().Faint(true)
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
)

func newCatalogCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the sections and variables that can be aggregated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeIndented(cmd, catalogView(a.cat))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(a.cat))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

type sectionJSON struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Demographic bool                 `json:"demographic"`
	Variables   []catalog.Descriptor `json:"variables"`
}

func catalogView(cat *catalog.Catalog) []sectionJSON {
	var out []sectionJSON
	for _, s := range cat.Sections() {
		view := sectionJSON{ID: s.ID, Title: s.Title, Demographic: s.Demographic}
		for _, v := range s.Variables {
			view.Variables = append(view.Variables, v.Describe())
		}
		if p, ok := s.Pooled(); ok {
			view.Variables = append(view.Variables, p.Describe())
		}
		out = append(out, view)
	}
	return out
}

func renderCatalog(cat *catalog.Catalog) string {
	var blocks []string
	for _, s := range catalogView(cat) {
		lines := []string{headingStyle.Render(s.Title) + " " + idStyle.Render("("+s.ID+")")}
		for _, d := range s.Variables {
			lines = append(lines, fmt.Sprintf("  %s %s %s", idStyle.Render(d.ID), kindStyle.Render("["+string(d.Kind)+"]"), d.Title))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// renderResult draws a result as an aligned frequency table.
func renderResult(res aggregate.Result) string {
	labelW := len("Respuesta")
	for _, e := range res.Entries {
		if n := lipgloss.Width(e.Label); n > labelW {
			labelW = n
		}
	}
	row := func(label, count, pct string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			cellStyle.Width(labelW+2).Render(label),
			cellStyle.Width(12).Align(lipgloss.Right).Render(count),
			cellStyle.Width(12).Align(lipgloss.Right).Render(pct),
		)
	}
	lines := []string{
		headingStyle.Render(res.Title),
		kindStyle.Render(row("Respuesta", "Frecuencia", "Porcentaje")),
	}
	pct := 0.0
	for _, e := range res.Entries {
		lines = append(lines, row(e.Label, fmt.Sprint(e.Count), aggregate.FormatPercent(e.Percentage)))
		pct += e.Percentage
	}
	lines = append(lines, row("Total", fmt.Sprint(res.Total), aggregate.FormatPercent(pct)))
	if res.WeightedScore != nil {
		lines = append(lines, kindStyle.Render("Puntaje ponderado: "+aggregate.FormatPercent(*res.WeightedScore)))
	}
	return strings.Join(lines, "\n")
}

func writeIndented(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// filterFlag registers the repeatable --filter flag.
func filterFlag(cmd *cobra.Command, raw *[]string) {
	cmd.Flags().StringArrayVarP(raw, "filter", "f", nil, `equality filter "field:value", repeatable`)
}

