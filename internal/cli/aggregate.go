package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/records"
)

// selection holds the flags shared by commands that aggregate one section.
type selection struct {
	section  string
	variable string
	filters  []string
}

func (s *selection) register(cmd *cobra.Command, variableRequired bool) {
	cmd.Flags().StringVarP(&s.section, "section", "s", "", "catalog section id")
	usage := "variable id; empty selects every variable of the section"
	if variableRequired {
		usage = "variable id"
	}
	cmd.Flags().StringVarP(&s.variable, "variable", "v", "", usage)
	filterFlag(cmd, &s.filters)
	_ = cmd.MarkFlagRequired("section")
	if variableRequired {
		_ = cmd.MarkFlagRequired("variable")
	}
}

func (s *selection) results(cmd *cobra.Command, a *app) ([]aggregate.Result, error) {
	filters, err := records.ParseFilters(s.filters)
	if err != nil {
		return nil, err
	}
	e, store, err := a.exporter(cmd.Context(), nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return e.Aggregate(cmd.Context(), "", s.section, s.variable, filters)
}

func newAggregateCmd(a *app) *cobra.Command {
	var (
		sel    selection
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Tally a section or variable over the filtered records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := sel.results(cmd, a)
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndented(cmd, results)
			}
			blocks := make([]string, len(results))
			for i, res := range results {
				blocks[i] = renderResult(res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(blocks, "\n\n"))
			return err
		},
	}
	sel.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		sel   selection
		width int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Draw the charts of a section in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := sel.results(cmd, a)
			if err != nil {
				return err
			}
			blocks := make([]string, len(results))
			for i, res := range results {
				blocks[i] = chart.Terminal(res, width)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(blocks, "\n\n"))
			return err
		},
	}
	sel.register(cmd, false)
	cmd.Flags().IntVarP(&width, "width", "w", 80, "terminal width in columns")
	return cmd
}
