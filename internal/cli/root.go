// Package cli implements the ecoresiduos command line: catalog listing,
// aggregation previews, chart and tabular exports, report assembly, record
// imports and the HTTP server.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ecoresiduos/internal/adapters/reports"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/config"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/report"
	"ecoresiduos/internal/sources"
)

// version is stamped at build time with -ldflags "-X".
var version = "dev"

// app carries the state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	fs afero.Fs

	cfgFile     string
	envFile     string
	catalogFile string
	dataset     string
	dataPath    string
	driver      string

	cfg    config.Config
	logger *slog.Logger
	tracer observability.Tracer
	cat    *catalog.Catalog
}

// Execute runs the root command against the real filesystem.
func Execute() {
	if err := NewRootCmd(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Records, catalogs and output files are
// read and written through fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	root := &cobra.Command{
		Use:   "ecoresiduos",
		Short: "Survey results, charts and reports of the ecological waste management program",
		Long: `ecoresiduos aggregates the household surveys of the ecological waste
management program, renders their charts, exports tables and assembles
PDF and word-processor reports. It also serves the same operations over HTTP.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&a.catalogFile, "catalog", "", "catalog YAML replacing the embedded one")
	pf.StringVarP(&a.dataset, "dataset", "d", "", "dataset name (overrides records.dataset)")
	pf.StringVar(&a.dataPath, "data", "", "records directory or database file (overrides records.path)")
	pf.StringVar(&a.driver, "driver", "", "records driver: file, sqlite, postgres or memory (overrides records.driver)")

	root.AddCommand(
		newCatalogCmd(a),
		newAggregateCmd(a),
		newPreviewCmd(a),
		newChartCmd(a),
		newExportCmd(a),
		newReportCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.cfgFile, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	if a.dataset != "" {
		cfg.Records.Dataset = a.dataset
	}
	if a.dataPath != "" {
		cfg.Records.Path = a.dataPath
	}
	if a.driver != "" {
		cfg.Records.Driver = a.driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cfg.Log.Trace {
		a.tracer = observability.NewSpanLog(cmd.ErrOrStderr())
	}
	cat := catalog.Default()
	if a.catalogFile != "" {
		data, err := afero.ReadFile(a.fs, a.catalogFile)
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		if cat, err = catalog.Parse(data); err != nil {
			return err
		}
	}
	a.cfg, a.logger, a.cat = cfg, logger, cat
	return nil
}

// exporter opens the configured record store and wires the chart surface and
// report assembler around it. The returned store must be closed by the caller.
func (a *app) exporter(ctx context.Context, metrics observability.MetricsRecorder) (*reports.Exporter, sources.Store, error) {
	store, err := sources.OpenFs(ctx, a.fs, a.cfg.Records)
	if err != nil {
		return nil, nil, err
	}
	capturer := chart.NewOffscreen(chart.WithSettleDelay(a.cfg.Chart.SettleDelay, a.cfg.Chart.PieSettleDelay))
	opts := []report.Option{report.WithLogger(a.logger), report.WithMetrics(metrics)}
	if a.tracer != nil {
		opts = append(opts, report.WithTracer(a.tracer))
	}
	assembler := report.NewAssembler(a.cat, capturer, opts...)
	return reports.NewExporter(a.cat, store, assembler, capturer, a.cfg.Records.Dataset), store, nil
}

// render runs one export and writes the artifact under dir.
func (a *app) render(cmd *cobra.Command, in reports.ExportInput, dir string) error {
	ctx := cmd.Context()
	e, store, err := a.exporter(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			a.logger.Warn("close records store", "error", cerr)
		}
	}()
	artifact, err := e.Render(ctx, in)
	if err != nil {
		return err
	}
	path, err := a.writeArtifact(dir, artifact)
	if err != nil {
		return err
	}
	a.logger.Debug("artifact written", "path", path, "bytes", len(artifact.Payload))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}

func (a *app) writeArtifact(dir string, artifact export.Artifact) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := afero.WriteFile(a.fs, path, artifact.Payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
