package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ecoresiduos/internal/records"
	"ecoresiduos/internal/sources"
)

func newImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a JSON or CSV export of the collection forms into the records database",
		Long: `import reads a JSON array of objects or a CSV file with a header row and
stores its rows in the configured dataset. Only the sqlite, postgres and
memory drivers accept imports.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRecords(a.fs, args[0])
			if err != nil {
				return err
			}
			store, err := sources.OpenFs(cmd.Context(), a.fs, a.cfg.Records)
			if err != nil {
				return err
			}
			defer store.Close()
			importer, ok := store.(sources.Importer)
			if !ok {
				return fmt.Errorf("records driver %q does not accept imports", a.cfg.Records.Driver)
			}
			if err := importer.Import(cmd.Context(), a.cfg.Records.Dataset, rows, replace); err != nil {
				return err
			}
			a.logger.Info("records imported", "dataset", a.cfg.Records.Dataset, "rows", len(rows), "replace", replace)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d registros importados en %s\n", len(rows), a.cfg.Records.Dataset)
			return err
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "drop the existing rows of the dataset first")
	return cmd
}

func readRecords(fs afero.Fs, path string) ([]records.Record, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return records.DecodeJSON(bytes.NewReader(data))
	case ".csv":
		return records.DecodeCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported records file %s, expected .json or .csv", path)
	}
}
