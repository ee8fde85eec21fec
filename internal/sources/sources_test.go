package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"ecoresiduos/internal/config"
	"ecoresiduos/internal/records"
)

func TestOpenFileDriver(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/encuestas.json", []byte(`[{"sexo":"Mujer"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := OpenFs(context.Background(), fs, config.RecordsConfig{Path: "/data"})
	if err != nil {
		t.Fatalf("OpenFs: %v", err)
	}
	defer func() { _ = store.Close() }()
	rows, err := store.Load(context.Background(), records.DatasetSurveys)
	if err != nil || len(rows) != 1 {
		t.Fatalf("unexpected load %v %v", rows, err)
	}
	if _, ok := store.(Importer); ok {
		t.Fatalf("file store should not accept imports")
	}
}

func TestOpenImportableDrivers(t *testing.T) {
	cases := []config.RecordsConfig{
		{Driver: string(DriverMemory)},
		{Driver: string(DriverSQLite), Path: filepath.Join(t.TempDir(), "r.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Driver, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = store.Close() }()
			imp, ok := store.(Importer)
			if !ok {
				t.Fatalf("%s store should accept imports", cfg.Driver)
			}
			row := []records.Record{{"sexo": "Hombre"}}
			if err := imp.Import(ctx, records.DatasetSurveys, row, false); err != nil {
				t.Fatalf("Import: %v", err)
			}
			if err := imp.Import(ctx, records.DatasetSurveys, row, false); err != nil {
				t.Fatalf("Import: %v", err)
			}
			got, _ := store.Load(ctx, records.DatasetSurveys)
			if len(got) != 2 {
				t.Fatalf("append import expected 2 rows, got %d", len(got))
			}
			if err := imp.Import(ctx, records.DatasetSurveys, row, true); err != nil {
				t.Fatalf("Import replace: %v", err)
			}
			got, _ = store.Load(ctx, records.DatasetSurveys)
			if len(got) != 1 {
				t.Fatalf("replace import expected 1 row, got %d", len(got))
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.RecordsConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
