package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"ecoresiduos/internal/records"
)

func TestImportLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "data.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()

	rows := []records.Record{
		{"estado_civil": "Casado", "edad_0_12": 2.0},
		{"estado_civil": "Soltero"},
	}
	if err := store.Import(ctx, records.DatasetSurveys, rows, false); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if err := store.Import(ctx, records.DatasetMeasurements, []records.Record{{"peso_organico_kg": 3.5}}, false); err != nil {
		t.Fatalf("Import measurements: %v", err)
	}
	got, err := store.Load(ctx, records.DatasetSurveys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Text("estado_civil") != "Casado" || got[0].Number("edad_0_12") != 2 {
		t.Fatalf("unexpected records %v", got)
	}
	datasets, err := store.Datasets(ctx)
	if err != nil || len(datasets) != 2 || datasets[1].Name != records.DatasetSurveys || datasets[1].Count != 2 {
		t.Fatalf("unexpected datasets %+v %v", datasets, err)
	}

	if err := store.Import(ctx, records.DatasetSurveys, rows[:1], true); err != nil {
		t.Fatalf("replace import: %v", err)
	}
	got, _ = store.Load(ctx, records.DatasetSurveys)
	if len(got) != 1 {
		t.Fatalf("replace should drop previous rows, got %d", len(got))
	}
	if err := store.Import(ctx, "", rows, false); err == nil {
		t.Fatalf("expected error for empty dataset")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Import(ctx, records.DatasetSurveys, []records.Record{{"sexo": "Mujer"}}, false); err != nil {
		t.Fatalf("Import: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx, records.DatasetSurveys)
	if err != nil || len(got) != 1 || got[0].Text("sexo") != "Mujer" {
		t.Fatalf("unexpected records after reopen %v %v", got, err)
	}
	empty, err := reopened.Load(ctx, "otro")
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown dataset should be empty: %v %v", empty, err)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Import(ctx, records.DatasetSurveys, []records.Record{{"a": "b"}}, false); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got, _ := store.Load(ctx, records.DatasetSurveys); len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
}

func TestOpenError(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatalf("expected open error")
	}
}
