package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/infra/persistence/sqlite"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/records"
)

var likertLevels = []string{"Totalmente desacuerdo", "Desacuerdo", "Indiferente", "De acuerdo", "Totalmente de acuerdo"}

func fixtureRows() []records.Record {
	var rows []records.Record
	for i := 0; i < 10; i++ {
		civil := "Casado"
		if i%2 == 1 {
			civil = "Soltero"
		}
		rows = append(rows, records.Record{
			"estado_civil":     civil,
			"sexo":             "Mujer",
			"sep_importancia":  likertLevels[i%5],
			"sep_hogar":        likertLevels[(i+1)%5],
			"sep_contenedores": likertLevels[(i+2)%5],
			"sep_informacion":  likertLevels[(i+3)%5],
		})
	}
	return rows
}

func seedFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	data, err := json.Marshal(fixtureRows())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := afero.WriteFile(fs, "data/encuestas.json", data, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return fs
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ECORESIDUOS_CHART_SETTLE_DELAY", "0s")
	t.Setenv("ECORESIDUOS_CHART_PIE_SETTLE_DELAY", "0s")
	t.Setenv("ECORESIDUOS_LOG_LEVEL", "error")
	cmd := NewRootCmd(fs)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", "", "--data", "data"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, seedFs(t), "catalog", "--json")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var sections []sectionJSON
	if err := json.Unmarshal([]byte(out), &sections); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(sections) != len(catalog.Default().Sections()) {
		t.Fatalf("expected every section, got %d", len(sections))
	}
	out, err = run(t, seedFs(t), "catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "separacion-hogar") || !strings.Contains(out, "todas") {
		t.Fatalf("listing misses variables:\n%s", out)
	}
}

func TestAggregateCommand(t *testing.T) {
	out, err := run(t, seedFs(t), "aggregate", "-s", "datos-generales", "-v", "estado-civil", "-f", "estado_civil:casado", "--json")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	var results []aggregate.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Records != 5 || results[0].Total != 5 {
		t.Fatalf("unexpected results %+v", results)
	}

	out, err = run(t, seedFs(t), "aggregate", "-s", "separacion")
	if err != nil {
		t.Fatalf("aggregate table: %v", err)
	}
	for _, want := range []string{"Respuesta", "Frecuencia", "Total", "Puntaje ponderado"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table misses %q:\n%s", want, out)
		}
	}
}

func TestAggregateErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing section flag", []string{"aggregate"}},
		{"unknown section", []string{"aggregate", "-s", "nada"}},
		{"bad filter", []string{"aggregate", "-s", "separacion", "-f", "sinvalor"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := run(t, seedFs(t), tc.args...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPreviewCommand(t *testing.T) {
	out, err := run(t, seedFs(t), "preview", "-s", "separacion", "-v", "separacion-hogar", "-w", "60")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(out, "█") || !strings.Contains(out, "respuestas de 10 registros") {
		t.Fatalf("unexpected preview:\n%s", out)
	}
}

func TestChartCommandWritesImage(t *testing.T) {
	fs := seedFs(t)
	out, err := run(t, fs, "chart", "-s", "separacion", "-v", "separacion-hogar", "-k", "pie", "-o", "out")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	path := strings.TrimSpace(out)
	if !strings.HasPrefix(path, filepath.Join("out", "grafico_separacion_hogar_pie_")) || !strings.HasSuffix(path, ".png") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("artifact is not a png")
	}
	if _, err := run(t, fs, "chart", "-s", "separacion", "-v", "separacion-hogar", "-k", "radar"); err == nil {
		t.Fatalf("expected unsupported kind error")
	}
}

func TestExportCommand(t *testing.T) {
	fs := seedFs(t)
	out, err := run(t, fs, "export", "-o", "out")
	if err != nil {
		t.Fatalf("export records: %v", err)
	}
	path := strings.TrimSpace(out)
	if !strings.Contains(path, "base_de_datos_completa_") || !strings.HasSuffix(path, ".csv") {
		t.Fatalf("unexpected records path %q", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\ufeff")) || bytes.Count(data, []byte("\n")) < 11 {
		t.Fatalf("unexpected csv:\n%s", data)
	}

	out, err = run(t, fs, "export", "-s", "separacion", "--format", "xlsx", "-o", "out")
	if err != nil {
		t.Fatalf("export results: %v", err)
	}
	if path := strings.TrimSpace(out); !strings.HasSuffix(path, ".xlsx") || !strings.Contains(path, "separacion_") {
		t.Fatalf("unexpected results path %q", path)
	}

	if _, err := run(t, fs, "export", "--format", "pdf"); err == nil {
		t.Fatalf("pdf is not a table format")
	}
}

func TestReportCommand(t *testing.T) {
	fs := seedFs(t)
	out, err := run(t, fs, "report",
		"--select", "separacion",
		"--select", "datos-generales:estado-civil",
		"--preview", "separacion",
		"--format", "doc",
		"-o", "reportes")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	path := strings.TrimSpace(out)
	if !strings.HasPrefix(path, filepath.Join("reportes", "reporte_multiseccion_")) || !strings.HasSuffix(path, ".doc") {
		t.Fatalf("unexpected report path %q", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(data, []byte("Figura 1")) || !bytes.Contains(data, []byte("Tabla 1")) {
		t.Fatalf("report lacks numbered blocks")
	}

	out, err = run(t, fs, "report", "--select", "separacion:separacion-hogar", "--charts=false")
	if err != nil {
		t.Fatalf("pdf report: %v", err)
	}
	data, err = afero.ReadFile(fs, strings.TrimSpace(out))
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected a pdf, err=%v", err)
	}
}

func TestReportCommandRejectsEmptySelection(t *testing.T) {
	fs := seedFs(t)
	if _, err := run(t, fs, "report"); err == nil {
		t.Fatalf("expected empty selection error")
	}
	if _, err := run(t, fs, "report", "--select", "separacion:"); err == nil {
		t.Fatalf("expected empty variable list error")
	}
	files, _ := afero.Glob(fs, "*.pdf")
	if len(files) != 0 {
		t.Fatalf("nothing should be written, got %v", files)
	}
}

func TestReportCommandTracesSpans(t *testing.T) {
	t.Setenv("ECORESIDUOS_CHART_SETTLE_DELAY", "0s")
	t.Setenv("ECORESIDUOS_CHART_PIE_SETTLE_DELAY", "0s")
	t.Setenv("ECORESIDUOS_LOG_LEVEL", "error")
	t.Setenv("ECORESIDUOS_LOG_TRACE", "true")
	cmd := NewRootCmd(seedFs(t))
	var stderr bytes.Buffer
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--env-file", "", "--data", "data", "report", "--select", "separacion:separacion-hogar", "--charts=false"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}

	spans := map[string]observability.SpanRecord{}
	for _, line := range strings.Split(strings.TrimSpace(stderr.String()), "\n") {
		var rec observability.SpanRecord
		if json.Unmarshal([]byte(line), &rec) == nil && rec.Name != "" {
			spans[rec.Name] = rec
		}
	}
	outer, ok := spans["assemble_report"]
	if !ok {
		t.Fatalf("no assemble_report span in:\n%s", stderr.String())
	}
	inner, ok := spans["render_pdf"]
	if !ok || inner.Parent != outer.ID || outer.Failed || inner.Failed {
		t.Fatalf("unexpected spans %+v", spans)
	}
}

func TestParseSelections(t *testing.T) {
	got, err := parseSelections(catalog.Default(), []string{"separacion", " datos-generales: sexo , estado-civil "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || len(got[0].Variables) != 4 || got[0].Variables[0] != "separacion-importancia" {
		t.Fatalf("unexpected bare section expansion %+v", got)
	}
	if strings.Join(got[1].Variables, ",") != "sexo,estado-civil" {
		t.Fatalf("unexpected explicit variables %+v", got[1])
	}
	if _, err := parseSelections(catalog.Default(), []string{"nada"}); err == nil {
		t.Fatalf("expected unknown section")
	}
}

func TestImportIntoSQLite(t *testing.T) {
	fs := seedFs(t)
	csv := "estado_civil,sexo\nCasado,Mujer\nSoltero,Hombre\n"
	if err := afero.WriteFile(fs, "nuevos.csv", []byte(csv), 0o644); err != nil {
		t.Fatalf("seed csv: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "registros.db")
	base := []string{"--driver", "sqlite", "--data", dbPath}

	out, err := run(t, fs, append(base, "import", "data/encuestas.json")...)
	if err != nil {
		t.Fatalf("import json: %v", err)
	}
	if !strings.Contains(out, "10 registros importados en encuestas") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, fs, append(base, "import", "nuevos.csv")...); err != nil {
		t.Fatalf("import csv: %v", err)
	}

	store, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, err := store.Load(context.Background(), records.DatasetSurveys)
	_ = store.Close()
	if err != nil || len(rows) != 12 {
		t.Fatalf("expected 12 appended rows, got %d err=%v", len(rows), err)
	}

	if _, err := run(t, fs, append(base, "import", "--replace", "nuevos.csv")...); err != nil {
		t.Fatalf("import replace: %v", err)
	}
	out, err = run(t, fs, append(base, "aggregate", "-s", "datos-generales", "-v", "sexo", "--json")...)
	if err != nil {
		t.Fatalf("aggregate from sqlite: %v", err)
	}
	var results []aggregate.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil || results[0].Records != 2 {
		t.Fatalf("expected 2 records after replace, got %s", out)
	}
}

func TestImportErrors(t *testing.T) {
	fs := seedFs(t)
	if _, err := run(t, fs, "import", "data/encuestas.json"); err == nil || !strings.Contains(err.Error(), "does not accept imports") {
		t.Fatalf("file driver must refuse imports, got %v", err)
	}
	if err := afero.WriteFile(fs, "datos.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := run(t, fs, "--driver", "memory", "import", "datos.txt"); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := run(t, fs, "--driver", "memory", "import", "faltante.json"); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestCatalogOverride(t *testing.T) {
	fs := seedFs(t)
	doc := `sections:
  - id: perfil
    title: Perfil
    demographic: true
    variables:
      - id: sexo
        title: Sexo
        kind: categorical
        field: sexo
        labels: [Mujer, Hombre]
`
	if err := afero.WriteFile(fs, "catalogo.yaml", []byte(doc), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, err := run(t, fs, "--catalog", "catalogo.yaml", "catalog", "--json")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, `"perfil"`) || strings.Contains(out, `"separacion"`) {
		t.Fatalf("override not applied:\n%s", out)
	}
	if _, err := run(t, fs, "--catalog", "nada.yaml", "catalog"); err == nil {
		t.Fatalf("expected missing catalog error")
	}
}

func TestServerRoutes(t *testing.T) {
	fs := seedFs(t)
	t.Setenv("ECORESIDUOS_BLOB_DRIVER", "memory")
	t.Setenv("ECORESIDUOS_LOG_LEVEL", "error")
	cmd := NewRootCmd(fs)
	cmd.SetErr(io.Discard)
	a := &app{fs: fs, dataPath: "data"}
	if err := a.load(cmd); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv, err := a.newServer(context.Background())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.records.Close()
	if srv.blobs.Driver() != "memory" {
		t.Fatalf("expected memory artifacts, got %s", srv.blobs.Driver())
	}

	ts := httptest.NewServer(srv.http.Handler)
	defer ts.Close()
	for path, want := range map[string]string{
		"/api/v1/catalog":    `"separacion"`,
		"/metrics":           "go_goroutines",
		"/debug/vars":        "memstats",
		"/api/v1/aggregations?section=datos-generales&variable=sexo": `"records":10`,
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Fatalf("%s: status %d body %.200s", path, resp.StatusCode, body)
		}
	}
}
