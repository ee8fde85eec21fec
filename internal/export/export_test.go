package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/records"
)

var stamp = time.Date(2024, 3, 7, 15, 4, 0, 0, time.UTC)

func sampleResult() aggregate.Result {
	return aggregate.Result{
		VariableID: "estado-civil",
		Title:      "Estado civil",
		Entries: []aggregate.Entry{
			{Label: "Casado", Count: 4, Percentage: 40},
			{Label: "Soltero", Count: 6, Percentage: 60},
		},
		Total:   10,
		Records: 10,
	}
}

func TestFilenameAndSlug(t *testing.T) {
	if got := Filename("reporte_separacion", "pdf", stamp); got != "reporte_separacion_2024-03-07.pdf" {
		t.Fatalf("Filename = %q", got)
	}
	if got := Slug("Separación", "  Hábitos de consumo!", ""); got != "separacion_habitos_de_consumo" {
		t.Fatalf("Slug = %q", got)
	}
	if got := Filename("", "csv", stamp); got != "exportacion_2024-03-07.csv" {
		t.Fatalf("empty slug filename = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPG")
	if err != nil || f != FormatJPEG {
		t.Fatalf("ParseFormat(JPG) = %q, %v", f, err)
	}
	if f.Extension() != "jpg" || f.ContentType() != "image/jpeg" {
		t.Fatalf("unexpected jpeg metadata %q %q", f.Extension(), f.ContentType())
	}
	if _, err := ParseFormat("odt"); err == nil {
		t.Fatalf("expected error for odt")
	}
}

func TestCSVHasBOMAndQuoting(t *testing.T) {
	tbl := Table{
		Columns: []string{"Nombre", "Comentario"},
		Rows:    [][]any{{"Ana", `dijo "hola", luego se fue`}, {"Luis", nil}},
	}
	out, err := CSV(tbl)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\ufeff")) {
		t.Fatalf("missing byte-order mark")
	}
	want := "\ufeffNombre,Comentario\nAna,\"dijo \"\"hola\"\", luego se fue\"\nLuis,\n"
	if string(out) != want {
		t.Fatalf("CSV = %q, want %q", out, want)
	}
	decoded, err := records.DecodeCSV(bytes.NewReader(out))
	if err != nil || len(decoded) != 2 || decoded[0].Text("Nombre") != "Ana" {
		t.Fatalf("round trip through DecodeCSV failed: %v %v", decoded, err)
	}
}

func TestXLSXSingleDatosSheet(t *testing.T) {
	out, err := XLSX(ResultTable(sampleResult()))
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][1] != "Categoría" || rows[2][1] != "Soltero" || rows[2][2] != "6" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestJSONIndentsTwoSpaces(t *testing.T) {
	out, err := JSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if string(out) != "{\n  \"a\": 1\n}" {
		t.Fatalf("JSON = %q", out)
	}
}

func TestRawRecordsRelabelsFields(t *testing.T) {
	rows := []records.Record{{"estado_civil": "Casado", "campo_libre": "x"}}
	art, err := RawRecords(rows, FormatJSON, "", stamp)
	if err != nil {
		t.Fatalf("RawRecords: %v", err)
	}
	if art.Filename != "base_de_datos_completa_2024-03-07.json" || art.ContentType != "application/json" {
		t.Fatalf("unexpected artifact %q %q", art.Filename, art.ContentType)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(art.Payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0][records.Label("estado_civil")] != "Casado" || decoded[0]["campo_libre"] != "x" {
		t.Fatalf("fields not relabelled: %v", decoded[0])
	}

	csvArt, err := RawRecords(rows, FormatCSV, "", stamp)
	if err != nil {
		t.Fatalf("RawRecords csv: %v", err)
	}
	if !strings.Contains(string(csvArt.Payload), records.Label("estado_civil")) {
		t.Fatalf("csv header not relabelled: %q", csvArt.Payload)
	}
}

func TestResultsConcatenatesTables(t *testing.T) {
	art, err := Results([]aggregate.Result{sampleResult(), sampleResult()}, FormatCSV, "separacion", stamp)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if lines := strings.Count(string(art.Payload), "\n"); lines != 5 {
		t.Fatalf("expected header plus four rows, got %d lines", lines)
	}
	if _, err := Results(nil, FormatPNG, "x", stamp); err == nil {
		t.Fatalf("expected error for non-tabular format")
	}
}

func TestPinSVG(t *testing.T) {
	in := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="320" viewBox="0 0 10 10"><rect width="5" height="5"/></svg>`)
	out, err := PinSVG(in, 800, 500)
	if err != nil {
		t.Fatalf("PinSVG: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Fatalf("missing xml header: %s", s)
	}
	if !strings.Contains(s, `<svg width="800" height="500" viewBox="0 0 800 500" xmlns=`) {
		t.Fatalf("root not pinned: %s", s)
	}
	if !strings.Contains(s, `<rect width="5" height="5"/>`) {
		t.Fatalf("child attributes must be untouched: %s", s)
	}
	if _, err := PinSVG([]byte("<div/>"), 1, 1); err == nil {
		t.Fatalf("expected error without svg root")
	}
}

type stubCapturer struct {
	calls int
	err   error
}

func (s *stubCapturer) Capture(res aggregate.Result, kind chart.Kind) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	img := image.NewRGBA(image.Rect(0, 0, chart.ExportWidth, chart.ExportHeight))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func TestChartImageEncodings(t *testing.T) {
	capt := &stubCapturer{}
	pngArt, err := ChartImage(sampleResult(), chart.KindBar, FormatPNG, capt, stamp)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if pngArt.Filename != "grafico_estado_civil_bar_2024-03-07.png" {
		t.Fatalf("png filename %q", pngArt.Filename)
	}
	jpgArt, err := ChartImage(sampleResult(), chart.KindPie, FormatJPEG, capt, stamp)
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(jpgArt.Payload))
	if err != nil || format != "jpeg" || cfg.Width != 800 || cfg.Height != 500 {
		t.Fatalf("jpeg decode: %v %s %dx%d", err, format, cfg.Width, cfg.Height)
	}
	svgArt, err := ChartImage(sampleResult(), chart.KindLine, FormatSVG, nil, stamp)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(string(svgArt.Payload), `viewBox="0 0 800 500"`) || svgArt.ContentType != "image/svg+xml" {
		t.Fatalf("svg not pinned")
	}
	if capt.calls != 2 {
		t.Fatalf("svg path must not capture; calls=%d", capt.calls)
	}
	if _, err := ChartImage(sampleResult(), chart.KindBar, FormatPNG, nil, stamp); !errors.Is(err, ErrNoCapturer) {
		t.Fatalf("expected ErrNoCapturer, got %v", err)
	}
	failing := &stubCapturer{err: errors.New("surface lost")}
	if _, err := ChartImage(sampleResult(), chart.KindBar, FormatPNG, failing, stamp); err == nil {
		t.Fatalf("expected capture error")
	}
}
