package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/records"
)

// SheetName is the single worksheet of spreadsheet exports.
const SheetName = "Datos"

// Table is a flat list of uniform rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Objects returns the rows as column-keyed maps.
func (t Table) Objects() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		obj := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			if j < len(row) {
				obj[col] = row[j]
			}
		}
		out[i] = obj
	}
	return out
}

// ResultTable flattens an aggregation into one row per label.
func ResultTable(res aggregate.Result) Table {
	t := Table{Columns: []string{"Variable", "Categoría", "Frecuencia", "Porcentaje"}}
	for _, e := range res.Entries {
		t.Rows = append(t.Rows, []any{res.Title, e.Label, e.Count, aggregate.FormatPercent(e.Percentage)})
	}
	return t
}

// RecordTable lays out raw records under their human-readable field labels.
// Columns follow the sorted union of field names.
func RecordTable(rows []records.Record) Table {
	fields := records.Fields(rows)
	t := Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = records.Label(f)
	}
	for _, r := range rows {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = r[f]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CSV writes comma separated UTF-8 prefixed with a byte-order mark.
func CSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		line := make([]string, len(t.Columns))
		for i := range line {
			if i < len(row) {
				line[i] = cell(row[i])
			}
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "Sí"
		}
		return "No"
	default:
		return fmt.Sprint(x)
	}
}

// XLSX writes a workbook with a single "Datos" sheet and a bold header row.
func XLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if len(t.Columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
			return nil, fmt.Errorf("apply header style: %w", err)
		}
	}
	for i, row := range t.Rows {
		values := append([]any(nil), row...)
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, axis, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON indents with two spaces.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Encode serialises the table in one of the tabular formats.
func Encode(t Table, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(t)
	case FormatXLSX:
		return XLSX(t)
	case FormatJSON:
		return JSON(t.Objects())
	default:
		return nil, fmt.Errorf("%w: %s is not a tabular format", ErrUnsupportedFormat, f)
	}
}
