// Package records holds the raw survey and measurement rows consumed by the
// reporting core, the equality filters applied to them, and the sources they
// are loaded from.
package records

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Record is one raw row. Field names follow the catalog's field references.
// Records are never mutated after loading.
type Record map[string]any

// Dataset names the collections produced by the program.
const (
	DatasetSurveys      = "encuestas"
	DatasetMeasurements = "caracterizacion"
)

// Has reports whether the field is present and not nil.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Text returns the field rendered as text. Missing fields yield "".
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

// Number returns the field as float64. Missing, empty or non-numeric values
// yield 0, never an error.
func (r Record) Number(field string) float64 {
	v, ok := r[field]
	if !ok || v == nil {
		return 0
	}
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case float64:
		if math.IsNaN(val) {
			return 0
		}
		return val
	case float32:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", "."), 64)
		if err != nil || math.IsNaN(f) {
			return 0
		}
		return f
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float()
		}
		return 0
	}
}

// Fields returns the sorted union of field names across rows.
func Fields(rows []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
