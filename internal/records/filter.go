package records

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Predicate is an equality test over one field.
type Predicate struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// FilterSet is a conjunction of predicates. The zero value matches everything.
type FilterSet []Predicate

// Matches reports whether the record satisfies every predicate. Comparison
// ignores surrounding whitespace and case.
func (f FilterSet) Matches(r Record) bool {
	for _, p := range f {
		if foldKey(r.Text(p.Field)) != foldKey(p.Value) {
			return false
		}
	}
	return true
}

// Apply returns the matching subset as a new slice. The input is left untouched.
func (f FilterSet) Apply(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary renders the active filters for report headers.
func (f FilterSet) Summary() string {
	if len(f) == 0 {
		return "Sin filtros aplicados"
	}
	parts := make([]string, len(f))
	for i, p := range f {
		parts[i] = fmt.Sprintf("%s = %s", Label(p.Field), p.Value)
	}
	return "Filtros: " + strings.Join(parts, "; ")
}

// Slug returns a short identifier of the filters for filenames.
func (f FilterSet) Slug() string {
	if len(f) == 0 {
		return ""
	}
	parts := make([]string, len(f))
	for i, p := range f {
		parts[i] = p.Value
	}
	return strings.Join(parts, "-")
}

// foldKey is the comparison form of a value. Casers are stateful, so one is
// built per call.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ParseFilters reads "field:value" pairs as given on query strings and
// command lines.
func ParseFilters(raw []string) (FilterSet, error) {
	var out FilterSet
	for _, f := range raw {
		field, value, ok := strings.Cut(f, ":")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field:value", f)
		}
		out = append(out, Predicate{Field: strings.TrimSpace(field), Value: value})
	}
	return out, nil
}
