package aggregate

import (
	"fmt"
	"math"
)

// roundHalfUp rounds to the given decimal places. The small guard keeps
// values such as 99.995, stored as 99.99499..., rounding up as written.
func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	guard := 1e-9
	if v < 0 {
		guard = -guard
	}
	return math.Round((v+guard)*p) / p
}

func formatRounded(v float64, places int) string {
	r := roundHalfUp(v, places)
	if whole := math.Round(r); math.Abs(r-whole) < 0.001 {
		return fmt.Sprintf("%d%%", int64(whole))
	}
	return fmt.Sprintf("%.*f%%", places, r)
}

// FormatPercent renders a percentage for tables: two decimals, or a bare
// integer when the rounded value is whole.
func FormatPercent(v float64) string { return formatRounded(v, 2) }

// FormatPercentShort renders the one-decimal variant used on chart labels.
func FormatPercentShort(v float64) string { return formatRounded(v, 1) }
