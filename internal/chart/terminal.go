package chart

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"ecoresiduos/internal/aggregate"
)

var (
	termTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(hexColor(palette[0])))
	termLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	termNote  = lipgloss.NewStyle().Faint(true)
)

// Terminal renders a horizontal bar preview of the result for a terminal of
// the given width.
func Terminal(res aggregate.Result, width int) string {
	if width <= 0 {
		width = 80
	}
	labelW := 0
	maxCount := 0
	for _, e := range res.Entries {
		if n := utf8.RuneCountInString(e.Label); n > labelW {
			labelW = n
		}
		if e.Count > maxCount {
			maxCount = e.Count
		}
	}
	if labelW > width/3 {
		labelW = width / 3
	}
	barW := width - labelW - 20
	if barW < 10 {
		barW = 10
	}

	lines := []string{termTitle.Render(res.Title)}
	for i, e := range res.Entries {
		n := 0
		if maxCount > 0 {
			n = e.Count * barW / maxCount
		}
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(paletteColor(i)))).Render(strings.Repeat("█", n))
		label := termLabel.Width(labelW).MaxWidth(labelW).Render(e.Label)
		lines = append(lines, fmt.Sprintf("%s %s %d (%s)", label, bar, e.Count, aggregate.FormatPercent(e.Percentage)))
	}
	footer := fmt.Sprintf("Total: %d respuestas de %d registros", res.Total, res.Records)
	if res.WeightedScore != nil {
		footer += fmt.Sprintf(" · puntaje ponderado %s", aggregate.FormatPercent(*res.WeightedScore))
	}
	lines = append(lines, termNote.Render(footer))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
