package aggregate

import (
	"fmt"

	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/records"
)

// LikertRow is one variable of a Likert cross-tabulation.
type LikertRow struct {
	VariableID    string    `json:"variable_id"`
	Title         string    `json:"title"`
	Counts        []int     `json:"counts"`
	Percentages   []float64 `json:"percentages"`
	WeightedScore float64   `json:"weighted_score"`
}

// LikertTable cross-tabulates every variable of a Likert section against the
// agreement levels.
type LikertTable struct {
	SectionID string      `json:"section_id"`
	Title     string      `json:"title"`
	Levels    []string    `json:"levels"`
	Rows      []LikertRow `json:"rows"`
	// Average holds the mean of every column across rows.
	Average LikertRow `json:"average"`
	// CountAverages is the mean response count per level across rows.
	CountAverages []float64 `json:"count_averages"`
}

// BuildLikertTable aggregates every Likert variable of the section.
func BuildLikertTable(rows []records.Record, section catalog.Section) (LikertTable, error) {
	members := section.LikertVariables()
	if len(members) == 0 {
		return LikertTable{}, fmt.Errorf("section %s has no likert variables", section.ID)
	}
	levels := catalog.LikertLevels()
	table := LikertTable{SectionID: section.ID, Title: section.Title, Levels: levels}
	pctSums := make([]float64, len(levels))
	countSums := make([]float64, len(levels))
	scoreSum := 0.0
	for _, m := range members {
		res := likert(rows, m)
		row := LikertRow{
			VariableID:  m.ID,
			Title:       m.Title,
			Counts:      make([]int, len(levels)),
			Percentages: make([]float64, len(levels)),
		}
		for i, e := range res.Entries {
			row.Counts[i] = e.Count
			row.Percentages[i] = e.Percentage
			pctSums[i] += e.Percentage
			countSums[i] += float64(e.Count)
		}
		if res.WeightedScore != nil {
			row.WeightedScore = *res.WeightedScore
		}
		scoreSum += row.WeightedScore
		table.Rows = append(table.Rows, row)
	}
	n := float64(len(members))
	table.Average = LikertRow{VariableID: catalog.AllVariables, Title: "Promedio general", Percentages: make([]float64, len(levels))}
	table.CountAverages = make([]float64, len(levels))
	for i := range levels {
		table.Average.Percentages[i] = pctSums[i] / n
		table.CountAverages[i] = countSums[i] / n
	}
	table.Average.WeightedScore = scoreSum / n
	return table, nil
}
