// Package aggregate turns filtered records into normalized tallies: one entry
// per domain label with its count and percentage, plus the weighted score of
// Likert items. Every function here is pure.
package aggregate

import (
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/records"
)

// Entry is one label of an aggregation result.
type Entry struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Result is the aggregation of one variable over a record set.
type Result struct {
	VariableID string       `json:"variable_id"`
	Title      string       `json:"title"`
	Kind       catalog.Kind `json:"kind"`
	Entries    []Entry      `json:"entries"`
	// Total is the sum of counts, the denominator of the percentages.
	Total int `json:"total"`
	// Records is the size of the filtered set the result was computed on.
	Records       int      `json:"records"`
	WeightedScore *float64 `json:"weighted_score,omitempty"`
}

// Labels returns the entry labels in domain order.
func (r Result) Labels() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Label
	}
	return out
}

// Aggregate tallies a variable over the records.
func Aggregate(rows []records.Record, v catalog.Variable) Result {
	switch v := v.(type) {
	case catalog.Categorical:
		return categorical(rows, v)
	case catalog.Likert:
		return likert(rows, v)
	case catalog.AgeBracket:
		return ageBracket(rows, v)
	case catalog.Pooled:
		return pooled(rows, v)
	default:
		d := v.Describe()
		return Result{VariableID: d.ID, Title: d.Title, Kind: d.Kind, Entries: tally(d.Domain, make([]int, len(d.Domain))), Records: len(rows)}
	}
}

func categorical(rows []records.Record, v catalog.Categorical) Result {
	idx := newDomainIndex(v.Labels)
	counts := make([]int, len(v.Labels))
	for _, r := range rows {
		if i, ok := idx.lookup(r.Text(v.Field)); ok {
			counts[i]++
		}
	}
	return newResult(v.Describe(), counts, len(rows))
}

func likertCounts(rows []records.Record, field string) []int {
	counts := make([]int, catalog.LikertMaxWeight)
	for _, r := range rows {
		level, ok := NormalizeLikert(r.Text(field))
		if !ok {
			continue
		}
		counts[catalog.LikertWeight(level)-1]++
	}
	return counts
}

func likert(rows []records.Record, v catalog.Likert) Result {
	counts := likertCounts(rows, v.Field)
	res := newResult(v.Describe(), counts, len(rows))
	score := WeightedScore(counts, len(rows))
	res.WeightedScore = &score
	return res
}

func ageBracket(rows []records.Record, v catalog.AgeBracket) Result {
	counts := make([]int, len(v.Brackets))
	for _, r := range rows {
		for i, b := range v.Brackets {
			if r.Number(b.Field) > 0 {
				counts[i]++
			}
		}
	}
	return newResult(v.Describe(), counts, len(rows))
}

// pooled sums the member tallies per level but reports the mean of the
// member percentages, not percentages of the pooled counts.
func pooled(rows []records.Record, v catalog.Pooled) Result {
	levels := catalog.LikertLevels()
	counts := make([]int, len(levels))
	pctSums := make([]float64, len(levels))
	for _, m := range v.Members {
		member := likert(rows, m)
		for i, e := range member.Entries {
			counts[i] += e.Count
			pctSums[i] += e.Percentage
		}
	}
	res := newResult(v.Describe(), counts, len(rows))
	for i := range res.Entries {
		res.Entries[i].Percentage = 0
		if len(v.Members) > 0 {
			res.Entries[i].Percentage = pctSums[i] / float64(len(v.Members))
		}
	}
	score := WeightedScore(counts, len(rows)*len(v.Members))
	res.WeightedScore = &score
	return res
}

// WeightedScore computes Σ count·weight over responses·maxWeight, as a
// percentage. responses is the number of answers expected, not the number
// that matched the scale. Zero responses score 0.
func WeightedScore(counts []int, responses int) float64 {
	if responses <= 0 {
		return 0
	}
	sum := 0
	for i, c := range counts {
		sum += c * (i + 1)
	}
	return float64(sum) / float64(responses*catalog.LikertMaxWeight) * 100
}

func newResult(d catalog.Descriptor, counts []int, filtered int) Result {
	total := 0
	for _, c := range counts {
		total += c
	}
	return Result{
		VariableID: d.ID,
		Title:      d.Title,
		Kind:       d.Kind,
		Entries:    tally(d.Domain, counts),
		Total:      total,
		Records:    filtered,
	}
}

func tally(labels []string, counts []int) []Entry {
	total := 0
	for _, c := range counts {
		total += c
	}
	entries := make([]Entry, len(labels))
	for i, l := range labels {
		entries[i] = Entry{Label: l, Count: counts[i]}
		if total > 0 {
			entries[i].Percentage = float64(counts[i]) / float64(total) * 100
		}
	}
	return entries
}
