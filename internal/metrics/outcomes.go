package metrics

import "sort"

// OutcomeCount is the number of runs that ended with one outcome.
type OutcomeCount struct {
	Outcome string
	Count   int64
}

// FlattenOutcomes converts an outcome->count map into rows sorted by
// descending count, then by outcome name for stability.
func FlattenOutcomes(outcomes map[string]int64) []OutcomeCount {
	if len(outcomes) == 0 {
		return nil
	}
	rows := make([]OutcomeCount, 0, len(outcomes))
	for outcome, count := range outcomes {
		rows = append(rows, OutcomeCount{Outcome: outcome, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Outcome < rows[j].Outcome
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
