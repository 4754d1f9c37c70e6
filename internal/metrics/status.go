package metrics

import "sort"

// CountRow is one entry of a breakdown such as failure reasons or status codes.
type CountRow struct {
	Key   string
	Count int
}

// SortCounts converts a breakdown map into rows sorted by descending count,
// then by key for stability.
func SortCounts(counts map[string]int) []CountRow {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]CountRow, 0, len(counts))
	for key, count := range counts {
		rows = append(rows, CountRow{Key: key, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
