package dispatch

import (
	"sort"
	"strings"
)

const OthersLabel = "Others"

// Slice is one bucket of the party distribution chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Distribution counts records per party, keeps the n largest buckets
// and folds the remainder into a trailing "Others" bucket.
func Distribution(records []Record, n int) []Slice {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		name := strings.TrimSpace(r.PartyName)
		if name == "" {
			continue
		}
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name]++
	}

	slices := make([]Slice, 0, len(order))
	for _, name := range order {
		slices = append(slices, Slice{Name: name, Value: counts[name]})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value > slices[j].Value
	})

	if n < 0 || len(slices) <= n {
		return slices
	}
	others := 0
	for _, s := range slices[n:] {
		others += s.Value
	}
	out := append(make([]Slice, 0, n+1), slices[:n]...)
	return append(out, Slice{Name: OthersLabel, Value: others})
}
