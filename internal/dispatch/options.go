package dispatch

import "sort"

// Options are the distinct values offered by the dashboard dropdowns.
type Options struct {
	Parties      []string `json:"parties"`
	States       []string `json:"states"`
	Salespersons []string `json:"salespersons"`
	Items        []string `json:"items"`
}

func CollectOptions(records []Record) Options {
	return Options{
		Parties:      distinct(records, func(r Record) string { return r.PartyName }),
		States:       distinct(records, func(r Record) string { return r.State }),
		Salespersons: distinct(records, func(r Record) string { return r.Salesperson }),
		Items:        distinct(records, func(r Record) string { return r.ItemName }),
	}
}

func distinct(records []Record, get func(Record) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v := get(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Summary is everything the dashboard shows for one filter selection.
type Summary struct {
	Criteria     Criteria        `json:"criteria"`
	Filtered     bool            `json:"filtered"`
	TotalRecords int             `json:"total_records"`
	Metrics      Metrics         `json:"metrics"`
	TopCustomers []CustomerRow   `json:"top_customers"`
	Distribution []Slice         `json:"distribution"`
	Applied      []AppliedFilter `json:"applied_filters"`
}

// Summarize filters records and computes every dashboard aggregate over
// the result.
func Summarize(records []Record, c Criteria) (Summary, []Record) {
	filtered := Filter(records, c)
	return Summary{
		Criteria:     c,
		Filtered:     c.HasActive(),
		TotalRecords: len(filtered),
		Metrics:      ComputeMetrics(filtered),
		TopCustomers: TopCustomers(filtered, TopN),
		Distribution: Distribution(filtered, TopN),
		Applied:      c.Applied(),
	}, filtered
}
