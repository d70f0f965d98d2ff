package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// "All" sentinels sent by dropdowns. A dimension set to one of these,
// or left empty, does not filter.
var allSentinels = map[string]struct{}{
	"All":              {},
	"All Parties":      {},
	"All States":       {},
	"All Salespersons": {},
	"All Items":        {},
}

// Criteria is the set of dashboard filters. Each dimension is optional.
type Criteria struct {
	Party       string     `json:"party,omitempty"`
	State       string     `json:"state,omitempty"`
	Salesperson string     `json:"salesperson,omitempty"`
	Item        string     `json:"item,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
}

func isActive(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	_, all := allSentinels[v]
	return !all
}

func (c Criteria) HasDateRange() bool {
	return c.From != nil || c.To != nil
}

// HasActive reports whether any dimension narrows the records.
func (c Criteria) HasActive() bool {
	return isActive(c.Party) || isActive(c.State) || isActive(c.Salesperson) ||
		isActive(c.Item) || c.HasDateRange()
}

// Matches reports whether r passes every active dimension.
func (c Criteria) Matches(r Record) bool {
	if !matchValue(c.Party, r.PartyName) ||
		!matchValue(c.State, r.State) ||
		!matchValue(c.Salesperson, r.Salesperson) ||
		!matchValue(c.Item, r.ItemName) {
		return false
	}
	if !c.HasDateRange() {
		return true
	}

	t, ok := ParseSheetDate(r.Timestamp)
	if !ok {
		return false
	}
	day := DateOnly(t)
	if c.From != nil && day.Before(DateOnly(*c.From)) {
		return false
	}
	if c.To != nil && day.After(DateOnly(*c.To)) {
		return false
	}
	return true
}

func matchValue(want, got string) bool {
	if !isActive(want) {
		return true
	}
	got = strings.TrimSpace(got)
	return got != "" && got == strings.TrimSpace(want)
}

// Filter returns the records matching c in their original order.
func Filter(records []Record, c Criteria) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseDateBound parses a from/to query value. Empty input means no bound.
func ParseDateBound(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, ok := ParseSheetDate(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return &t, nil
}

// AppliedFilter is one active dimension, labelled for display.
type AppliedFilter struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Applied lists the active dimensions in display order.
func (c Criteria) Applied() []AppliedFilter {
	var out []AppliedFilter
	add := func(label, v string) {
		if isActive(v) {
			out = append(out, AppliedFilter{Label: label, Value: strings.TrimSpace(v)})
		}
	}
	add("Party", c.Party)
	add("State", c.State)
	add("Salesperson", c.Salesperson)
	add("Item", c.Item)
	if c.From != nil {
		out = append(out, AppliedFilter{Label: "From", Value: c.From.Format("02/01/2006")})
	}
	if c.To != nil {
		out = append(out, AppliedFilter{Label: "To", Value: c.To.Format("02/01/2006")})
	}
	return out
}
