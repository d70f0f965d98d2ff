package dispatch

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TopN is the length of the top customers table.
const TopN = 10

// PartyAggregate accumulates one party's records.
type PartyAggregate struct {
	Name          string
	TotalAmount   decimal.Decimal
	TotalQty      decimal.Decimal
	BalanceAmount decimal.Decimal
	DispatchCount int
	Items         []string

	seen map[string]struct{}
}

func (a *PartyAggregate) add(r Record) {
	a.TotalAmount = a.TotalAmount.Add(r.Amount)
	a.BalanceAmount = a.BalanceAmount.Add(r.BalanceAmount)
	a.TotalQty = a.TotalQty.Add(r.Quantity)

	if item := strings.TrimSpace(r.ItemName); item != "" {
		if _, ok := a.seen[item]; !ok {
			a.seen[item] = struct{}{}
			a.Items = append(a.Items, item)
		}
	}
	if strings.TrimSpace(r.DispatchDate) != "" {
		a.DispatchCount++
	}
}

// Aggregate groups records by party name in first-seen order. Records
// without a party are ignored.
func Aggregate(records []Record) []*PartyAggregate {
	index := make(map[string]*PartyAggregate)
	var out []*PartyAggregate

	for _, r := range records {
		name := strings.TrimSpace(r.PartyName)
		if name == "" {
			continue
		}
		agg, ok := index[name]
		if !ok {
			agg = &PartyAggregate{Name: name, seen: make(map[string]struct{})}
			index[name] = agg
			out = append(out, agg)
		}
		agg.add(r)
	}
	return out
}

// Rank orders aggregates by total amount, highest first. Ties keep
// their input order.
func Rank(aggs []*PartyAggregate) []*PartyAggregate {
	ranked := make([]*PartyAggregate, len(aggs))
	copy(ranked, aggs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalAmount.GreaterThan(ranked[j].TotalAmount)
	})
	return ranked
}

// CustomerRow is the display form of a ranked aggregate.
type CustomerRow struct {
	Rank          int             `json:"rank"`
	Name          string          `json:"name"`
	ItemNames     string          `json:"item_names"`
	TotalQty      string          `json:"total_qty"`
	Dispatches    int             `json:"dispatches"`
	Amount        string          `json:"amount"`
	BalanceAmount string          `json:"balance_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

// TopCustomers ranks the parties in records and returns the first n.
func TopCustomers(records []Record, n int) []CustomerRow {
	ranked := Rank(Aggregate(records))
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	rows := make([]CustomerRow, 0, len(ranked))
	for i, a := range ranked {
		rows = append(rows, CustomerRow{
			Rank:          i + 1,
			Name:          a.Name,
			ItemNames:     strings.Join(a.Items, ", "),
			TotalQty:      a.TotalQty.StringFixed(2),
			Dispatches:    a.DispatchCount,
			Amount:        FormatCurrency(a.TotalAmount),
			BalanceAmount: FormatCurrency(a.BalanceAmount),
			TotalAmount:   a.TotalAmount,
			TotalBalance:  a.BalanceAmount,
		})
	}
	return rows
}
