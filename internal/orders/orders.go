package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
)

var ErrNoHeader = errors.New("orders: sheet has no header row")

type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusOther     Status = "other"
)

// header tokens in lookup order; a column matches when its header equals
// the token or, failing that, contains it
var tokens = []string{
	"salesperson", "customer_name", "vrno", "vrdate", "item_name",
	"entry_remark", "priority", "rate", "balance_qty", "status",
}

type Order struct {
	RowIndex     int             `json:"row_index"`
	Salesperson  string          `json:"salesperson"`
	CustomerName string          `json:"customer_name"`
	VRNo         string          `json:"vrno"`
	VRDate       string          `json:"vrdate"`
	ItemName     string          `json:"item_name"`
	Remarks      string          `json:"remarks"`
	Priority     string          `json:"priority"`
	Rate         decimal.Decimal `json:"rate"`
	BalanceQty   decimal.Decimal `json:"balance_qty"`
	Status       string          `json:"status"`
	Bucket       Status          `json:"bucket"`
}

// Columns resolves the token columns from a header row. Missing tokens
// map to -1.
func Columns(header []any) map[string]int {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(dispatch.CellString(h))
	}
	cols := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		cols[tok] = -1
		for i, n := range names {
			if n == tok {
				cols[tok] = i
				break
			}
		}
		if cols[tok] >= 0 {
			continue
		}
		for i, n := range names {
			if strings.Contains(n, tok) {
				cols[tok] = i
				break
			}
		}
	}
	return cols
}

// Classify buckets a free-text status. Cancellation wins over partial,
// partial over complete.
func Classify(status string) Status {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "cancel"):
		return StatusCancelled
	case strings.Contains(s, "partial"):
		return StatusPartial
	case strings.Contains(s, "complete"):
		return StatusComplete
	case strings.Contains(s, "pending"), strings.Contains(s, "open"):
		return StatusPending
	}
	return StatusOther
}

// Parse maps the importer sheet. The first row is the header; blank rows
// are skipped.
func Parse(rows [][]any) ([]Order, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	cols := Columns(rows[0])
	get := func(row []any, tok string) string {
		return dispatch.CellAt(row, cols[tok])
	}

	out := []Order{}
	for i, row := range rows[1:] {
		o := Order{
			RowIndex:     i + 2,
			Salesperson:  get(row, "salesperson"),
			CustomerName: get(row, "customer_name"),
			VRNo:         get(row, "vrno"),
			VRDate:       get(row, "vrdate"),
			ItemName:     get(row, "item_name"),
			Remarks:      get(row, "entry_remark"),
			Priority:     get(row, "priority"),
			Rate:         dispatch.ParseNumber(get(row, "rate")),
			BalanceQty:   dispatch.ParseNumber(get(row, "balance_qty")),
			Status:       get(row, "status"),
		}
		if o.VRNo == "" && o.CustomerName == "" && o.ItemName == "" {
			continue
		}
		o.Bucket = Classify(o.Status)
		out = append(out, o)
	}
	return out, nil
}

// Group splits orders by bucket. Every bucket is present, possibly empty.
func Group(orders []Order) map[Status][]Order {
	g := map[Status][]Order{
		StatusPending:   {},
		StatusPartial:   {},
		StatusComplete:  {},
		StatusCancelled: {},
		StatusOther:     {},
	}
	for _, o := range orders {
		g[o.Bucket] = append(g[o.Bucket], o)
	}
	return g
}

type Source struct {
	reader sheets.Reader
	sheet  string
}

func NewSource(r sheets.Reader, sheet string) *Source {
	return &Source{reader: r, sheet: sheet}
}

func (s *Source) List(ctx context.Context) ([]Order, error) {
	rows, err := s.reader.Fetch(ctx, s.sheet)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.sheet, err)
	}
	return Parse(rows)
}
