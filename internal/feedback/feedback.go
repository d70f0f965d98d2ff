package feedback

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
)

// Rating categories in sheet column order, starting at column 5.
var Categories = []Category{
	{Key: "enquiry_revert", Label: "Enquiry Revert"},
	{Key: "loading", Label: "Loading"},
	{Key: "dispatch", Label: "Dispatch"},
	{Key: "vehicle_lineup", Label: "Vehicle Lineup"},
	{Key: "communication", Label: "Communication"},
	{Key: "satisfaction", Label: "Overall Satisfaction"},
	{Key: "staff", Label: "Staff Behaviour"},
	{Key: "quality", Label: "Material Quality"},
}

const firstRatingCol = 5

type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Response is one submitted feedback form.
type Response struct {
	RowIndex           int               `json:"row_index"`
	Timestamp          string            `json:"timestamp"`
	Email              string            `json:"email"`
	CustomerName       string            `json:"customer_name"`
	FirmName           string            `json:"firm_name"`
	ContactNo          string            `json:"contact_no"`
	Ratings            map[string]string `json:"ratings"`
	AdditionalFeedback string            `json:"additional_feedback"`
}

type Average struct {
	Category
	Mean  decimal.Decimal `json:"mean"`
	Count int             `json:"count"`
}

// Parse maps form response rows, skipping the header and rows without a
// timestamp, email, customer or firm.
func Parse(rows [][]any) []Response {
	out := []Response{}
	for i, r := range rows {
		if i == 0 {
			continue
		}
		resp := Response{
			RowIndex:           i + 1,
			Timestamp:          dispatch.CellAt(r, 0),
			Email:              dispatch.CellAt(r, 1),
			CustomerName:       dispatch.CellAt(r, 2),
			FirmName:           dispatch.CellAt(r, 3),
			ContactNo:          dispatch.CellAt(r, 4),
			Ratings:            make(map[string]string, len(Categories)),
			AdditionalFeedback: dispatch.CellAt(r, firstRatingCol+len(Categories)),
		}
		if resp.Timestamp == "" && resp.Email == "" && resp.CustomerName == "" && resp.FirmName == "" {
			continue
		}
		for j, c := range Categories {
			resp.Ratings[c.Key] = dispatch.CellAt(r, firstRatingCol+j)
		}
		out = append(out, resp)
	}
	return out
}

// Score reads a star rating. Only whole numbers 1 to 5 count, text
// ratings do not.
func Score(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// Averages returns the mean score per category over responses, rounded
// to two places. A category nobody scored has a zero mean and count.
func Averages(responses []Response) []Average {
	out := make([]Average, 0, len(Categories))
	for _, c := range Categories {
		sum, n := 0, 0
		for _, r := range responses {
			if v, ok := Score(r.Ratings[c.Key]); ok {
				sum += v
				n++
			}
		}
		avg := Average{Category: c, Mean: decimal.Zero, Count: n}
		if n > 0 {
			avg.Mean = decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(n)), 2)
		}
		out = append(out, avg)
	}
	return out
}

// ForCustomer keeps responses whose customer or firm name equals name,
// ignoring case.
func ForCustomer(responses []Response, name string) []Response {
	name = strings.TrimSpace(name)
	if name == "" {
		return responses
	}
	out := []Response{}
	for _, r := range responses {
		if strings.EqualFold(r.CustomerName, name) || strings.EqualFold(r.FirmName, name) {
			out = append(out, r)
		}
	}
	return out
}

type Source struct {
	reader sheets.Reader
	sheet  string
}

func NewSource(r sheets.Reader, sheet string) *Source {
	return &Source{reader: r, sheet: sheet}
}

func (s *Source) List(ctx context.Context) ([]Response, error) {
	rows, err := s.reader.Fetch(ctx, s.sheet)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.sheet, err)
	}
	return Parse(rows), nil
}
