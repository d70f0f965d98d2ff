package report

import (
	"fmt"
	"strconv"
	"time"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
)

// MaxRows caps the detail table of an exported report.
const MaxRows = 100

// Card is one KPI tile.
type Card struct {
	Label string
	Value string
	Alert bool
}

// Row is one line of the detail table.
type Row struct {
	SrNo         int
	Party        string
	Salesperson  string
	State        string
	DispatchDate string
	OrderNo      string
}

// Data is everything a report renders. It is computed once and then
// rendered to any format.
type Data struct {
	GeneratedAt  time.Time
	Criteria     dispatch.Criteria
	Filtered     bool
	Applied      []dispatch.AppliedFilter
	Metrics      dispatch.Metrics
	Cards        []Card
	TopCustomers []dispatch.CustomerRow
	Rows         []Row
	TotalRecords int
}

// Truncated reports whether the detail table omits records.
func (d Data) Truncated() bool {
	return d.TotalRecords > len(d.Rows)
}

// Build filters records with c and assembles the report contents.
func Build(generatedAt time.Time, c dispatch.Criteria, records []dispatch.Record) Data {
	summary, filtered := dispatch.Summarize(records, c)

	n := len(filtered)
	if n > MaxRows {
		n = MaxRows
	}
	rows := make([]Row, 0, n)
	for i, r := range filtered[:n] {
		rows = append(rows, Row{
			SrNo:         i + 1,
			Party:        dash(r.PartyName),
			Salesperson:  dash(r.Salesperson),
			State:        dash(r.State),
			DispatchDate: dash(r.DispatchDate),
			OrderNo:      dash(r.OrderNo),
		})
	}

	return Data{
		GeneratedAt:  generatedAt,
		Criteria:     c,
		Filtered:     summary.Filtered,
		Applied:      summary.Applied,
		Metrics:      summary.Metrics,
		Cards:        cards(summary.Metrics),
		TopCustomers: summary.TopCustomers,
		Rows:         rows,
		TotalRecords: summary.TotalRecords,
	}
}

func cards(m dispatch.Metrics) []Card {
	count := strconv.Itoa
	return []Card{
		{Label: "Total Gate In", Value: count(m.TotalGateIn)},
		{Label: "Total Gate Out", Value: count(m.TotalGateOut)},
		{Label: "Total Dispatch", Value: count(m.TotalDispatch)},
		{Label: "WB In", Value: count(m.WBIn)},
		{Label: "WB Out", Value: count(m.WBOut)},
		{Label: "WB Pending", Value: count(m.WBPending), Alert: true},
		{Label: "Total Amount", Value: dispatch.FormatCurrency(m.TotalAmount)},
		{Label: "Total Payments Received", Value: dispatch.FormatCurrency(m.TotalPaymentsReceived)},
		{Label: "Pending Payments", Value: dispatch.FormatCurrency(m.PendingPayments), Alert: true},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// FileName is the download name of a report generated at t.
func FileName(t time.Time, format models.ReportFormat) string {
	return fmt.Sprintf("Dashboard_Report_%s.%s", t.Format("2006-01-02"), format)
}

// ContentType of a report format.
func ContentType(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/html; charset=utf-8"
	}
}

// ParseFormat accepts "", "html" and "xlsx".
func ParseFormat(s string) (models.ReportFormat, error) {
	switch models.ReportFormat(s) {
	case "", models.ReportFormatHTML:
		return models.ReportFormatHTML, nil
	case models.ReportFormatXLSX:
		return models.ReportFormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}
