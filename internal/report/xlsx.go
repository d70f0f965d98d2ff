package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Summary"
	sheetCustomers = "Top Customers"
	sheetRecords   = "Records"
)

// RenderXLSX writes the report as a workbook with one sheet per section.
func RenderXLSX(d Data) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetCustomers, sheetRecords} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2563EB"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, headerStyle: bold}

	// Summary
	w.row(sheetSummary, 1, "Dashboard Report")
	w.row(sheetSummary, 2, "Generated on", d.GeneratedAt.Format("02/01/2006 15:04:05"))
	if !d.Filtered {
		w.row(sheetSummary, 3, "All data, no filters applied")
	}
	w.header(sheetSummary, 4, "KPI", "Value")
	r := 5
	for _, c := range d.Cards {
		w.row(sheetSummary, r, c.Label, c.Value)
		r++
	}
	if d.Filtered {
		r++
		w.header(sheetSummary, r, "Filter", "Value")
		r++
		for _, a := range d.Applied {
			w.row(sheetSummary, r, a.Label, a.Value)
			r++
		}
	}
	w.width(sheetSummary, "A", "A", 28)
	w.width(sheetSummary, "B", "B", 24)

	// Top customers
	w.header(sheetCustomers, 1, "Rank", "Customer Name", "Items", "Total Qty", "Dispatches", "Total Amount", "Balance Amount")
	for i, c := range d.TopCustomers {
		amount, _ := c.TotalAmount.Float64()
		balance, _ := c.TotalBalance.Float64()
		w.row(sheetCustomers, i+2, c.Rank, c.Name, c.ItemNames, c.TotalQty, c.Dispatches, amount, balance)
	}
	w.width(sheetCustomers, "B", "C", 36)
	w.width(sheetCustomers, "D", "G", 16)

	// Records
	w.header(sheetRecords, 1, "Sr.No.", "Party Name", "Salesperson", "State", "Dispatch Date", "Order No.")
	for i, row := range d.Rows {
		w.row(sheetRecords, i+2, row.SrNo, row.Party, row.Salesperson, row.State, row.DispatchDate, row.OrderNo)
	}
	if d.Truncated() {
		w.row(sheetRecords, len(d.Rows)+3, fmt.Sprintf("Showing first %d records of %d total results", len(d.Rows), d.TotalRecords))
	}
	w.width(sheetRecords, "B", "C", 32)
	w.width(sheetRecords, "D", "F", 16)

	if w.err != nil {
		return nil, w.err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// sheetWriter records the first error; later calls are no-ops.
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *sheetWriter) row(sheet string, r int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, r, err)
	}
}

func (w *sheetWriter) header(sheet string, r int, labels ...string) {
	values := make([]any, len(labels))
	for i, l := range labels {
		values[i] = l
	}
	w.row(sheet, r, values...)
	if w.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(len(labels), r)
	if err := w.f.SetCellStyle(sheet, first, last, w.headerStyle); err != nil {
		w.err = fmt.Errorf("style %s header: %w", sheet, err)
	}
}

func (w *sheetWriter) width(sheet, from, to string, width float64) {
	if w.err != nil {
		return
	}
	if err := w.f.SetColWidth(sheet, from, to, width); err != nil {
		w.err = fmt.Errorf("set %s width: %w", sheet, err)
	}
}
