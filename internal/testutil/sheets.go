package testutil

import (
	"context"
	"sync"
)

// Write is one recorded insert or update.
type Write struct {
	Sheet    string
	Action   string
	RowIndex int
	Row      []any
}

// FakeSheets is an in-memory spreadsheet. Inserts append rows, updates
// overwrite non-empty cells, mirroring the Apps Script behaviour.
type FakeSheets struct {
	mu     sync.Mutex
	Sheets map[string][][]any
	Writes []Write
	Err    error
}

func NewFakeSheets() *FakeSheets {
	return &FakeSheets{Sheets: make(map[string][][]any)}
}

func (f *FakeSheets) Set(sheet string, rows [][]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sheets[sheet] = rows
}

func (f *FakeSheets) Fetch(_ context.Context, sheet string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	rows := f.Sheets[sheet]
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

func (f *FakeSheets) Insert(_ context.Context, sheet string, row []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Writes = append(f.Writes, Write{Sheet: sheet, Action: "insert", Row: row})
	f.Sheets[sheet] = append(f.Sheets[sheet], append([]any(nil), row...))
	return nil
}

func (f *FakeSheets) Update(_ context.Context, sheet string, rowIndex int, row []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Writes = append(f.Writes, Write{Sheet: sheet, Action: "update", RowIndex: rowIndex, Row: row})

	rows := f.Sheets[sheet]
	for len(rows) < rowIndex {
		rows = append(rows, []any{})
	}
	target := rows[rowIndex-1]
	for i, v := range row {
		if v == nil || v == "" {
			continue
		}
		for len(target) <= i {
			target = append(target, nil)
		}
		target[i] = v
	}
	rows[rowIndex-1] = target
	f.Sheets[sheet] = rows
	return nil
}

func (f *FakeSheets) LastWrite() (Write, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Writes) == 0 {
		return Write{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// FMSRows builds an FMS sheet: five blank rows, a header row and one
// data row per cells map (column index to value).
func FMSRows(cells ...map[int]string) [][]any {
	const width = 40
	rows := make([][]any, 0, 6+len(cells))
	for i := 0; i < 5; i++ {
		rows = append(rows, []any{})
	}
	rows = append(rows, []any{"Timestamp", "Order No", "Gate Entry No", "Party Name", "Truck No"})
	for _, m := range cells {
		row := make([]any, width)
		for i := range row {
			row[i] = ""
		}
		for i, v := range m {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows
}
