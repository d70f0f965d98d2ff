package dispatch

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field names a column of the FMS sheet.
type Field string

const (
	FieldTimestamp           Field = "timestamp"
	FieldOrderNo             Field = "order_no"
	FieldGateIn              Field = "gate_in"
	FieldGateEntryNo         Field = "gate_entry_no"
	FieldParty               Field = "party"
	FieldTruckNo             Field = "truck_no"
	FieldFirstWeightPlanned  Field = "first_weight_planned"
	FieldWBIn                Field = "wb_in"
	FieldWBSlipNo            Field = "wb_slip_no"
	FieldLoadingStart        Field = "loading_start"
	FieldLoadingEnd          Field = "loading_end"
	FieldSupervisor          Field = "supervisor"
	FieldRemarks             Field = "remarks"
	FieldSecondWeightPlanned Field = "second_weight_planned"
	FieldWBOut               Field = "wb_out"
	FieldDispatchDate        Field = "dispatch_date"
	FieldSalesperson         Field = "salesperson"
	FieldItem                Field = "item"
	FieldQuantity            Field = "quantity"
	FieldAmount              Field = "amount"
	FieldState               Field = "state"
	FieldGateOutPlanned      Field = "gate_out_planned"
	FieldGateOut             Field = "gate_out"
	FieldPaymentsReceived    Field = "payments_received"
	FieldBalance             Field = "balance"
)

var (
	ErrHeaderMismatch = errors.New("sheet header does not match layout")
	ErrUnknownField   = errors.New("unknown layout field")
)

// Column positions of the FMS sheet as exported by the Apps Script.
var defaultColumns = map[Field]int{
	FieldTimestamp:           0,
	FieldOrderNo:             1,
	FieldGateIn:              1,
	FieldGateEntryNo:         2,
	FieldParty:               3,
	FieldTruckNo:             4,
	FieldFirstWeightPlanned:  5,
	FieldWBIn:                6,
	FieldWBSlipNo:            8,
	FieldLoadingStart:        9,
	FieldLoadingEnd:          10,
	FieldSupervisor:          12,
	FieldRemarks:             13,
	FieldSecondWeightPlanned: 14,
	FieldWBOut:               15,
	FieldDispatchDate:        19,
	FieldSalesperson:         24,
	FieldItem:                27,
	FieldQuantity:            28,
	FieldAmount:              29,
	FieldState:               30,
	FieldGateOutPlanned:      31,
	FieldGateOut:             32,
	FieldPaymentsReceived:    37,
	FieldBalance:             38,
}

// Layout maps named fields to sheet columns.
//
// Headers optionally pins a field to a header label. Resolve looks the
// label up in the header row and moves the field to wherever it is found,
// so a reordered sheet keeps working and a renamed column fails loudly.
type Layout struct {
	Sheet        string
	HeaderRow    int
	DataStartRow int
	Columns      map[Field]int
	Headers      map[Field]string
}

func DefaultLayout() Layout {
	cols := make(map[Field]int, len(defaultColumns))
	for f, i := range defaultColumns {
		cols[f] = i
	}
	return Layout{
		Sheet:        "FMS",
		HeaderRow:    5,
		DataStartRow: 6,
		Columns:      cols,
		Headers:      map[Field]string{},
	}
}

func KnownField(f Field) bool {
	_, ok := defaultColumns[f]
	return ok
}

// Column returns the 0-based column index of f.
func (l Layout) Column(f Field) (int, bool) {
	i, ok := l.Columns[f]
	return i, ok
}

// Resolve returns a copy of the layout whose labelled fields point at
// the positions where their labels appear in header.
func (l Layout) Resolve(header []string) (Layout, error) {
	out := l
	out.Columns = make(map[Field]int, len(l.Columns))
	for f, i := range l.Columns {
		out.Columns[f] = i
	}
	if len(l.Headers) == 0 {
		return out, nil
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	var missing []string
	for f, label := range l.Headers {
		i, ok := positions[normalizeHeader(label)]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s=%q", f, label))
			continue
		}
		out.Columns[f] = i
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Layout{}, fmt.Errorf("%w: missing %s", ErrHeaderMismatch, strings.Join(missing, ", "))
	}
	return out, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type layoutFile struct {
	Sheet        *string           `yaml:"sheet"`
	HeaderRow    *int              `yaml:"header_row"`
	DataStartRow *int              `yaml:"data_start_row"`
	Columns      map[string]int    `yaml:"columns"`
	Headers      map[string]string `yaml:"headers"`
}

// LoadLayout reads a YAML layout file on top of DefaultLayout. An empty
// path returns the defaults.
func LoadLayout(path string) (Layout, error) {
	l := DefaultLayout()
	if path == "" {
		return l, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(b)
}

func ParseLayout(b []byte) (Layout, error) {
	l := DefaultLayout()

	var lf layoutFile
	if err := yaml.Unmarshal(b, &lf); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}

	if lf.Sheet != nil {
		l.Sheet = *lf.Sheet
	}
	if lf.HeaderRow != nil {
		l.HeaderRow = *lf.HeaderRow
	}
	if lf.DataStartRow != nil {
		l.DataStartRow = *lf.DataStartRow
	}
	for name, i := range lf.Columns {
		f := Field(name)
		if !KnownField(f) {
			return Layout{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		if i < 0 {
			return Layout{}, fmt.Errorf("column %s: negative index %d", name, i)
		}
		l.Columns[f] = i
	}
	for name, label := range lf.Headers {
		f := Field(name)
		if !KnownField(f) {
			return Layout{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		l.Headers[f] = label
	}
	if l.DataStartRow <= l.HeaderRow {
		return Layout{}, fmt.Errorf("data_start_row (%d) must be after header_row (%d)", l.DataStartRow, l.HeaderRow)
	}
	return l, nil
}
