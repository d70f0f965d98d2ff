package stages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
)

var (
	ErrUnknownStage  = errors.New("unknown stage")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidRow    = errors.New("invalid row index")
	ErrUnknownColumn = errors.New("stage column not in layout")
	ErrNotPending    = errors.New("row is not pending for this stage")
)

// Stage is a step of the dispatch workflow tracked by a pair of marker
// columns. A row is pending while the start marker is filled and the end
// marker is empty.
type Stage struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Start    dispatch.Field   `json:"start"`
	End      dispatch.Field   `json:"end"`
	Required []dispatch.Field `json:"required,omitempty"`
	Optional []dispatch.Field `json:"optional,omitempty"`
}

var all = map[string]Stage{
	"first-weight": {
		Name:     "first-weight",
		Title:    "First Weight",
		Start:    dispatch.FieldFirstWeightPlanned,
		End:      dispatch.FieldWBIn,
		Required: []dispatch.Field{dispatch.FieldWBSlipNo},
	},
	"load-vehicle": {
		Name:     "load-vehicle",
		Title:    "Load Vehicle",
		Start:    dispatch.FieldLoadingStart,
		End:      dispatch.FieldLoadingEnd,
		Required: []dispatch.Field{dispatch.FieldSupervisor},
		Optional: []dispatch.Field{dispatch.FieldRemarks},
	},
	"second-weight": {
		Name:     "second-weight",
		Title:    "Second Weight",
		Start:    dispatch.FieldSecondWeightPlanned,
		End:      dispatch.FieldWBOut,
		Optional: []dispatch.Field{dispatch.FieldRemarks},
	},
	"gate-out": {
		Name:     "gate-out",
		Title:    "Gate Out",
		Start:    dispatch.FieldGateOutPlanned,
		End:      dispatch.FieldGateOut,
		Optional: []dispatch.Field{dispatch.FieldRemarks},
	},
}

// Started reports whether the stage's start marker is filled on r.
func (s Stage) Started(r dispatch.Record) bool {
	return strings.TrimSpace(r.Value(s.Start)) != ""
}

// Done reports whether the stage's end marker is filled on r.
func (s Stage) Done(r dispatch.Record) bool {
	return strings.TrimSpace(r.Value(s.End)) != ""
}

// Pending reports whether r waits on this stage.
func (s Stage) Pending(r dispatch.Record) bool {
	return s.Started(r) && !s.Done(r)
}

func Lookup(name string) (Stage, error) {
	s, ok := all[name]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return s, nil
}

// All returns the stages in workflow order.
func All() []Stage {
	out := make([]Stage, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	order := map[string]int{"first-weight": 0, "load-vehicle": 1, "second-weight": 2, "gate-out": 3}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Name] < order[out[j].Name] })
	return out
}

// Split partitions records into the stage's pending and history lists.
// Records without any identifying column are ignored, and so are records
// whose start marker is empty.
func Split(records []dispatch.Record, s Stage) (pending, history []dispatch.Record) {
	pending = []dispatch.Record{}
	history = []dispatch.Record{}
	for _, r := range records {
		if !r.HasIdentity() {
			continue
		}
		if !s.Started(r) {
			continue
		}
		if !s.Done(r) {
			pending = append(pending, r)
		} else {
			history = append(history, r)
		}
	}
	return pending, history
}

// Completer posts stage completions back to the FMS sheet.
type Completer struct {
	writer sheets.Writer
	layout dispatch.Layout
}

func NewCompleter(w sheets.Writer, layout dispatch.Layout) *Completer {
	return &Completer{writer: w, layout: layout}
}

// WithColumns returns a completer addressing the given column positions,
// typically the ones resolved from the sheet header on the last fetch.
func (c *Completer) WithColumns(cols map[dispatch.Field]int) *Completer {
	if len(cols) == 0 {
		return c
	}
	l := c.layout
	l.Columns = cols
	return &Completer{writer: c.writer, layout: l}
}

// Complete marks the stage done on the 1-based sheet row rowIndex. The
// update is sparse: only the end marker (today's date) and the stage's
// fields are set, every other cell is left empty so the sheet keeps it.
// Required fields are checked before anything is sent.
func (c *Completer) Complete(ctx context.Context, s Stage, rowIndex int, values map[dispatch.Field]string, now time.Time) ([]any, error) {
	if rowIndex <= c.layout.DataStartRow {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, rowIndex)
	}
	for _, f := range s.Required {
		if strings.TrimSpace(values[f]) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}

	row, err := c.BuildRow(s, values, now)
	if err != nil {
		return nil, err
	}
	if err := c.writer.Update(ctx, c.layout.Sheet, rowIndex, row); err != nil {
		return nil, fmt.Errorf("complete %s row %d: %w", s.Name, rowIndex, err)
	}
	return row, nil
}

// BuildRow lays out the sparse update row for a completion.
func (c *Completer) BuildRow(s Stage, values map[dispatch.Field]string, now time.Time) ([]any, error) {
	cells := map[int]string{}

	end, ok := c.layout.Column(s.End)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, s.End)
	}
	cells[end] = now.Format("2006-01-02")

	for _, f := range append(append([]dispatch.Field{}, s.Required...), s.Optional...) {
		v := strings.TrimSpace(values[f])
		if v == "" {
			continue
		}
		i, ok := c.layout.Column(f)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, f)
		}
		cells[i] = v
	}

	width := 0
	for i := range cells {
		if i+1 > width {
			width = i + 1
		}
	}
	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}
	for i, v := range cells {
		row[i] = v
	}
	return row, nil
}

// GateEntries lists every row that carries data, optionally narrowed to
// one customer and a case-insensitive search over the identifying
// columns and the timestamp.
func GateEntries(records []dispatch.Record, customer, search string) []dispatch.Record {
	customer = strings.TrimSpace(customer)
	term := strings.ToLower(strings.TrimSpace(search))

	out := []dispatch.Record{}
	for _, r := range records {
		if !r.HasIdentity() {
			continue
		}
		if customer != "" && r.PartyName != customer {
			continue
		}
		if term != "" && !matchesSearch(r, term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Customers lists the distinct non-empty party names, sorted.
func Customers(records []dispatch.Record) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range records {
		if r.PartyName == "" {
			continue
		}
		if _, ok := seen[r.PartyName]; ok {
			continue
		}
		seen[r.PartyName] = struct{}{}
		out = append(out, r.PartyName)
	}
	sort.Strings(out)
	return out
}

// Supervisors reads the loading supervisor names from the Login sheet
// (fourth column, header row skipped).
func Supervisors(rows [][]any) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		name := dispatch.CellAt(row, 3)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func matchesSearch(r dispatch.Record, term string) bool {
	for _, v := range []string{r.OrderNo, r.GateEntryNo, r.PartyName, r.TruckNo, r.Timestamp} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
