package complaint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
)

const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"

	numberPrefix = "CN-"
	columns      = 14
	colStatus    = 13
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrNotFound     = errors.New("complaint not found")
	ErrNotOpen      = errors.New("complaint is not open")
)

// Complaint is one row of the complaint register. RowIndex is the
// 1-based sheet row.
type Complaint struct {
	RowIndex         int    `json:"row_index"`
	Timestamp        string `json:"timestamp"`
	ComplaintNo      string `json:"complaint_no"`
	ComplaintDate    string `json:"complaint_date"`
	CustomerName     string `json:"customer_name"`
	ContactNo        string `json:"contact_no"`
	ItemName         string `json:"item_name"`
	SizeSection      string `json:"size_section"`
	Qty              string `json:"qty"`
	LoadingIncharge  string `json:"loading_incharge"`
	AttendPerson     string `json:"attend_person"`
	ComplaintDetails string `json:"complaint_details"`
	ActionTaken      string `json:"action_taken"`
	Remarks          string `json:"remarks"`
	Status           string `json:"status"`
}

func (c Complaint) IsOpen() bool {
	s := strings.ToLower(c.Status)
	return s == "open" || s == "pending"
}

func (c Complaint) IsClosed() bool {
	s := strings.ToLower(c.Status)
	return s == "closed" || s == "resolved"
}

func (c Complaint) row() []any {
	return []any{
		c.Timestamp, c.ComplaintNo, c.ComplaintDate, c.CustomerName, c.ContactNo,
		c.ItemName, c.SizeSection, c.Qty, c.LoadingIncharge, c.AttendPerson,
		c.ComplaintDetails, c.ActionTaken, c.Remarks, c.Status,
	}
}

// Parse maps register rows. The header row is skipped and so are rows
// without a number, a customer and details. An empty status reads as
// open.
func Parse(rows [][]any) []Complaint {
	out := []Complaint{}
	for i, r := range rows {
		if i == 0 {
			continue
		}
		c := Complaint{
			RowIndex:         i + 1,
			Timestamp:        displayDate(dispatch.CellAt(r, 0)),
			ComplaintNo:      dispatch.CellAt(r, 1),
			ComplaintDate:    displayDate(dispatch.CellAt(r, 2)),
			CustomerName:     dispatch.CellAt(r, 3),
			ContactNo:        dispatch.CellAt(r, 4),
			ItemName:         dispatch.CellAt(r, 5),
			SizeSection:      dispatch.CellAt(r, 6),
			Qty:              dispatch.CellAt(r, 7),
			LoadingIncharge:  dispatch.CellAt(r, 8),
			AttendPerson:     dispatch.CellAt(r, 9),
			ComplaintDetails: dispatch.CellAt(r, 10),
			ActionTaken:      dispatch.CellAt(r, 11),
			Remarks:          dispatch.CellAt(r, 12),
			Status:           dispatch.CellAt(r, colStatus),
		}
		if c.ComplaintNo == "" && c.CustomerName == "" && c.ComplaintDetails == "" {
			continue
		}
		if c.Status == "" {
			c.Status = StatusOpen
		}
		out = append(out, c)
	}
	return out
}

func displayDate(s string) string {
	if t, ok := dispatch.ParseSheetDate(s); ok {
		return t.Format("02/01/2006")
	}
	return s
}

// Split separates open from closed complaints. Complaints with any other
// status are in neither list.
func Split(all []Complaint) (open, closed []Complaint) {
	open, closed = []Complaint{}, []Complaint{}
	for _, c := range all {
		switch {
		case c.IsOpen():
			open = append(open, c)
		case c.IsClosed():
			closed = append(closed, c)
		}
	}
	return open, closed
}

// NextNumber returns CN-<highest existing number + 1>, zero-padded to
// three digits.
func NextNumber(all []Complaint) string {
	highest := 0
	for _, c := range all {
		if !strings.HasPrefix(c.ComplaintNo, numberPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(c.ComplaintNo, numberPrefix))
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", numberPrefix, highest+1)
}

type NewComplaint struct {
	ComplaintDate    string `json:"complaint_date"`
	CustomerName     string `json:"customer_name"`
	ContactNo        string `json:"contact_no"`
	ItemName         string `json:"item_name"`
	SizeSection      string `json:"size_section"`
	Qty              string `json:"qty"`
	LoadingIncharge  string `json:"loading_incharge"`
	AttendPerson     string `json:"attend_person"`
	ComplaintDetails string `json:"complaint_details"`
	ActionTaken      string `json:"action_taken"`
	Remarks          string `json:"remarks"`
}

// Register reads and writes the complaint sheet.
type Register struct {
	sheets sheets.ReadWriter
	sheet  string
	log    *zap.Logger

	// serializes numbering
	mu sync.Mutex
}

func NewRegister(rw sheets.ReadWriter, sheet string, log *zap.Logger) *Register {
	if log == nil {
		log = zap.NewNop()
	}
	return &Register{sheets: rw, sheet: sheet, log: log.Named("complaint")}
}

func (r *Register) Sheet() string { return r.sheet }

func (r *Register) List(ctx context.Context) ([]Complaint, error) {
	rows, err := r.sheets.Fetch(ctx, r.sheet)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.sheet, err)
	}
	return Parse(rows), nil
}

// Add numbers and appends a new open complaint.
func (r *Register) Add(ctx context.Context, in NewComplaint, now time.Time) (Complaint, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.ComplaintDetails = strings.TrimSpace(in.ComplaintDetails)
	if in.CustomerName == "" {
		return Complaint{}, fmt.Errorf("%w: customer_name", ErrMissingField)
	}
	if in.ComplaintDetails == "" {
		return Complaint{}, fmt.Errorf("%w: complaint_details", ErrMissingField)
	}
	if strings.TrimSpace(in.ComplaintDate) == "" {
		in.ComplaintDate = now.Format("2006-01-02")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.List(ctx)
	if err != nil {
		return Complaint{}, err
	}

	c := Complaint{
		Timestamp:        now.UTC().Format(time.RFC3339),
		ComplaintNo:      NextNumber(all),
		ComplaintDate:    strings.TrimSpace(in.ComplaintDate),
		CustomerName:     in.CustomerName,
		ContactNo:        strings.TrimSpace(in.ContactNo),
		ItemName:         strings.TrimSpace(in.ItemName),
		SizeSection:      strings.TrimSpace(in.SizeSection),
		Qty:              strings.TrimSpace(in.Qty),
		LoadingIncharge:  strings.TrimSpace(in.LoadingIncharge),
		AttendPerson:     strings.TrimSpace(in.AttendPerson),
		ComplaintDetails: in.ComplaintDetails,
		ActionTaken:      strings.TrimSpace(in.ActionTaken),
		Remarks:          strings.TrimSpace(in.Remarks),
		Status:           StatusOpen,
	}
	if err := r.sheets.Insert(ctx, r.sheet, c.row()); err != nil {
		return Complaint{}, fmt.Errorf("insert complaint: %w", err)
	}
	r.log.Info("complaint registered", zap.String("complaint_no", c.ComplaintNo), zap.String("customer", c.CustomerName))
	return c, nil
}

// Close marks the open complaints on the given sheet rows as closed. Only
// the status cell is written. It returns the complaints as they were
// before closing; on error the ones closed so far are returned too.
func (r *Register) Close(ctx context.Context, rowIndexes []int) ([]Complaint, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	byRow := make(map[int]Complaint, len(all))
	for _, c := range all {
		byRow[c.RowIndex] = c
	}

	// validate everything before writing anything
	targets := make([]Complaint, 0, len(rowIndexes))
	seen := make(map[int]struct{}, len(rowIndexes))
	for _, idx := range rowIndexes {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		c, ok := byRow[idx]
		if !ok {
			return nil, fmt.Errorf("%w: row %d", ErrNotFound, idx)
		}
		if !c.IsOpen() {
			return nil, fmt.Errorf("%w: %s", ErrNotOpen, c.ComplaintNo)
		}
		targets = append(targets, c)
	}

	closed := make([]Complaint, 0, len(targets))
	for _, c := range targets {
		row := make([]any, columns)
		for i := range row {
			row[i] = ""
		}
		row[colStatus] = StatusClosed
		if err := r.sheets.Update(ctx, r.sheet, c.RowIndex, row); err != nil {
			return closed, fmt.Errorf("close %s: %w", c.ComplaintNo, err)
		}
		closed = append(closed, c)
	}
	r.log.Info("complaints closed", zap.Int("count", len(closed)))
	return closed, nil
}
