package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
)

const PageSize = 50

var (
	ErrTransport  = errors.New("backend: transport failure")
	ErrMalformed  = errors.New("backend: malformed response")
	ErrRemote     = errors.New("backend: remote error")
	ErrInvalidTab = errors.New("backend: tab must be pending or history")
)

type Tab string

const (
	TabPending Tab = "pending"
	TabHistory Tab = "history"
)

func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case TabPending, TabHistory:
		return Tab(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTab, s)
}

// Query selects one page of a listing. Page is 1-based.
type Query struct {
	Page     int
	Customer string
	Search   string
}

type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

// InvoiceEntry is a dispatch waiting for (pending) or carrying (history)
// an invoice.
type InvoiceEntry struct {
	OrderNo          string `json:"order_no"`
	GateEntryNo      string `json:"gate_entry_no"`
	CustomerName     string `json:"customer_name"`
	TruckNo          string `json:"truck_no"`
	WBSlipNo         string `json:"wb_slip_no"`
	InvoiceNo        string `json:"invoice_no,omitempty"`
	WaybillNo        string `json:"waybill_no,omitempty"`
	PlannedTimestamp string `json:"planned_timestamp"`
	ActualTimestamp  string `json:"actual_timestamp,omitempty"`
	InDate           string `json:"in_date,omitempty"`
	OutDate          string `json:"out_date,omitempty"`
}

// PaymentEntry is an invoice with its collection state.
type PaymentEntry struct {
	OrderNo          string          `json:"order_no"`
	GateEntryNo      string          `json:"gate_entry_no"`
	InvoiceNo        string          `json:"invoice_no"`
	CustomerName     string          `json:"customer_name"`
	TruckNo          string          `json:"truck_no"`
	ItemName         string          `json:"item_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ReceivedAmount   decimal.Decimal `json:"received_amount"`
	BalanceAmount    decimal.Decimal `json:"balance_amount"`
	DelayDays        int             `json:"delay_days"`
	VoucherDate      string          `json:"voucher_date"`
	PlannedTimestamp string          `json:"planned_timestamp"`
}

// Client reads the invoice and payment listings of the REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: sheets.DefaultTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, log: log.Named("backend")}
}

func (c *Client) Invoices(ctx context.Context, tab Tab, q Query) (Page[InvoiceEntry], error) {
	rows, page, err := c.list(ctx, "invoice", tab, q)
	if err != nil {
		return Page[InvoiceEntry]{}, err
	}
	items := make([]InvoiceEntry, 0, len(rows))
	for _, r := range rows {
		items = append(items, invoiceEntry(r, tab))
	}
	return Page[InvoiceEntry]{Items: items, Page: page, HasMore: len(rows) == PageSize}, nil
}

func (c *Client) Payments(ctx context.Context, tab Tab, q Query) (Page[PaymentEntry], error) {
	rows, page, err := c.list(ctx, "payment", tab, q)
	if err != nil {
		return Page[PaymentEntry]{}, err
	}
	items := make([]PaymentEntry, 0, len(rows))
	for _, r := range rows {
		items = append(items, paymentEntry(r))
	}
	return Page[PaymentEntry]{Items: items, Page: page, HasMore: len(rows) == PageSize}, nil
}

// PaymentCustomers returns the distinct customer names known to the
// payment ledger, sorted.
func (c *Client) PaymentCustomers(ctx context.Context) ([]string, error) {
	var data []any
	if err := c.get(ctx, "/payment/customers", nil, &data); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range data {
		name := dispatch.CellString(v)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type row map[string]any

func (r row) str(key string) string {
	return dispatch.CellString(r[key])
}

func (r row) num(key string) decimal.Decimal {
	return dispatch.ParseNumber(r.str(key))
}

func (c *Client) list(ctx context.Context, resource string, tab Tab, q Query) ([]row, int, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(PageSize))
	if s := strings.TrimSpace(q.Customer); s != "" {
		params.Set("customer", s)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}

	var rows []row
	if err := c.get(ctx, "/"+resource+"/"+string(tab), params, &rows); err != nil {
		return nil, 0, err
	}
	return rows, page, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	ct := resp.Header.Get("Content-Type")
	if !sheets.IsJSON(ct) {
		return fmt.Errorf("%w: server returned %q instead of JSON: %s", ErrMalformed, ct, sheets.Preview(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrMalformed, err, sheets.Preview(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrRemote, msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: data is not an array", ErrMalformed)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: data is not an array: %v", ErrMalformed, err)
	}

	c.log.Debug("backend request", zap.String("path", path), zap.Duration("took", time.Since(start)))
	return nil
}

func invoiceEntry(r row, tab Tab) InvoiceEntry {
	e := InvoiceEntry{
		OrderNo:          r.str("ORDER_VRNO"),
		GateEntryNo:      r.str("GATE_VRNO"),
		TruckNo:          r.str("TRUCKNO"),
		WBSlipNo:         r.str("WSLIPNO"),
		PlannedTimestamp: r.str("PLANNED_TIMESTAMP"),
	}
	if tab == TabPending {
		// the pending view carries the party in the accounting remark
		e.CustomerName = r.str("ACC_REMARK")
		e.InDate = r.str("INDATE")
		e.OutDate = r.str("OUTDATE")
		return e
	}
	e.CustomerName = r.str("PARTY_NAME")
	e.InvoiceNo = r.str("INVOICE_NO")
	e.WaybillNo = r.str("WAYBILLNO")
	e.ActualTimestamp = r.str("ACTUAL_TIMESTAMP")
	return e
}

func paymentEntry(r row) PaymentEntry {
	days, _ := strconv.Atoi(r.str("DAYS"))
	return PaymentEntry{
		OrderNo:          r.str("ORDER_VRNO"),
		GateEntryNo:      r.str("GATE_VRNO"),
		InvoiceNo:        r.str("VRNO"),
		CustomerName:     r.str("CUSTOMER_NAME"),
		TruckNo:          r.str("TRUCKNO"),
		ItemName:         r.str("ITEM_NAME"),
		Quantity:         r.num("QTY"),
		TotalAmount:      r.num("TOTAL_AMOUNT"),
		ReceivedAmount:   r.num("RECEIVED_AMOUNT"),
		BalanceAmount:    r.num("BALANCE_AMOUNT"),
		DelayDays:        days,
		VoucherDate:      r.str("VRDATE"),
		PlannedTimestamp: r.str("PLANNED_TIMESTAMP"),
	}
}
