package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func server(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", nil, nil)
}

func reply(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestInvoices_Pending(t *testing.T) {
	c := server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoice/pending", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Acme", r.URL.Query().Get("customer"))
		assert.False(t, r.URL.Query().Has("search"))
		reply(w, `{"success":true,"data":[{"ORDER_VRNO":"ORD-1","GATE_VRNO":"GE-1","ACC_REMARK":"Acme","TRUCKNO":"GJ01","WSLIPNO":101,"OUTDATE":"2025-08-19T10:00:00Z"}]}`)
	})

	page, err := c.Invoices(context.Background(), TabPending, Query{Page: 2, Customer: " Acme "})

	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, InvoiceEntry{
		OrderNo:      "ORD-1",
		GateEntryNo:  "GE-1",
		CustomerName: "Acme",
		TruckNo:      "GJ01",
		WBSlipNo:     "101",
		OutDate:      "2025-08-19T10:00:00Z",
	}, page.Items[0])
}

func TestInvoices_HistoryFullPage(t *testing.T) {
	c := server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		items := make([]string, PageSize)
		for i := range items {
			items[i] = fmt.Sprintf(`{"ORDER_VRNO":"ORD-%d","PARTY_NAME":"Acme","ACC_REMARK":"ignored","INVOICE_NO":"INV-%d"}`, i, i)
		}
		reply(w, `{"success":true,"data":[`+strings.Join(items, ",")+`]}`)
	})

	page, err := c.Invoices(context.Background(), TabHistory, Query{})

	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Items, PageSize)
	assert.Equal(t, "Acme", page.Items[0].CustomerName)
	assert.Equal(t, "INV-0", page.Items[0].InvoiceNo)
}

func TestPayments(t *testing.T) {
	c := server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/pending", r.URL.Path)
		assert.Equal(t, "INV", r.URL.Query().Get("search"))
		reply(w, `{"success":true,"data":[{"VRNO":"INV-9","CUSTOMER_NAME":"Acme","QTY":"12.5","TOTAL_AMOUNT":1000,"RECEIVED_AMOUNT":"400","BALANCE_AMOUNT":"600","DAYS":7}]}`)
	})

	page, err := c.Payments(context.Background(), TabPending, Query{Search: "INV"})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	p := page.Items[0]
	assert.Equal(t, "INV-9", p.InvoiceNo)
	assert.True(t, decimal.RequireFromString("12.5").Equal(p.Quantity))
	assert.True(t, decimal.NewFromInt(600).Equal(p.BalanceAmount))
	assert.Equal(t, 7, p.DelayDays)
}

func TestPaymentCustomers(t *testing.T) {
	c := server(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/customers", r.URL.Path)
		reply(w, `{"success":true,"data":["Zeta","",null,"Acme","Zeta"]}`)
	})

	names, err := c.PaymentCustomers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Zeta"}, names)
}

func TestClient_Errors(t *testing.T) {
	cases := map[string]struct {
		handler http.HandlerFunc
		want    error
	}{
		"html page": {func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>sleeping</html>"))
		}, ErrMalformed},
		"data not array": {func(w http.ResponseWriter, r *http.Request) {
			reply(w, `{"success":true,"data":{"rows":1}}`)
		}, ErrMalformed},
		"missing data": {func(w http.ResponseWriter, r *http.Request) {
			reply(w, `{"success":true}`)
		}, ErrMalformed},
		"not successful": {func(w http.ResponseWriter, r *http.Request) {
			reply(w, `{"success":false,"error":"db offline"}`)
		}, ErrRemote},
		"server error": {func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false}`))
		}, ErrRemote},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := server(t, tc.handler).Invoices(context.Background(), TabPending, Query{})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewClient("http://127.0.0.1:1", nil, nil).Payments(context.Background(), TabHistory, Query{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("history")
	require.NoError(t, err)
	assert.Equal(t, TabHistory, tab)
	_, err = ParseTab("all")
	assert.ErrorIs(t, err, ErrInvalidTab)
}

func TestHandlers(t *testing.T) {
	client := server(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/customers":
			reply(w, `{"success":true,"data":["Acme"]}`)
		case "/payment/history":
			reply(w, `{"success":true,"data":[{"VRNO":"1","ITEM_NAME":"TMT 12mm"},{"VRNO":"2","ITEM_NAME":"Billet"}]}`)
		default:
			reply(w, `{"success":true,"data":[]}`)
		}
	})

	app := fiber.New()
	app.Get("/invoices/:tab", InvoicesHandler(client))
	app.Get("/payments/customers", PaymentCustomersHandler(client))
	app.Get("/payments/:tab", PaymentsHandler(client))

	get := func(path string) (int, string) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	code, body := get("/payments/history?item=Billet")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"invoice_no":"2"`)
	assert.NotContains(t, body, `"invoice_no":"1"`)

	code, body = get("/payments/customers")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["Acme"]`, body)

	code, body = get("/invoices/pending")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"page":1,"has_more":false}`, body)

	code, _ = get("/invoices/all")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get("/invoices/pending?page=0")
	assert.Equal(t, http.StatusBadRequest, code)
}
