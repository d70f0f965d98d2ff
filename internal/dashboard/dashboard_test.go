package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
	"o2d-backend/internal/report"
	"o2d-backend/internal/snapshot"
	"o2d-backend/internal/testutil"
)

func fms() [][]any {
	return testutil.FMSRows(
		map[int]string{0: "15/08/2025 10:00:00", 1: "ORD-1", 3: "Acme", 19: "15/08/2025", 24: "Ravi", 27: "TMT", 28: "10", 29: "1000", 30: "Gujarat", 38: "200"},
		map[int]string{0: "16/08/2025 11:30:00", 1: "ORD-2", 3: "Bharat", 19: "16/08/2025", 24: "Meena", 27: "Billet", 28: "5", 29: "2500", 30: "Rajasthan"},
		map[int]string{0: "18/08/2025 09:15:00", 1: "ORD-3", 3: "Acme", 19: "18/08/2025", 24: "Ravi", 27: "TMT", 28: "2", 29: "500", 30: "Gujarat"},
	)
}

func newApp(t *testing.T, archive *report.Archive) (*fiber.App, *testutil.FakeSheets) {
	t.Helper()
	fake := testutil.NewFakeSheets()
	fake.Set("FMS", fms())
	svc := snapshot.NewService(fake, snapshot.NewMemoryStore(), dispatch.DefaultLayout(), nil)

	app := fiber.New()
	app.Get("/dashboard", SummaryHandler(svc))
	app.Get("/dashboard/report", ReportHandler(svc, archive, nil, zap.NewNop()))
	app.Post("/dashboard/refresh", RefreshHandler(svc))
	app.Get("/reports", ListReportsHandler(archive))
	app.Get("/reports/:id", GetReportHandler(archive))
	return app, fake
}

func get(t *testing.T, app *fiber.App, method, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestSummaryHandler(t *testing.T) {
	app, _ := newApp(t, nil)

	resp, body := get(t, app, http.MethodGet, "/dashboard?party=Acme&from=2025-08-16")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TotalRecords int                      `json:"total_records"`
		TopCustomers []dispatch.CustomerRow   `json:"top_customers"`
		Applied      []dispatch.AppliedFilter `json:"applied_filters"`
		Options      dispatch.Options         `json:"options"`
		Records      []dispatch.Record        `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.TotalRecords)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "ORD-3", out.Records[0].OrderNo)
	require.Len(t, out.TopCustomers, 1)
	assert.Equal(t, "Acme", out.TopCustomers[0].Name)
	assert.Equal(t, []string{"Acme", "Bharat"}, out.Options.Parties)
	assert.Equal(t, "Party", out.Applied[0].Label)
}

func TestSummaryHandler_AllSentinel(t *testing.T) {
	app, _ := newApp(t, nil)

	resp, body := get(t, app, http.MethodGet, "/dashboard?party=All&state=All%20States")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total_records":3`)
}

func TestSummaryHandler_BadDates(t *testing.T) {
	app, _ := newApp(t, nil)

	for _, q := range []string{"from=yesterday", "to=32/01/2025", "from=2025-08-10&to=2025-08-01"} {
		resp, _ := get(t, app, http.MethodGet, "/dashboard?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestSummaryHandler_UpstreamDown(t *testing.T) {
	app, fake := newApp(t, nil)
	fake.Err = errors.New("down")

	resp, _ := get(t, app, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestRefreshHandler(t *testing.T) {
	app, fake := newApp(t, nil)

	resp, _ := get(t, app, http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rows := fms()
	fake.Set("FMS", rows[:len(rows)-1])
	resp, body := get(t, app, http.MethodPost, "/dashboard/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"records":2`)
}

func TestReportHandler_HTML(t *testing.T) {
	app, _ := newApp(t, nil)

	resp, body := get(t, app, http.MethodGet, "/dashboard/report?state=Gujarat")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), "text/html"))
	disposition := resp.Header.Get(fiber.HeaderContentDisposition)
	assert.Contains(t, disposition, `attachment; filename="Dashboard_Report_`)
	assert.Contains(t, disposition, `.html"`)
	assert.Contains(t, string(body), "State: Gujarat")
	assert.Contains(t, string(body), "Filtered Results (2 total records)")
	assert.Empty(t, resp.Header.Get("X-Report-ID"))
}

func TestReportHandler_XLSX(t *testing.T) {
	app, _ := newApp(t, nil)

	resp, body := get(t, app, http.MethodGet, "/dashboard/report?format=xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `.xlsx"`)

	f, err := excelize.OpenReader(strings.NewReader(string(body)))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	resp, _ = get(t, app, http.MethodGet, "/dashboard/report?format=pdf")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportsHandlers_NoArchive(t *testing.T) {
	app, _ := newApp(t, nil)

	resp, _ := get(t, app, http.MethodGet, "/reports")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = get(t, app, http.MethodGet, "/reports/abc")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReportsHandlers_Archive(t *testing.T) {
	db := testutil.OpenDB(t, &models.DashboardReport{})
	app, _ := newApp(t, report.NewArchive(db, nil, nil))

	resp, _ := get(t, app, http.MethodGet, "/dashboard/report?party=Acme")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get("X-Report-ID")
	require.NotEmpty(t, id)

	resp, body := get(t, app, http.MethodGet, "/reports?format=html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []ReportResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 2, list[0].RecordCount)
	assert.Equal(t, "₹1,500", list[0].TotalAmount)
	assert.False(t, list[0].Archived)

	resp, _ = get(t, app, http.MethodGet, "/reports/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = get(t, app, http.MethodGet, "/reports/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportHandler_AuditFailureIsLogged(t *testing.T) {
	fake := testutil.NewFakeSheets()
	fake.Set("FMS", fms())
	svc := snapshot.NewService(fake, snapshot.NewMemoryStore(), dispatch.DefaultLayout(), nil)
	core, logs := observer.New(zap.WarnLevel)

	app := fiber.New()
	app.Get("/dashboard/report", ReportHandler(svc, nil, testutil.BrokenDB(t), zap.New(core)))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard/report", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	warned := logs.FilterMessage("audit log not written").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zap.WarnLevel, warned[0].Level)
}
