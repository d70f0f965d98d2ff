package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"o2d-backend/internal/audit"
	"o2d-backend/internal/auth"
	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
	"o2d-backend/internal/report"
	"o2d-backend/internal/snapshot"
)

type ReportResponse struct {
	ID              string              `json:"id"`
	FileName        string              `json:"file_name"`
	Format          models.ReportFormat `json:"format"`
	CreatedBy       string              `json:"created_by"`
	Filters         string              `json:"filters"`
	RecordCount     int                 `json:"record_count"`
	TotalAmount     string              `json:"total_amount"`
	PendingPayments string              `json:"pending_payments"`
	Archived        bool                `json:"archived"`
	SizeBytes       int64               `json:"size_bytes"`
	GeneratedAt     string              `json:"generated_at"`
}

func toReportResponse(r models.DashboardReport) ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		FileName:        r.FileName,
		Format:          r.Format,
		CreatedBy:       r.CreatedBy,
		Filters:         r.Filters,
		RecordCount:     r.RecordCount,
		TotalAmount:     dispatch.FormatCurrency(r.TotalAmount),
		PendingPayments: dispatch.FormatCurrency(r.PendingPayments),
		Archived:        r.ObjectKey != "",
		SizeBytes:       r.SizeBytes,
		GeneratedAt:     r.GeneratedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/dashboard/report?format=html|xlsx&party=&state=&salesperson=&item=&from=&to=
//
// archive and db may be nil; the file is still produced.
func ReportHandler(svc *snapshot.Service, archive *report.Archive, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := report.ParseFormat(c.Query("format"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		criteria, err := CriteriaFromQuery(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		snap, err := svc.Current(ctx)
		if err != nil {
			return upstreamError(err)
		}

		data := report.Build(time.Now(), criteria, snap.Records)

		var body []byte
		switch format {
		case models.ReportFormatXLSX:
			buf, err := report.RenderXLSX(data)
			if err != nil {
				log.Error("xlsx report", zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "could not render report")
			}
			body = buf.Bytes()
		default:
			var buf bytes.Buffer
			if err := report.RenderHTML(&buf, data); err != nil {
				log.Error("html report", zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "could not render report")
			}
			body = buf.Bytes()
		}

		userID, userName := auth.CurrentUser(c)
		reportID := ""
		if archive != nil {
			saved, err := archive.Save(ctx, data, format, body, userID)
			if err != nil {
				log.Warn("report not archived", zap.Error(err))
			} else {
				reportID = saved.ID
				c.Set("X-Report-ID", saved.ID)
			}
		}

		if err := audit.WriteLog(ctx, db, audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "report",
			Action:      models.AuditActionExport,
			Description: fmt.Sprintf("Dashboard report exported (%s, %d records)", format, data.TotalRecords),
			After: fiber.Map{
				"report_id": reportID,
				"filters":   criteria,
				"records":   data.TotalRecords,
			},
		}); err != nil {
			log.Warn("audit log not written", zap.Error(err))
		}

		fileName := report.FileName(data.GeneratedAt, format)
		c.Set(fiber.HeaderContentType, report.ContentType(format))
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
		return c.Send(body)
	}
}

// GET /api/reports?format=&from=&to=&limit=
func ListReportsHandler(archive *report.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if archive == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "report archive is not configured")
		}

		f := report.ListFilter{Limit: c.QueryInt("limit", 100)}
		if s := c.Query("format"); s != "" {
			format, err := report.ParseFormat(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			f.Format = format
		}
		var err error
		if f.From, err = dispatch.ParseDateBound(c.Query("from")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
		}
		if f.To, err = dispatch.ParseDateBound(c.Query("to")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
		}

		list, err := archive.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list reports")
		}
		resp := make([]ReportResponse, 0, len(list))
		for _, r := range list {
			resp = append(resp, toReportResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/reports/:id
func GetReportHandler(archive *report.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if archive == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "report archive is not configured")
		}
		r, err := archive.Get(c.UserContext(), c.Params("id"))
		if errors.Is(err, report.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "report not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load report")
		}
		return c.JSON(toReportResponse(*r))
	}
}
