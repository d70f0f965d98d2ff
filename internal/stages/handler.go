package stages

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"o2d-backend/internal/audit"
	"o2d-backend/internal/auth"
	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
	"o2d-backend/internal/sheets"
	"o2d-backend/internal/snapshot"
)

type CompleteRequest struct {
	RowIndex   int    `json:"row_index"`
	WBSlipNo   string `json:"wb_slip_no"`
	Supervisor string `json:"supervisor"`
	Remarks    string `json:"remarks"`
}

func (r CompleteRequest) values() map[dispatch.Field]string {
	return map[dispatch.Field]string{
		dispatch.FieldWBSlipNo:   r.WBSlipNo,
		dispatch.FieldSupervisor: r.Supervisor,
		dispatch.FieldRemarks:    r.Remarks,
	}
}

type StageListResponse struct {
	Stage     Stage             `json:"stage"`
	Tab       string            `json:"tab"`
	Records   []dispatch.Record `json:"records"`
	Pending   int               `json:"pending"`
	History   int               `json:"history"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// GET /api/stages
func ListStagesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(All())
	}
}

// GET /api/stages/:stage?tab=pending|history
func StageRecordsHandler(svc *snapshot.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stage, err := Lookup(c.Params("stage"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		tab := c.Query("tab", "pending")
		if tab != "pending" && tab != "history" {
			return fiber.NewError(fiber.StatusBadRequest, "tab must be pending or history")
		}

		snap, err := svc.Current(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}

		pending, history := Split(snap.Records, stage)
		resp := StageListResponse{
			Stage:     stage,
			Tab:       tab,
			Records:   pending,
			Pending:   len(pending),
			History:   len(history),
			FetchedAt: snap.FetchedAt,
		}
		if tab == "history" {
			resp.Records = history
		}
		return c.JSON(resp)
	}
}

// POST /api/stages/:stage/complete
func CompleteStageHandler(svc *snapshot.Service, completer *Completer, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stage, err := Lookup(c.Params("stage"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		var body CompleteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		ctx := c.UserContext()
		snap, err := svc.Current(ctx)
		if err != nil {
			return upstreamError(err)
		}

		var before *dispatch.Record
		for i := range snap.Records {
			if snap.Records[i].RowIndex == body.RowIndex {
				before = &snap.Records[i]
				break
			}
		}
		if before == nil {
			return fiber.NewError(fiber.StatusNotFound, "row not found")
		}
		if !stage.Pending(*before) {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("%s: %s row %d", ErrNotPending, stage.Title, body.RowIndex))
		}

		row, err := completer.WithColumns(snap.Columns).Complete(ctx, stage, body.RowIndex, body.values(), time.Now())
		switch {
		case errors.Is(err, ErrMissingField):
			return fiber.NewError(fiber.StatusBadRequest, missingFieldMessage(err))
		case errors.Is(err, ErrInvalidRow):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			log.Error("stage completion failed",
				zap.String("stage", stage.Name),
				zap.Int("row", body.RowIndex),
				zap.Error(err),
			)
			return upstreamError(err)
		}

		userID, userName := auth.CurrentUser(c)
		if err := audit.WriteLog(ctx, db, audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  svc.Layout().Sheet,
			EntityID:    body.RowIndex,
			Action:      models.AuditActionUpdate,
			Description: stage.Title + " completed for " + before.OrderNo,
			Before:      before,
			After:       row,
		}); err != nil {
			log.Warn("audit log not written", zap.Error(err))
		}

		if _, err := svc.Refresh(ctx); err != nil {
			log.Warn("refresh after completion failed", zap.Error(err))
		}

		return c.JSON(fiber.Map{
			"message":   stage.Title + " completed",
			"row_index": body.RowIndex,
		})
	}
}

// GET /api/stages/supervisors
func SupervisorsHandler(source sheets.Reader, loginSheet string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := source.Fetch(c.UserContext(), loginSheet)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(Supervisors(rows))
	}
}

// GET /api/gate-entries?customer=&search=
func GateEntriesHandler(svc *snapshot.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := svc.Current(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		entries := GateEntries(snap.Records, c.Query("customer"), c.Query("search"))
		return c.JSON(fiber.Map{
			"entries":    entries,
			"total":      len(entries),
			"customers":  Customers(snap.Records),
			"fetched_at": snap.FetchedAt,
		})
	}
}

func missingFieldMessage(err error) string {
	switch {
	case strings.HasSuffix(err.Error(), string(dispatch.FieldSupervisor)):
		return "Please select supervisor name"
	case strings.HasSuffix(err.Error(), string(dispatch.FieldWBSlipNo)):
		return "Please enter the weighbridge slip number"
	}
	return err.Error()
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, sheets.ErrMalformed):
		return fiber.NewError(fiber.StatusBadGateway, "spreadsheet returned an unexpected response")
	case errors.Is(err, dispatch.ErrHeaderMismatch):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, "spreadsheet unavailable")
}
