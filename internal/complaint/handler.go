package complaint

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"o2d-backend/internal/audit"
	"o2d-backend/internal/auth"
	"o2d-backend/internal/models"
	"o2d-backend/internal/sheets"
)

type CloseRequest struct {
	RowIndexes []int `json:"row_indexes"`
}

// GET /api/complaints
func ListHandler(reg *Register) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := reg.List(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		open, closed := Split(all)
		return c.JSON(fiber.Map{
			"open":        open,
			"closed":      closed,
			"next_number": NextNumber(all),
		})
	}
}

// POST /api/complaints
func CreateHandler(reg *Register, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body NewComplaint
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		ctx := c.UserContext()
		created, err := reg.Add(ctx, body, time.Now())
		if errors.Is(err, ErrMissingField) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			log.Error("complaint insert failed", zap.Error(err))
			return upstreamError(err)
		}

		userID, userName := auth.CurrentUser(c)
		if err := audit.WriteLog(ctx, db, audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  reg.Sheet(),
			Action:      models.AuditActionCreate,
			Description: "Complaint " + created.ComplaintNo + " registered",
			After:       created,
		}); err != nil {
			log.Warn("audit log not written", zap.Error(err))
		}

		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// POST /api/complaints/close
func CloseHandler(reg *Register, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CloseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.RowIndexes) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "select at least one complaint")
		}

		ctx := c.UserContext()
		closed, err := reg.Close(ctx, body.RowIndexes)

		userID, userName := auth.CurrentUser(c)
		for _, cl := range closed {
			after := cl
			after.Status = StatusClosed
			if err := audit.WriteLog(ctx, db, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  reg.Sheet(),
				EntityID:    cl.RowIndex,
				Action:      models.AuditActionUpdate,
				Description: "Complaint " + cl.ComplaintNo + " closed",
				Before:      cl,
				After:       after,
			}); err != nil {
				log.Warn("audit log not written", zap.Int("row", cl.RowIndex), zap.Error(err))
			}
		}

		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotOpen):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			log.Error("complaint close failed", zap.Int("closed", len(closed)), zap.Error(err))
			return upstreamError(err)
		}
		return c.JSON(fiber.Map{"closed": len(closed)})
	}
}

func upstreamError(err error) error {
	if errors.Is(err, sheets.ErrMalformed) {
		return fiber.NewError(fiber.StatusBadGateway, "spreadsheet returned an unexpected response")
	}
	return fiber.NewError(fiber.StatusBadGateway, "spreadsheet unavailable")
}
