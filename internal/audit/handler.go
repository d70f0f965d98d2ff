package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"o2d-backend/internal/models"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      string             `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    int                `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

// GET /api/audit-logs?sheet=FMS&row=12&user_id=ravi&action=update&limit=50
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "audit log is not configured")
		}

		q := Query{
			EntityType: c.Query("sheet"),
			UserID:     c.Query("user_id"),
			Action:     models.AuditAction(c.Query("action")),
		}
		if s := c.Query("row"); s != "" {
			row, err := strconv.Atoi(s)
			if err != nil || row < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid row")
			}
			q.EntityID = row
		}
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
			}
			q.Limit = n
		}

		logs, err := List(c.UserContext(), db, q)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				BeforeData:  log.BeforeData,
				AfterData:   log.AfterData,
			})
		}
		return c.JSON(resp)
	}
}
