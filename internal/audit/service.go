package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"o2d-backend/internal/models"
)

type LogOptions struct {
	UserID      string
	UserName    string
	EntityType  string
	EntityID    int
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit entry. A nil db means auditing is not
// configured and the call does nothing.
func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	if db == nil {
		return nil
	}

	// jsonb columns reject "", store JSON null instead
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Query narrows a listing of audit logs.
type Query struct {
	EntityType string
	EntityID   int
	UserID     string
	Action     models.AuditAction
	Limit      int
}

// List returns audit logs newest first.
func List(ctx context.Context, db *gorm.DB, q Query) ([]models.AuditLog, error) {
	dbq := db.WithContext(ctx).Model(&models.AuditLog{})
	if q.EntityType != "" {
		dbq = dbq.Where("entity_type = ?", q.EntityType)
	}
	if q.EntityID > 0 {
		dbq = dbq.Where("entity_id = ?", q.EntityID)
	}
	if q.UserID != "" {
		dbq = dbq.Where("user_id = ?", q.UserID)
	}
	if q.Action != "" {
		dbq = dbq.Where("action = ?", q.Action)
	}
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	var logs []models.AuditLog
	if err := dbq.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
