package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionExport AuditAction = "export"
)

// AuditLog records one write made through the API. Sheet rows are not
// owned by this database, so the entity is addressed by sheet name and
// 1-based row index.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID   string `gorm:"size:100;index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// sheet name, or "report" for exports
	EntityType string `gorm:"size:100;index" json:"entity_type"`
	EntityID   int    `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
