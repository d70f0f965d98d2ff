package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportFormat string

const (
	ReportFormatHTML ReportFormat = "html"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// DashboardReport is the archive entry of one exported dashboard report.
type DashboardReport struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	FileName  string       `gorm:"size:255;not null" json:"file_name"`
	Format    ReportFormat `gorm:"size:10;not null" json:"format"`
	CreatedBy string       `gorm:"size:100;index" json:"created_by"`

	// applied filters (JSON)
	Filters string `gorm:"type:jsonb" json:"filters"`

	RecordCount     int             `gorm:"default:0" json:"record_count"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(18,3)" json:"total_amount"`
	PendingPayments decimal.Decimal `gorm:"type:numeric(18,3)" json:"pending_payments"`

	// empty when object storage is not configured
	ObjectKey string `gorm:"size:512" json:"object_key"`
	SizeBytes int64  `json:"size_bytes"`

	GeneratedAt time.Time `gorm:"index;not null" json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}
