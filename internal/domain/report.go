package domain

import (
	"time"
)

const (
	ReportStatusProcessing = "processing"
	ReportStatusCompleted  = "completed"
	ReportStatusFailed     = "failed"
)

// Report tracks one submitted document's processing lifecycle and artifacts.
// Status only ever moves processing -> completed|failed; terminal states are
// never overwritten (the repo layer guards every terminal transition with a
// status = processing predicate).
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index;column:owner_id" json:"owner_id"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Status    string    `gorm:"not null;index;column:status" json:"status"`
	RawText   string    `gorm:"type:text;column:raw_text" json:"raw_text"`
	AISummary string    `gorm:"type:text;column:ai_summary" json:"ai_summary"`
	PDFReport string    `gorm:"type:text;column:pdf_report" json:"pdf_report"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Report) TableName() string { return "report" }

func (r *Report) Terminal() bool {
	return r.Status == ReportStatusCompleted || r.Status == ReportStatusFailed
}
