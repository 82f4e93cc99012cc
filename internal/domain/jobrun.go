package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobRun is one durable queue entry. The payload is the only contract between
// the submission endpoint and the worker; everything else is reloaded from
// the report row.
type JobRun struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uint           `gorm:"not null;index;column:owner_id" json:"owner_id"`
	JobType   string         `gorm:"not null;index;column:job_type" json:"job_type"`
	Status    string         `gorm:"not null;index;column:status" json:"status"`
	Stage     string         `gorm:"column:stage" json:"stage"`
	Attempts  int            `gorm:"not null;default:0;column:attempts" json:"attempts"`
	Error     string         `gorm:"type:text;column:error" json:"error,omitempty"`
	LockedAt  *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	Result    datatypes.JSON `gorm:"column:result" json:"result"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
