package model

import (
	"github.com/google/uuid"
	"gorm.io/plugin/soft_delete"
)

const (
	OperationStatusPending    = "pending"
	OperationStatusProcessing = "processing"
	OperationStatusCompleted  = "completed"
	OperationStatusFailed     = "failed"
)

// OperationLog audits one quality engine invocation. It exists independently
// of Verification so failed runs still leave a trace.
type OperationLog struct {
	Model
	ID           *uuid.UUID            `gorm:"type:char(36);primaryKey" json:"id" readonly:"true"`
	SubmissionID uint64                `gorm:"not null;index" json:"submissionId"`
	Kind         string                `gorm:"type:varchar(64);not null" json:"kind"`
	Status       string                `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	Error        string                `gorm:"type:text;not null" json:"error,omitempty"`
	ExecMillis   int64                 `gorm:"not null;default:0" json:"execMillis"`
	OutputRefs   StringSlice           `gorm:"type:json;not null" json:"outputRefs"`
	DeletedAt    soft_delete.DeletedAt `gorm:"softDelete:nano;not null;default:0" json:"-" readonly:"true"`
}
