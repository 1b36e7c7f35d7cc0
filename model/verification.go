package model

import "time"

// Verification is the immutable record of one quality decision. The unique
// index on SubmissionID enforces the one-verification-per-submission
// invariant at the store, not as a check-then-insert in application code.
// ReportRef is the only field updated after creation.
type Verification struct {
	Model
	ID           uint       `gorm:"primaryKey" json:"id"`
	SubmissionID uint64     `gorm:"not null;uniqueIndex:uniq_submission" json:"submissionId"`
	VerifiedBy   string     `gorm:"type:varchar(255);not null" json:"verifiedBy"`
	Approved     bool       `gorm:"not null" json:"approved"`
	OverallScore uint8      `gorm:"not null" json:"overallScore"`
	Metrics      MetricsMap `gorm:"type:json;not null" json:"metrics"`
	ReportRef    string     `gorm:"type:varchar(255);not null;default:''" json:"reportRef,omitempty"`
	Issues       IssueList  `gorm:"type:json;not null" json:"issues"`
	VerifiedAt   *time.Time `gorm:"not null" json:"verifiedAt"`
}
