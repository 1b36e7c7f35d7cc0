package model

const (
	SubmissionStatusPending  = "PENDING"
	SubmissionStatusApproved = "APPROVED"
	SubmissionStatusRejected = "REJECTED"
	SubmissionStatusPaid     = "PAID"
	SubmissionStatusRefunded = "REFUNDED"
)

type Submission struct {
	Model
	SubmissionID   uint64      `gorm:"primaryKey;autoIncrement:false" json:"submissionId"`
	RequestID      uint64      `gorm:"not null;index" json:"requestId"`
	Seller         string      `gorm:"type:varchar(255);not null;index" json:"seller"`
	ModelAddress   string      `gorm:"type:varchar(255);not null" json:"modelAddress"`
	Format         string      `gorm:"type:varchar(32);not null" json:"format"`
	FileSize       uint64      `gorm:"not null;default:0" json:"fileSize"`
	SampleCount    uint64      `gorm:"not null;default:0" json:"sampleCount"`
	FileExtensions StringSlice `gorm:"type:json;not null" json:"fileExtensions"`
	DatasetRef     string      `gorm:"type:varchar(255);not null;default:''" json:"datasetRef"`
	Status         string      `gorm:"type:varchar(32);not null;index" json:"status"`
	QualityChecked bool        `gorm:"not null;default:false" json:"qualityChecked"`
	VerificationID *uint       `json:"verificationId,omitempty"`
}

type SubmissionList struct {
	Metadata ListMeta     `json:"metadata"`
	Items    []Submission `json:"items"`
}

type SubmissionListOptions struct {
	RequestID      *uint64 `form:"requestId"`
	Seller         *string `form:"seller"`
	Status         *string `form:"status"`
	QualityChecked *bool   `form:"qualityChecked"`
	Sort           *string `form:"sort"`
}
