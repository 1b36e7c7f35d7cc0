package model

const (
	RequestStatusOpen   = "OPEN"
	RequestStatusClosed = "CLOSED"
)

// Request is the mirrored copy of an on-chain data request. RequestID is
// ledger-assigned; every row is written by upsert from a canonical read.
type Request struct {
	Model
	RequestID             uint64      `gorm:"primaryKey;autoIncrement:false" json:"requestId"`
	Buyer                 string      `gorm:"type:varchar(255);not null;index" json:"buyer"`
	Description           string      `gorm:"type:text;not null" json:"description"`
	Budget                string      `gorm:"type:varchar(255);not null" json:"budget"`
	FormatsMask           uint8       `gorm:"not null" json:"formatsMask"`
	AcceptedFormats       StringSlice `gorm:"type:json;not null" json:"acceptedFormats"`
	Status                string      `gorm:"type:varchar(32);not null;index" json:"status"`
	QualityScore          *uint8      `json:"qualityScore,omitempty"`
	ReportRef             string      `gorm:"type:varchar(255);not null;default:''" json:"reportRef,omitempty"`
	FinalizedSubmissionID *uint64     `json:"finalizedSubmissionId,omitempty"`
	CreateTxHash          string      `gorm:"type:varchar(66);not null;default:''" json:"createTxHash,omitempty"`
	FinalizeTxHash        string      `gorm:"type:varchar(66);not null;default:''" json:"finalizeTxHash,omitempty"`
}

type RequestList struct {
	Metadata ListMeta  `json:"metadata"`
	Items    []Request `json:"items"`
}

type RequestListOptions struct {
	Buyer  *string `form:"buyer"`
	Status *string `form:"status"`
	Sort   *string `form:"sort"`
}
