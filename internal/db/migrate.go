package db

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"gorm.io/plugin/soft_delete"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/model"
)

func (d *DB) Migrate() error {
	d.db.Set("gorm:table_options", "ENGINE=InnoDB")

	m := gormigrate.New(d.db, &gormigrate.Options{UseTransaction: false}, []*gormigrate.Migration{
		{
			ID: "create-request",
			Migrate: func(tx *gorm.DB) error {
				type Request struct {
					model.Model
					RequestID             uint64            `gorm:"primaryKey;autoIncrement:false"`
					Buyer                 string            `gorm:"type:varchar(255);not null;index"`
					Description           string            `gorm:"type:text;not null"`
					Budget                string            `gorm:"type:varchar(255);not null"`
					FormatsMask           uint8             `gorm:"not null"`
					AcceptedFormats       model.StringSlice `gorm:"type:json;not null"`
					Status                string            `gorm:"type:varchar(32);not null;index"`
					QualityScore          *uint8
					ReportRef             string `gorm:"type:varchar(255);not null;default:''"`
					FinalizedSubmissionID *uint64
					CreateTxHash          string `gorm:"type:varchar(66);not null;default:''"`
					FinalizeTxHash        string `gorm:"type:varchar(66);not null;default:''"`
				}
				return tx.AutoMigrate(&Request{})
			},
		},
		{
			ID: "create-submission",
			Migrate: func(tx *gorm.DB) error {
				type Submission struct {
					model.Model
					SubmissionID   uint64            `gorm:"primaryKey;autoIncrement:false"`
					RequestID      uint64            `gorm:"not null;index"`
					Seller         string            `gorm:"type:varchar(255);not null;index"`
					ModelAddress   string            `gorm:"type:varchar(255);not null"`
					Format         string            `gorm:"type:varchar(32);not null"`
					FileSize       uint64            `gorm:"not null;default:0"`
					SampleCount    uint64            `gorm:"not null;default:0"`
					FileExtensions model.StringSlice `gorm:"type:json;not null"`
					DatasetRef     string            `gorm:"type:varchar(255);not null;default:''"`
					Status         string            `gorm:"type:varchar(32);not null;index"`
					QualityChecked bool              `gorm:"not null;default:false"`
					VerificationID *uint
				}
				return tx.AutoMigrate(&Submission{})
			},
		},
		{
			ID: "create-verification",
			Migrate: func(tx *gorm.DB) error {
				type Verification struct {
					model.Model
					ID           uint             `gorm:"primaryKey"`
					SubmissionID uint64           `gorm:"not null;uniqueIndex:uniq_submission"`
					VerifiedBy   string           `gorm:"type:varchar(255);not null"`
					Approved     bool             `gorm:"not null"`
					OverallScore uint8            `gorm:"not null"`
					Metrics      model.MetricsMap `gorm:"type:json;not null"`
					ReportRef    string           `gorm:"type:varchar(255);not null;default:''"`
					Issues       model.IssueList  `gorm:"type:json;not null"`
				}
				return tx.AutoMigrate(&Verification{})
			},
		},
		{
			ID: "create-operation-log",
			Migrate: func(tx *gorm.DB) error {
				type OperationLog struct {
					model.Model
					ID           string                `gorm:"type:char(36);primaryKey"`
					SubmissionID uint64                `gorm:"not null;index"`
					Kind         string                `gorm:"type:varchar(64);not null"`
					Status       string                `gorm:"type:varchar(32);not null;default:'pending'"`
					Error        string                `gorm:"type:text;not null"`
					ExecMillis   int64                 `gorm:"not null;default:0"`
					OutputRefs   model.StringSlice     `gorm:"type:json;not null"`
					DeletedAt    soft_delete.DeletedAt `gorm:"softDelete:nano;not null;default:0"`
				}
				return tx.AutoMigrate(&OperationLog{})
			},
		},
		{
			ID: "create-pending-transaction",
			Migrate: func(tx *gorm.DB) error {
				type PendingTransaction struct {
					model.Model
					TxHash   string `gorm:"type:varchar(66);primaryKey"`
					Call     string `gorm:"type:varchar(64);not null"`
					EntityID uint64 `gorm:"not null;default:0"`
					Status   string `gorm:"type:varchar(32);not null;default:'waiting';index"`
				}
				return tx.AutoMigrate(&PendingTransaction{})
			},
		},
		{
			ID: "add-verified-at-to-verification",
			Migrate: func(tx *gorm.DB) error {
				type Verification struct {
					VerifiedAt *time.Time `gorm:"not null"`
				}
				return tx.AutoMigrate(&Verification{})
			},
		},
	})

	return errors.Wrap(m.Migrate(), "migrate database")
}
