package db

import (
	"gorm.io/gorm/clause"

	"github.com/veridata-labs/marketplace-broker/model"
)

// UpsertSubmission mirrors a canonical submission read. verification_id is
// mirror-local and excluded from the conflict assignment.
func (d *DB) UpsertSubmission(sub *model.Submission) error {
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"request_id", "seller", "model_address", "format", "file_size",
			"sample_count", "file_extensions", "dataset_ref", "status",
			"quality_checked", "updated_at",
		}),
	}).Create(sub).Error
}

func (d *DB) GetSubmission(id uint64) (model.Submission, error) {
	var sub model.Submission
	ret := d.db.Where(&model.Submission{SubmissionID: id}).First(&sub)
	return sub, ret.Error
}

func (d *DB) ListSubmission(opts *model.SubmissionListOptions) ([]model.Submission, error) {
	var subs []model.Submission
	query := d.db.Model(&model.Submission{})
	if opts != nil {
		if opts.RequestID != nil {
			query = query.Where("request_id = ?", *opts.RequestID)
		}
		if opts.Seller != nil {
			query = query.Where("seller = ?", *opts.Seller)
		}
		if opts.Status != nil {
			query = query.Where("status = ?", *opts.Status)
		}
		if opts.QualityChecked != nil {
			query = query.Where("quality_checked = ?", *opts.QualityChecked)
		}
		if opts.Sort != nil {
			query = query.Order(*opts.Sort)
		} else {
			query = query.Order("created_at DESC")
		}
	}
	ret := query.Find(&subs)
	return subs, ret.Error
}

// NextUncheckedSubmission returns the oldest pending submission the quality
// engine has not processed yet; a zero SubmissionID means none is waiting.
func (d *DB) NextUncheckedSubmission() (model.Submission, error) {
	var sub model.Submission
	ret := d.db.Where("status = ? AND quality_checked = ?", model.SubmissionStatusPending, false).
		Order("created_at").Limit(1).Find(&sub)
	return sub, ret.Error
}

func (d *DB) MarkSubmissionChecked(id uint64, verificationID uint) error {
	return d.db.Model(&model.Submission{}).
		Where("submission_id = ?", id).
		Updates(map[string]interface{}{
			"quality_checked": true,
			"verification_id": verificationID,
		}).Error
}
