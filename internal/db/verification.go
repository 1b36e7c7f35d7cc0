package db

import (
	"gorm.io/gorm"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/model"
)

// CreateVerification inserts the immutable verification record. The unique
// index on submission_id turns a second attempt into ErrDuplicateVerification
// instead of a lost-update race.
func (d *DB) CreateVerification(v *model.Verification) error {
	if err := d.db.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(ErrDuplicateVerification, "submission %d", v.SubmissionID)
		}
		return err
	}
	return nil
}

func (d *DB) GetVerificationBySubmission(submissionID uint64) (model.Verification, error) {
	var v model.Verification
	ret := d.db.Where(&model.Verification{SubmissionID: submissionID}).First(&v)
	return v, ret.Error
}
