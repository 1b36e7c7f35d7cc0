package db

import (
	"github.com/google/uuid"

	"github.com/veridata-labs/marketplace-broker/model"
)

func (d *DB) CreateOperationLog(op *model.OperationLog) error {
	return d.db.Create(op).Error
}

// UpdateOperationLogStatus transitions an operation between lifecycle states.
// The old-status guard keeps concurrent workers from rewinding a finished
// operation.
func (d *DB) UpdateOperationLogStatus(id *uuid.UUID, oldStatus, newStatus string) error {
	return d.db.Model(&model.OperationLog{}).
		Where("id = ? AND status = ?", id, oldStatus).
		Update("status", newStatus).Error
}

func (d *DB) CompleteOperationLog(id *uuid.UUID, execMillis int64, outputRefs []string) error {
	return d.db.Model(&model.OperationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.OperationStatusCompleted,
			"exec_millis": execMillis,
			"output_refs": model.StringSlice(outputRefs),
		}).Error
}

func (d *DB) FailOperationLog(id *uuid.UUID, execMillis int64, opErr error) error {
	return d.db.Model(&model.OperationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.OperationStatusFailed,
			"exec_millis": execMillis,
			"error":       opErr.Error(),
		}).Error
}

func (d *DB) ListOperationLog(submissionID uint64) ([]model.OperationLog, error) {
	var ops []model.OperationLog
	ret := d.db.Where(&model.OperationLog{SubmissionID: submissionID}).
		Order("created_at DESC").Find(&ops)
	return ops, ret.Error
}
