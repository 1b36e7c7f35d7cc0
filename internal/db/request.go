package db

import (
	"gorm.io/gorm/clause"

	"github.com/veridata-labs/marketplace-broker/model"
)

// UpsertRequest writes a mirrored request keyed by its ledger id. Replayed
// events re-run the same upsert and converge on the latest canonical read.
// Only canonical columns are assigned on conflict; the tx hash columns are
// mirror-local and survive re-syncs.
func (d *DB) UpsertRequest(req *model.Request) error {
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "request_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"buyer", "description", "budget", "formats_mask", "accepted_formats",
			"status", "quality_score", "report_ref", "finalized_submission_id", "updated_at",
		}),
	}).Create(req).Error
}

func (d *DB) SetRequestCreateTxHash(id uint64, txHash string) error {
	return d.db.Model(&model.Request{}).
		Where("request_id = ?", id).
		Update("create_tx_hash", txHash).Error
}

func (d *DB) SetRequestFinalizeTxHash(id uint64, txHash string) error {
	return d.db.Model(&model.Request{}).
		Where("request_id = ?", id).
		Update("finalize_tx_hash", txHash).Error
}

func (d *DB) GetRequest(id uint64) (model.Request, error) {
	var req model.Request
	ret := d.db.Where(&model.Request{RequestID: id}).First(&req)
	return req, ret.Error
}

func (d *DB) ListRequest(opts *model.RequestListOptions) ([]model.Request, error) {
	var requests []model.Request
	query := d.db.Model(&model.Request{})
	if opts != nil {
		if opts.Buyer != nil {
			query = query.Where("buyer = ?", *opts.Buyer)
		}
		if opts.Status != nil {
			query = query.Where("status = ?", *opts.Status)
		}
		if opts.Sort != nil {
			query = query.Order(*opts.Sort)
		} else {
			query = query.Order("created_at DESC")
		}
	}
	ret := query.Find(&requests)
	return requests, ret.Error
}
