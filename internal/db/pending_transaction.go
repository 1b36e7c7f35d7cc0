package db

import (
	"gorm.io/gorm/clause"

	"github.com/veridata-labs/marketplace-broker/model"
)

func (d *DB) TrackPendingTransaction(tx *model.PendingTransaction) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		UpdateAll: true,
	}).Create(tx).Error
}

func (d *DB) ListWaitingTransactions() ([]model.PendingTransaction, error) {
	var txs []model.PendingTransaction
	ret := d.db.Where(&model.PendingTransaction{Status: model.PendingTxStatusWaiting}).
		Order("created_at").Find(&txs)
	return txs, ret.Error
}

func (d *DB) UpdatePendingTransactionStatus(txHash, status string) error {
	return d.db.Model(&model.PendingTransaction{}).
		Where("tx_hash = ?", txHash).
		Update("status", status).Error
}
