package model

const (
	PendingTxStatusWaiting   = "waiting"
	PendingTxStatusConfirmed = "confirmed"
	PendingTxStatusReverted  = "reverted"
)

// PendingTransaction tracks a submitted transaction whose confirmation wait
// timed out. A submitted-but-unconfirmed transaction may still be mined, so
// giving up on the wait never discards the hash; the reconciler re-checks it.
type PendingTransaction struct {
	Model
	TxHash   string `gorm:"type:varchar(66);primaryKey" json:"txHash"`
	Call     string `gorm:"type:varchar(64);not null" json:"call"`
	EntityID uint64 `gorm:"not null;default:0" json:"entityId"`
	Status   string `gorm:"type:varchar(32);not null;default:'waiting';index" json:"status"`
}
