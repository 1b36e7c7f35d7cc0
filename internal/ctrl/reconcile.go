package ctrl

import (
	"context"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/model"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

// Reconciler drains the pending-transaction table. Transactions land there
// when a receipt wait times out; each tick re-checks them and, once mined,
// replays the same extract-and-sync path the synchronous flow would have run.
type Reconciler struct {
	ctrl     *Ctrl
	interval time.Duration
}

func NewReconciler(ctrl *Ctrl, interval time.Duration) *Reconciler {
	return &Reconciler{ctrl: ctrl, interval: interval}
}

// Start implements controller-runtime/pkg/manager.Runnable.
func (r *Reconciler) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.ctrl.logger.Info("transaction reconciler started")
	defer r.ctrl.logger.Info("transaction reconciler stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) {
	waiting, err := r.ctrl.db.ListWaitingTransactions()
	if err != nil {
		r.ctrl.logger.Errorf("Failed to list waiting transactions: %v", err)
		return
	}

	for _, tx := range waiting {
		if err := r.reconcileTransaction(ctx, &tx); err != nil {
			r.ctrl.logger.WithFields(logrus.Fields{
				"error": err,
				"tx":    tx.TxHash,
				"call":  tx.Call,
			}).Warn("Failed to reconcile pending transaction")
		}
	}
}

func (r *Reconciler) reconcileTransaction(ctx context.Context, tx *model.PendingTransaction) error {
	receipt, err := r.ctrl.ledger.CheckReceipt(ctx, ethcommon.HexToHash(tx.TxHash))
	if err != nil {
		return err
	}
	if receipt == nil {
		// Still unmined, check again next tick.
		return nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		r.ctrl.logger.WithFields(logrus.Fields{
			"tx":   tx.TxHash,
			"call": tx.Call,
		}).Warn("Pending transaction reverted on chain")
		return r.ctrl.db.UpdatePendingTransactionStatus(tx.TxHash, model.PendingTxStatusReverted)
	}

	if err := r.syncFromReceipt(ctx, tx, receipt); err != nil {
		return err
	}
	if err := r.ctrl.db.UpdatePendingTransactionStatus(tx.TxHash, model.PendingTxStatusConfirmed); err != nil {
		return err
	}

	if r.ctrl.enableMonitor {
		monitor.SyncCount.Inc()
	}
	r.ctrl.logger.WithFields(logrus.Fields{
		"tx":   tx.TxHash,
		"call": tx.Call,
	}).Info("Reconciled pending transaction")
	return nil
}

// syncFromReceipt mirrors every marketplace entity the receipt's events
// reference. Falls back to the tracked entity id when the receipt carries no
// parseable event, so a cancelRequest with a pruned log still re-syncs.
func (r *Reconciler) syncFromReceipt(ctx context.Context, tx *model.PendingTransaction, receipt *types.Receipt) error {
	requestIDs := map[uint64]struct{}{}
	submissionIDs := map[uint64]struct{}{}

	for _, lg := range receipt.Logs {
		if ev, err := r.ctrl.market.ParseRequestCreated(*lg); err == nil {
			requestIDs[ev.RequestId.Uint64()] = struct{}{}
			continue
		}
		if ev, err := r.ctrl.market.ParseSubmissionSubmitted(*lg); err == nil {
			requestIDs[ev.RequestId.Uint64()] = struct{}{}
			submissionIDs[ev.SubmissionId.Uint64()] = struct{}{}
			continue
		}
		if ev, err := r.ctrl.market.ParseSubmissionVerified(*lg); err == nil {
			requestIDs[ev.RequestId.Uint64()] = struct{}{}
			submissionIDs[ev.SubmissionId.Uint64()] = struct{}{}
			continue
		}
		if ev, err := r.ctrl.market.ParsePaymentReleased(*lg); err == nil {
			requestIDs[ev.RequestId.Uint64()] = struct{}{}
			submissionIDs[ev.SubmissionId.Uint64()] = struct{}{}
			continue
		}
		if ev, err := r.ctrl.market.ParseRefundIssued(*lg); err == nil {
			requestIDs[ev.RequestId.Uint64()] = struct{}{}
			submissionIDs[ev.SubmissionId.Uint64()] = struct{}{}
		}
	}

	if len(requestIDs) == 0 && len(submissionIDs) == 0 && tx.EntityID != 0 {
		switch tx.Call {
		case "submitDataset", "verifySubmission":
			submissionIDs[tx.EntityID] = struct{}{}
		default:
			requestIDs[tx.EntityID] = struct{}{}
		}
	}

	for id := range submissionIDs {
		if _, err := r.ctrl.sync.SyncSubmission(ctx, id); err != nil {
			r.countSyncError()
			return err
		}
	}
	for id := range requestIDs {
		if _, err := r.ctrl.sync.SyncRequest(ctx, id); err != nil {
			r.countSyncError()
			return err
		}
	}
	return nil
}

func (r *Reconciler) countSyncError() {
	if r.ctrl.enableMonitor {
		monitor.SyncErrorCount.Inc()
	}
}
