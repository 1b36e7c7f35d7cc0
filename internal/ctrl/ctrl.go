package ctrl

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
)

// ErrEventNotFound marks a confirmed transaction whose receipt is missing
// the expected event. That is an ABI/protocol mismatch, not a transient
// condition, so it is surfaced and never retried.
var ErrEventNotFound = errors.New("expected event not found in confirmed receipt")

// Ledger is the write-and-confirm surface of the marketplace contract.
type Ledger interface {
	CreateRequest(ctx context.Context, formatsMask uint8, description string, budget *big.Int) (*types.Transaction, error)
	SubmitDataset(ctx context.Context, requestID uint64, modelAddr string, format contract.Format, fileSize, sampleCount uint64, fileExtensions, datasetRef string) (*types.Transaction, error)
	VerifySubmission(ctx context.Context, submissionID uint64, approved bool, score uint8, reportRef string) (*types.Transaction, error)
	CancelRequest(ctx context.Context, requestID uint64) (*types.Transaction, error)
	WaitForReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error)
	CheckReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error)
	GetBuyerRequests(ctx context.Context, buyer string) ([]uint64, error)
	GetSellerSubmissions(ctx context.Context, seller string) ([]uint64, error)
}

type Synchronizer interface {
	SyncRequest(ctx context.Context, id uint64) (*model.Request, error)
	SyncSubmission(ctx context.Context, id uint64) (*model.Submission, error)
}

// Store is the mirror surface the orchestrator needs beyond synchronization.
type Store interface {
	GetRequest(id uint64) (model.Request, error)
	GetSubmission(id uint64) (model.Submission, error)
	ListRequest(opts *model.RequestListOptions) ([]model.Request, error)
	ListSubmission(opts *model.SubmissionListOptions) ([]model.Submission, error)
	GetVerificationBySubmission(submissionID uint64) (model.Verification, error)
	SetRequestCreateTxHash(id uint64, txHash string) error
	SetRequestFinalizeTxHash(id uint64, txHash string) error
	TrackPendingTransaction(tx *model.PendingTransaction) error
	ListWaitingTransactions() ([]model.PendingTransaction, error)
	UpdatePendingTransactionStatus(txHash, status string) error
}

// Ctrl orchestrates contract writes: submit, await confirmation, extract the
// emitted event, then re-sync the mirror through the same synchronizer the
// event path uses. Synchronization happens regardless of any listener being
// attached; the writer is in the same trust domain as the ledger.
type Ctrl struct {
	ledger Ledger
	market *contract.DataMarketplace
	sync   Synchronizer
	db     Store
	logger log.Logger

	enableMonitor bool
}

func New(ledger Ledger, market *contract.DataMarketplace, sync Synchronizer, db Store, logger log.Logger, enableMonitor bool) *Ctrl {
	return &Ctrl{
		ledger:        ledger,
		market:        market,
		sync:          sync,
		db:            db,
		logger:        logger,
		enableMonitor: enableMonitor,
	}
}

// trackTimedOutTransaction retains a submitted-but-unconfirmed transaction
// for the reconciler. Giving up on the wait never discards the hash; the
// transaction may still be mined.
func (c *Ctrl) trackTimedOutTransaction(txHash ethcommon.Hash, call string, entityID uint64) {
	if err := c.db.TrackPendingTransaction(&model.PendingTransaction{
		TxHash:   txHash.Hex(),
		Call:     call,
		EntityID: entityID,
		Status:   model.PendingTxStatusWaiting,
	}); err != nil {
		c.logger.Errorf("Failed to track pending transaction %s: %v", txHash.Hex(), err)
	}
}

func (c *Ctrl) awaitReceipt(ctx context.Context, txHash ethcommon.Hash, call string, entityID uint64) (*types.Receipt, error) {
	receipt, err := c.ledger.WaitForReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, contract.ErrReceiptTimeout) {
			c.trackTimedOutTransaction(txHash, call, entityID)
		}
		return nil, errors.Wrapf(err, "await %s confirmation", call)
	}
	return receipt, nil
}
