// Package event turns the contract's log stream into mirror synchronizations.
// Delivery is decoupled from processing so a slow handler cannot stall the
// subscription, and every event is resolved by read-repair: the ids are the
// only payload fields trusted.
package event

import (
	"context"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

const logBuffer = 256

// MarketplaceEvent is the typed view of one contract log. Ids are carried
// for re-sync; all other state is fetched canonically.
type MarketplaceEvent struct {
	Name         string
	RequestID    uint64
	SubmissionID uint64
	Raw          types.Log
}

// Handler receives the post-sync mirror state, never the raw payload, so it
// cannot observe a view staler than the ledger read that preceded it. Either
// record may be nil when the event does not touch that entity.
type Handler func(ctx context.Context, ev *MarketplaceEvent, req *model.Request, sub *model.Submission)

type Synchronizer interface {
	SyncRequest(ctx context.Context, id uint64) (*model.Request, error)
	SyncSubmission(ctx context.Context, id uint64) (*model.Submission, error)
}

// OperationStore records durable-sync failures for operator attention.
type OperationStore interface {
	CreateOperationLog(op *model.OperationLog) error
}

type Ingestor struct {
	filterer ethereum.LogFilterer
	market   *contract.DataMarketplace
	sync     Synchronizer
	ops      OperationStore
	handler  Handler
	logger   log.Logger

	maxRetries    int
	retryInterval time.Duration
	enableMonitor bool
}

func NewIngestor(
	filterer ethereum.LogFilterer,
	market *contract.DataMarketplace,
	sync Synchronizer,
	ops OperationStore,
	handler Handler,
	logger log.Logger,
	maxRetries int,
	retryInterval time.Duration,
	enableMonitor bool,
) *Ingestor {
	return &Ingestor{
		filterer:      filterer,
		market:        market,
		sync:          sync,
		ops:           ops,
		handler:       handler,
		logger:        logger,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		enableMonitor: enableMonitor,
	}
}

// Start implements controller-runtime/pkg/manager.Runnable. It subscribes to
// the contract's logs and processes them until the context is cancelled.
// Cancelling stops delivery; events already taken off the channel finish
// processing before Start returns.
func (i *Ingestor) Start(ctx context.Context) error {
	logs := make(chan types.Log, logBuffer)
	query := ethereum.FilterQuery{Addresses: []ethcommon.Address{i.market.Address()}}

	sub, err := i.filterer.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return errors.Wrap(err, "subscribe to contract logs")
	}
	defer sub.Unsubscribe()

	i.logger.Info("event ingestor started")
	defer i.logger.Info("event ingestor stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return errors.Wrap(err, "log subscription")
		case lg := <-logs:
			i.handleLog(ctx, lg)
		}
	}
}

func (i *Ingestor) handleLog(ctx context.Context, lg types.Log) {
	ev, err := i.decode(lg)
	if err != nil {
		// Logs emitted by other ABI versions are skipped, not fatal.
		i.logger.WithFields(logrus.Fields{"error": err, "tx": lg.TxHash.Hex()}).Warn("Skipping unparsable log")
		return
	}
	if ev == nil {
		return
	}

	if err := i.processWithRetry(ctx, ev); err != nil {
		i.recordDurableFailure(ev, err)
		return
	}
	if i.enableMonitor {
		monitor.EventProcessedCount.Inc()
	}
}

func (i *Ingestor) decode(lg types.Log) (*MarketplaceEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, errors.New("log without topics")
	}

	switch lg.Topics[0] {
	case i.market.EventID("RequestCreated"):
		ev, err := i.market.ParseRequestCreated(lg)
		if err != nil {
			return nil, err
		}
		return &MarketplaceEvent{Name: "RequestCreated", RequestID: ev.RequestId.Uint64(), Raw: lg}, nil
	case i.market.EventID("SubmissionSubmitted"):
		ev, err := i.market.ParseSubmissionSubmitted(lg)
		if err != nil {
			return nil, err
		}
		return &MarketplaceEvent{Name: "SubmissionSubmitted", RequestID: ev.RequestId.Uint64(), SubmissionID: ev.SubmissionId.Uint64(), Raw: lg}, nil
	case i.market.EventID("SubmissionVerified"):
		ev, err := i.market.ParseSubmissionVerified(lg)
		if err != nil {
			return nil, err
		}
		return &MarketplaceEvent{Name: "SubmissionVerified", RequestID: ev.RequestId.Uint64(), SubmissionID: ev.SubmissionId.Uint64(), Raw: lg}, nil
	case i.market.EventID("PaymentReleased"):
		ev, err := i.market.ParsePaymentReleased(lg)
		if err != nil {
			return nil, err
		}
		return &MarketplaceEvent{Name: "PaymentReleased", RequestID: ev.RequestId.Uint64(), SubmissionID: ev.SubmissionId.Uint64(), Raw: lg}, nil
	case i.market.EventID("RefundIssued"):
		ev, err := i.market.ParseRefundIssued(lg)
		if err != nil {
			return nil, err
		}
		return &MarketplaceEvent{Name: "RefundIssued", RequestID: ev.RequestId.Uint64(), SubmissionID: ev.SubmissionId.Uint64(), Raw: lg}, nil
	}
	// Not one of ours.
	return nil, nil
}

// processWithRetry synchronizes the entities an event references, retrying
// transient failures (replication lag shows up as a short-lived not-found)
// with linear backoff up to the configured budget.
func (i *Ingestor) processWithRetry(ctx context.Context, ev *MarketplaceEvent) error {
	var lastErr error
	for attempt := 0; attempt <= i.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * i.retryInterval):
			}
		}

		if lastErr = i.process(ctx, ev); lastErr == nil {
			return nil
		}
		i.logger.WithFields(logrus.Fields{
			"error":   lastErr,
			"event":   ev.Name,
			"attempt": attempt,
		}).Warn("Event processing failed")
		if i.enableMonitor {
			monitor.EventFailedCount.Inc()
		}
	}
	return lastErr
}

// Process runs one event through sync and handler notification. Redelivery
// is harmless: the syncs are idempotent upserts keyed by canonical id.
func (i *Ingestor) Process(ctx context.Context, ev *MarketplaceEvent) error {
	return i.process(ctx, ev)
}

func (i *Ingestor) process(ctx context.Context, ev *MarketplaceEvent) error {
	var req *model.Request
	var sub *model.Submission
	var err error

	if ev.SubmissionID != 0 {
		if sub, err = i.sync.SyncSubmission(ctx, ev.SubmissionID); err != nil {
			return errors.Wrapf(err, "sync submission %d", ev.SubmissionID)
		}
	}
	if ev.RequestID != 0 {
		if req, err = i.sync.SyncRequest(ctx, ev.RequestID); err != nil {
			return errors.Wrapf(err, "sync request %d", ev.RequestID)
		}
	}

	if i.handler != nil {
		i.handler(ctx, ev, req, sub)
	}
	return nil
}

// recordDurableFailure surfaces an event whose sync exhausted the retry
// budget. It is never dropped silently: the failure lands in the operation
// log and the monitor counter.
func (i *Ingestor) recordDurableFailure(ev *MarketplaceEvent, cause error) {
	i.logger.WithFields(logrus.Fields{
		"error":         cause,
		"event":         ev.Name,
		"request_id":    ev.RequestID,
		"submission_id": ev.SubmissionID,
		"tx":            ev.Raw.TxHash.Hex(),
	}).Error("Durable sync failure, event abandoned after retry budget")

	if i.enableMonitor {
		monitor.DurableSyncFailCount.Inc()
	}
	if i.ops == nil {
		return
	}
	id := uuid.New()
	op := &model.OperationLog{
		ID:           &id,
		SubmissionID: ev.SubmissionID,
		Kind:         "eventSync:" + ev.Name,
		Status:       model.OperationStatusFailed,
		Error:        cause.Error(),
		OutputRefs:   model.StringSlice{},
	}
	if err := i.ops.CreateOperationLog(op); err != nil {
		i.logger.Errorf("Failed to record durable sync failure: %v", err)
	}
}
