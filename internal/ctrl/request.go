package ctrl

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/util"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

type CreateRequestResult struct {
	ID     uint64 `json:"id"`
	TxHash string `json:"txHash"`
}

// CreateRequest submits a createRequest transaction and returns the
// ledger-assigned id once confirmed and mirrored. The formats mask is
// validated before anything reaches the ledger.
func (c *Ctrl) CreateRequest(ctx context.Context, formatsMask uint8, description, budget string) (*CreateRequestResult, error) {
	if _, err := contract.DecodeFormatsMask(formatsMask); err != nil {
		return nil, err
	}
	budgetInt, err := util.ConvertToBigInt(budget)
	if err != nil {
		return nil, errors.Wrap(err, "parse budget")
	}

	tx, err := c.ledger.CreateRequest(ctx, formatsMask, description, budgetInt)
	if err != nil {
		c.countTxError()
		return nil, errors.Wrap(err, "submit createRequest")
	}

	receipt, err := c.awaitReceipt(ctx, tx.Hash(), "createRequest", 0)
	if err != nil {
		c.countTxError()
		return nil, err
	}

	// The receipt may interleave logs from other contracts or ABI
	// versions; scan by event, skipping what does not parse.
	var requestID uint64
	found := false
	for _, lg := range receipt.Logs {
		ev, err := c.market.ParseRequestCreated(*lg)
		if err != nil {
			continue
		}
		requestID = ev.RequestId.Uint64()
		found = true
		break
	}
	if !found {
		// A confirmed transaction without its creation event breaks the
		// contract invariant; retrying cannot fix an ABI mismatch.
		c.countTxError()
		return nil, errors.Wrapf(ErrEventNotFound, "RequestCreated in tx %s", tx.Hash().Hex())
	}

	if _, err := c.sync.SyncRequest(ctx, requestID); err != nil {
		return nil, errors.Wrapf(err, "sync request %d after create", requestID)
	}
	if err := c.db.SetRequestCreateTxHash(requestID, tx.Hash().Hex()); err != nil {
		c.logger.WithFields(logrus.Fields{"error": err, "request_id": requestID}).Warn("Failed to record create tx hash")
	}

	c.countTx()
	c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"tx":         tx.Hash().Hex(),
	}).Info("Request created")
	return &CreateRequestResult{ID: requestID, TxHash: tx.Hash().Hex()}, nil
}

// CancelRequest closes an open request and refunds its escrow, then
// re-syncs the mirrored request.
func (c *Ctrl) CancelRequest(ctx context.Context, requestID uint64) (string, error) {
	tx, err := c.ledger.CancelRequest(ctx, requestID)
	if err != nil {
		c.countTxError()
		return "", errors.Wrap(err, "submit cancelRequest")
	}

	if _, err := c.awaitReceipt(ctx, tx.Hash(), "cancelRequest", requestID); err != nil {
		c.countTxError()
		return "", err
	}

	if _, err := c.sync.SyncRequest(ctx, requestID); err != nil {
		return "", errors.Wrapf(err, "sync request %d after cancel", requestID)
	}
	if err := c.db.SetRequestFinalizeTxHash(requestID, tx.Hash().Hex()); err != nil {
		c.logger.WithFields(logrus.Fields{"error": err, "request_id": requestID}).Warn("Failed to record finalize tx hash")
	}

	c.countTx()
	return tx.Hash().Hex(), nil
}

func (c *Ctrl) countTx() {
	if c.enableMonitor {
		monitor.TransactionCount.Inc()
	}
}

func (c *Ctrl) countTxError() {
	if c.enableMonitor {
		monitor.TransactionErrCount.Inc()
	}
}
