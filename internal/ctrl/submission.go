package ctrl

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/contract"
)

type SubmitDatasetParams struct {
	RequestID      uint64   `json:"requestId" binding:"required"`
	ModelAddress   string   `json:"modelAddress" binding:"required"`
	Format         string   `json:"format" binding:"required"`
	FileSize       uint64   `json:"fileSize"`
	SampleCount    uint64   `json:"sampleCount"`
	FileExtensions []string `json:"fileExtensions"`
	DatasetRef     string   `json:"datasetRef"`
}

type SubmitDatasetResult struct {
	ID     uint64 `json:"id"`
	TxHash string `json:"txHash"`
}

// SubmitDataset resolves the format name to its ledger enum index, submits
// the dataset and mirrors the confirmed submission.
func (c *Ctrl) SubmitDataset(ctx context.Context, params *SubmitDatasetParams) (*SubmitDatasetResult, error) {
	format, err := contract.ParseFormat(params.Format)
	if err != nil {
		return nil, err
	}

	tx, err := c.ledger.SubmitDataset(ctx,
		params.RequestID,
		params.ModelAddress,
		format,
		params.FileSize,
		params.SampleCount,
		strings.Join(params.FileExtensions, ","),
		params.DatasetRef,
	)
	if err != nil {
		c.countTxError()
		return nil, errors.Wrap(err, "submit submitDataset")
	}

	receipt, err := c.awaitReceipt(ctx, tx.Hash(), "submitDataset", params.RequestID)
	if err != nil {
		c.countTxError()
		return nil, err
	}

	var submissionID uint64
	found := false
	for _, lg := range receipt.Logs {
		ev, err := c.market.ParseSubmissionSubmitted(*lg)
		if err != nil {
			continue
		}
		submissionID = ev.SubmissionId.Uint64()
		found = true
		break
	}
	if !found {
		c.countTxError()
		return nil, errors.Wrapf(ErrEventNotFound, "SubmissionSubmitted in tx %s", tx.Hash().Hex())
	}

	if _, err := c.sync.SyncSubmission(ctx, submissionID); err != nil {
		return nil, errors.Wrapf(err, "sync submission %d after submit", submissionID)
	}

	c.countTx()
	c.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"request_id":    params.RequestID,
		"tx":            tx.Hash().Hex(),
	}).Info("Dataset submitted")
	return &SubmitDatasetResult{ID: submissionID, TxHash: tx.Hash().Hex()}, nil
}

// VerifySubmission writes a verification decision to the ledger. After
// confirmation the submission is unconditionally re-synced, and the parent
// request too when the same transaction finalized it (payment or refund in
// the receipt). Sync runs whether or not any event listener is attached.
func (c *Ctrl) VerifySubmission(ctx context.Context, submissionID uint64, approved bool, score uint8, reportRef string) (string, error) {
	tx, err := c.ledger.VerifySubmission(ctx, submissionID, approved, score, reportRef)
	if err != nil {
		c.countTxError()
		return "", errors.Wrap(err, "submit verifySubmission")
	}

	receipt, err := c.awaitReceipt(ctx, tx.Hash(), "verifySubmission", submissionID)
	if err != nil {
		c.countTxError()
		return "", err
	}

	if _, err := c.sync.SyncSubmission(ctx, submissionID); err != nil {
		return "", errors.Wrapf(err, "sync submission %d after verify", submissionID)
	}

	if requestID, finalized := c.finalizedRequest(receipt.Logs); finalized {
		if _, err := c.sync.SyncRequest(ctx, requestID); err != nil {
			return "", errors.Wrapf(err, "sync request %d after finalize", requestID)
		}
		if err := c.db.SetRequestFinalizeTxHash(requestID, tx.Hash().Hex()); err != nil {
			c.logger.WithFields(logrus.Fields{"error": err, "request_id": requestID}).Warn("Failed to record finalize tx hash")
		}
	}

	c.countTx()
	c.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"approved":      approved,
		"score":         score,
		"tx":            tx.Hash().Hex(),
	}).Info("Submission verified")
	return tx.Hash().Hex(), nil
}

// finalizedRequest reports whether the receipt carries a payment or refund,
// meaning the parent request reached a terminal state in the same tx.
func (c *Ctrl) finalizedRequest(logs []*types.Log) (uint64, bool) {
	for _, lg := range logs {
		if ev, err := c.market.ParsePaymentReleased(*lg); err == nil {
			return ev.RequestId.Uint64(), true
		}
		if ev, err := c.market.ParseRefundIssued(*lg); err == nil {
			return ev.RequestId.Uint64(), true
		}
	}
	return 0, false
}
