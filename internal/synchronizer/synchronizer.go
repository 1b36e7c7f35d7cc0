// Package synchronizer keeps the mirror store consistent with ledger truth.
// Every sync is a canonical read followed by an idempotent upsert keyed by
// the ledger id; event payload fields are never trusted (read-repair). Both
// the event path and the orchestrated-write path go through this package so
// the two cannot drift apart.
package synchronizer

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
)

// Ledger is the canonical read surface the synchronizer depends on.
type Ledger interface {
	GetRequest(ctx context.Context, id uint64) (contract.LedgerRequest, error)
	GetSubmission(ctx context.Context, id uint64) (contract.LedgerSubmission, error)
}

// Store is the mirror write surface.
type Store interface {
	UpsertRequest(req *model.Request) error
	UpsertSubmission(sub *model.Submission) error
}

type Synchronizer struct {
	ledger Ledger
	store  Store
	logger log.Logger
}

func New(ledger Ledger, store Store, logger log.Logger) *Synchronizer {
	return &Synchronizer{
		ledger: ledger,
		store:  store,
		logger: logger,
	}
}

// SyncRequest re-reads request id from the ledger and upserts the decoded
// record. Safe under concurrent invocation for the same id: the mirror
// converges on whichever call observed the more current ledger state.
func (s *Synchronizer) SyncRequest(ctx context.Context, id uint64) (*model.Request, error) {
	ledgerReq, err := s.ledger.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := decodeRequest(&ledgerReq)
	if err != nil {
		return nil, errors.Wrapf(err, "decode request %d", id)
	}

	if err := s.store.UpsertRequest(req); err != nil {
		s.logger.WithFields(logrus.Fields{"error": err, "request_id": id}).Error("Failed to upsert request")
		return nil, errors.Wrapf(err, "upsert request %d", id)
	}
	return req, nil
}

func (s *Synchronizer) SyncSubmission(ctx context.Context, id uint64) (*model.Submission, error) {
	ledgerSub, err := s.ledger.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	sub, err := decodeSubmission(&ledgerSub)
	if err != nil {
		return nil, errors.Wrapf(err, "decode submission %d", id)
	}

	if err := s.store.UpsertSubmission(sub); err != nil {
		s.logger.WithFields(logrus.Fields{"error": err, "submission_id": id}).Error("Failed to upsert submission")
		return nil, errors.Wrapf(err, "upsert submission %d", id)
	}
	return sub, nil
}

func decodeRequest(in *contract.LedgerRequest) (*model.Request, error) {
	formats, err := contract.DecodeFormatsMask(in.FormatsMask)
	if err != nil {
		return nil, err
	}
	status, err := contract.RequestStatusName(in.Status)
	if err != nil {
		return nil, err
	}

	req := &model.Request{
		RequestID:       in.Id.Uint64(),
		Buyer:           in.Buyer.Hex(),
		Description:     in.Description,
		Budget:          in.Budget.String(),
		FormatsMask:     in.FormatsMask,
		AcceptedFormats: formats,
		Status:          status,
		ReportRef:       in.ReportRef,
	}
	// Zero is the ledger's "not set" for both optional fields.
	if in.QualityScore > 0 {
		req.QualityScore = model.PtrOf(in.QualityScore)
	}
	if in.FinalizedSubmissionId != nil && in.FinalizedSubmissionId.Sign() > 0 {
		req.FinalizedSubmissionID = model.PtrOf(in.FinalizedSubmissionId.Uint64())
	}
	now := time.Now()
	req.UpdatedAt = &now
	return req, nil
}

func decodeSubmission(in *contract.LedgerSubmission) (*model.Submission, error) {
	if in.Format >= contract.NumFormats {
		return nil, errors.Errorf("unknown format index %d", in.Format)
	}
	status, err := contract.SubmissionStatusName(in.Status)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &model.Submission{
		SubmissionID:   in.Id.Uint64(),
		RequestID:      in.RequestId.Uint64(),
		Seller:         in.Seller.Hex(),
		ModelAddress:   in.Model.Hex(),
		Format:         contract.Format(in.Format).String(),
		FileSize:       in.FileSize.Uint64(),
		SampleCount:    in.SampleCount.Uint64(),
		FileExtensions: splitExtensions(in.FileExtensions),
		DatasetRef:     in.DatasetRef,
		Status:         status,
		QualityChecked: in.QualityChecked,
		Model:          model.Model{UpdatedAt: &now},
	}, nil
}

// splitExtensions decodes the comma-separated extension list, preserving
// declaration order.
func splitExtensions(s string) model.StringSlice {
	if s == "" {
		return model.StringSlice{}
	}
	parts := strings.Split(s, ",")
	out := make(model.StringSlice, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
