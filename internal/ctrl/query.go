package ctrl

import (
	"context"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/model"
)

// GetRequest serves from the mirror. Callers wanting a guaranteed-fresh view
// should go through SyncRequest first.
func (c *Ctrl) GetRequest(id uint64) (model.Request, error) {
	return c.db.GetRequest(id)
}

func (c *Ctrl) GetSubmission(id uint64) (model.Submission, error) {
	return c.db.GetSubmission(id)
}

func (c *Ctrl) ListRequest(opts *model.RequestListOptions) ([]model.Request, error) {
	return c.db.ListRequest(opts)
}

func (c *Ctrl) ListSubmission(opts *model.SubmissionListOptions) ([]model.Submission, error) {
	return c.db.ListSubmission(opts)
}

func (c *Ctrl) GetVerification(submissionID uint64) (model.Verification, error) {
	return c.db.GetVerificationBySubmission(submissionID)
}

// SyncRequest exposes single-entity read-repair, for callers that suspect
// the mirror is stale (a missed event, a manual refresh).
func (c *Ctrl) SyncRequest(ctx context.Context, id uint64) (*model.Request, error) {
	return c.sync.SyncRequest(ctx, id)
}

func (c *Ctrl) SyncSubmission(ctx context.Context, id uint64) (*model.Submission, error) {
	return c.sync.SyncSubmission(ctx, id)
}

// SyncBuyerRequests repairs every request the ledger attributes to a buyer.
// Enumeration comes from the contract's own index, so requests the mirror
// never heard of are picked up too.
func (c *Ctrl) SyncBuyerRequests(ctx context.Context, buyer string) (int, error) {
	ids, err := c.ledger.GetBuyerRequests(ctx, buyer)
	if err != nil {
		return 0, errors.Wrapf(err, "enumerate requests of buyer %s", buyer)
	}
	for _, id := range ids {
		if _, err := c.sync.SyncRequest(ctx, id); err != nil {
			return 0, errors.Wrapf(err, "sync request %d", id)
		}
	}
	return len(ids), nil
}

func (c *Ctrl) SyncSellerSubmissions(ctx context.Context, seller string) (int, error) {
	ids, err := c.ledger.GetSellerSubmissions(ctx, seller)
	if err != nil {
		return 0, errors.Wrapf(err, "enumerate submissions of seller %s", seller)
	}
	for _, id := range ids {
		if _, err := c.sync.SyncSubmission(ctx, id); err != nil {
			return 0, errors.Wrapf(err, "sync submission %d", id)
		}
	}
	return len(ids), nil
}
