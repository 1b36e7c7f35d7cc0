package quality

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/model"
)

var errNoSubmissionWaiting = errors.New("no submission waiting")

// SubmissionQueue hands out submissions awaiting a quality check.
type SubmissionQueue interface {
	NextUncheckedSubmission() (model.Submission, error)
}

// Verifier writes the quality decision back to the ledger. Satisfied by the
// transaction orchestrator.
type Verifier interface {
	VerifySubmission(ctx context.Context, submissionID uint64, approved bool, score uint8, reportRef string) (string, error)
}

// Processor drives the quality pipeline: it polls for pending unchecked
// submissions, scores them on a bounded worker pool, and writes each
// decision to the ledger. The on-chain write re-syncs the mirror through the
// orchestrator, so a processed submission leaves PENDING atomically with the
// canonical state.
type Processor struct {
	mu         sync.Mutex
	inflight   map[uint64]struct{}
	workerPool *workerpool.WorkerPool

	queue    SubmissionQueue
	engine   *Engine
	verifier Verifier
	logger   log.Logger

	pollInterval time.Duration
}

func NewProcessor(queue SubmissionQueue, engine *Engine, verifier Verifier, logger log.Logger, workerCount int, pollInterval time.Duration) *Processor {
	return &Processor{
		inflight:     map[uint64]struct{}{},
		workerPool:   workerpool.New(workerCount),
		queue:        queue,
		engine:       engine,
		verifier:     verifier,
		logger:       logger.WithFields(logrus.Fields{"name": "quality-processor"}),
		pollInterval: pollInterval,
	}
}

// Start implements controller-runtime/pkg/manager.Runnable.
func (p *Processor) Start(ctx context.Context) error {
	go func() {
		p.logger.Info("quality processor started")
		defer p.logger.Info("quality processor stopped")

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.workerPool.StopWait()
				return
			case <-ticker.C:
				sub, err := p.fetchNext()
				if err != nil {
					if !errors.Is(err, errNoSubmissionWaiting) {
						p.logger.Warnf("failed to fetch submission: %v", err)
					}
					continue
				}
				p.queueSubmission(ctx, sub)
			}
		}
	}()

	return nil
}

func (p *Processor) fetchNext() (*model.Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, err := p.queue.NextUncheckedSubmission()
	if err != nil {
		return nil, errors.Wrap(err, "get next unchecked submission")
	}
	if sub.SubmissionID == 0 {
		return nil, errNoSubmissionWaiting
	}
	return &sub, nil
}

// claim marks a submission in flight. The poll interval can be shorter than
// one scoring run, so the queue may hand out a submission that is already on
// the pool; the claim makes redelivery a no-op instead of a duplicate run.
func (p *Processor) claim(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inflight[id]; ok {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Processor) release(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}

func (p *Processor) queueSubmission(ctx context.Context, sub *model.Submission) {
	if !p.claim(sub.SubmissionID) {
		return
	}
	if p.workerPool.WaitingQueueSize() > 0 {
		p.logger.Infof("worker pool queue size: %d", p.workerPool.WaitingQueueSize())
	}

	p.workerPool.Submit(func() {
		defer p.release(sub.SubmissionID)
		if err := p.processSubmission(ctx, sub); err != nil {
			p.logger.WithFields(logrus.Fields{
				"error":         err,
				"submission_id": sub.SubmissionID,
			}).Error("Quality processing failed")
		}
	})
}

// processSubmission scores one submission and pushes the verdict on chain.
// Verify marks the submission checked first, so a crash between the two
// steps loses the on-chain write, never double-verifies; the mirror record
// keeps the decision for manual replay.
func (p *Processor) processSubmission(ctx context.Context, sub *model.Submission) error {
	verification, err := p.engine.Verify(ctx, sub)
	if err != nil {
		return err
	}

	if _, err := p.verifier.VerifySubmission(ctx, sub.SubmissionID, verification.Approved, verification.OverallScore, verification.ReportRef); err != nil {
		return errors.Wrapf(err, "write verification of submission %d to ledger", sub.SubmissionID)
	}
	return nil
}
