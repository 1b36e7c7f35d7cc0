// Package quality scores submitted datasets and records the verdict. The
// pipeline is deterministic for a given submission: same input, same metrics,
// same decision.
package quality

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/model"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

const gib = 1 << 30

// VerificationStore is the mirror surface the engine writes through.
type VerificationStore interface {
	CreateVerification(v *model.Verification) error
	MarkSubmissionChecked(id uint64, verificationID uint) error
	CreateOperationLog(op *model.OperationLog) error
	UpdateOperationLogStatus(id *uuid.UUID, oldStatus, newStatus string) error
	CompleteOperationLog(id *uuid.UUID, execMillis int64, outputRefs []string) error
	FailOperationLog(id *uuid.UUID, execMillis int64, opErr error) error
}

// CheckResult is the outcome of one quality run before persistence.
type CheckResult struct {
	Metrics      model.MetricsMap
	OverallScore uint8
	Approved     bool
	Issues       model.IssueList
	Summary      Summary
}

// Summary condenses a run for reports and logs.
type Summary struct {
	CriticalScore float64 `json:"criticalScore"`
	Status        string  `json:"status"`
	IssueCount    int     `json:"issueCount"`
}

type Engine struct {
	db        VerificationStore
	publisher ReportPublisher
	logger    log.Logger

	verifiedBy    string
	threshold     int
	enableMonitor bool
}

func NewEngine(db VerificationStore, publisher ReportPublisher, logger log.Logger, verifiedBy string, threshold int, enableMonitor bool) *Engine {
	return &Engine{
		db:            db,
		publisher:     publisher,
		logger:        logger,
		verifiedBy:    verifiedBy,
		threshold:     threshold,
		enableMonitor: enableMonitor,
	}
}

// RunQualityChecks computes the metric set of one submission. Completeness
// and format compliance are always present; the format checker contributes
// the rest.
func (e *Engine) RunQualityChecks(sub *model.Submission) *CheckResult {
	metrics := checkerFor(sub.Format).Check(sub)
	metrics["completeness"] = completeness(sub)
	metrics["formatCompliance"] = formatCompliance(sub)

	overall := meanScore(metrics)
	approved := int(overall) >= e.threshold

	result := &CheckResult{
		Metrics:      metrics,
		OverallScore: overall,
		Approved:     approved,
		Issues:       collectIssues(sub, metrics),
	}
	result.Summary = summarize(result)
	return result
}

// Verify runs the pipeline for one submission: score, publish the report,
// persist the verification and mark the submission checked. Every invocation
// is audited through an operation log, success or not.
func (e *Engine) Verify(ctx context.Context, sub *model.Submission) (*model.Verification, error) {
	opID := uuid.New()
	op := &model.OperationLog{
		ID:           &opID,
		SubmissionID: sub.SubmissionID,
		Kind:         "qualityCheck",
		Status:       model.OperationStatusPending,
		OutputRefs:   model.StringSlice{},
	}
	if err := e.db.CreateOperationLog(op); err != nil {
		return nil, errors.Wrap(err, "create operation log")
	}
	if err := e.db.UpdateOperationLogStatus(&opID, model.OperationStatusPending, model.OperationStatusProcessing); err != nil {
		e.logger.Errorf("Failed to mark operation %s processing: %v", opID, err)
	}

	started := time.Now()
	verification, err := e.verify(ctx, sub)
	execMillis := time.Since(started).Milliseconds()

	if err != nil {
		if dbErr := e.db.FailOperationLog(&opID, execMillis, err); dbErr != nil {
			e.logger.Errorf("Failed to fail operation %s: %v", opID, dbErr)
		}
		if e.enableMonitor {
			monitor.VerificationErrCount.Inc()
		}
		return nil, err
	}

	outputRefs := []string{}
	if verification.ReportRef != "" {
		outputRefs = append(outputRefs, verification.ReportRef)
	}
	if dbErr := e.db.CompleteOperationLog(&opID, execMillis, outputRefs); dbErr != nil {
		e.logger.Errorf("Failed to complete operation %s: %v", opID, dbErr)
	}
	if e.enableMonitor {
		monitor.VerificationCount.Inc()
	}
	return verification, nil
}

func (e *Engine) verify(ctx context.Context, sub *model.Submission) (*model.Verification, error) {
	result := e.RunQualityChecks(sub)

	// Report publication is best effort. A storage outage must not block
	// the verification decision; the record simply carries no report ref.
	reportRef := ""
	if e.publisher != nil {
		ref, err := e.publisher.Publish(ctx, sub, result)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"error":         err,
				"submission_id": sub.SubmissionID,
			}).Error("Failed to publish quality report, continuing without reference")
		} else {
			reportRef = ref
		}
	}

	now := time.Now().UTC()
	verification := &model.Verification{
		SubmissionID: sub.SubmissionID,
		VerifiedBy:   e.verifiedBy,
		Approved:     result.Approved,
		OverallScore: result.OverallScore,
		Metrics:      result.Metrics,
		ReportRef:    reportRef,
		Issues:       result.Issues,
		VerifiedAt:   &now,
	}
	if err := e.db.CreateVerification(verification); err != nil {
		return nil, errors.Wrapf(err, "persist verification for submission %d", sub.SubmissionID)
	}
	if err := e.db.MarkSubmissionChecked(sub.SubmissionID, verification.ID); err != nil {
		return nil, errors.Wrapf(err, "mark submission %d checked", sub.SubmissionID)
	}

	e.logger.WithFields(logrus.Fields{
		"submission_id": sub.SubmissionID,
		"overall_score": result.OverallScore,
		"approved":      result.Approved,
		"issues":        len(result.Issues),
	}).Info("Quality verification recorded")
	return verification, nil
}

// meanScore is the unweighted rounded mean of all present metrics, 0 when
// none are present.
func meanScore(metrics model.MetricsMap) uint8 {
	if len(metrics) == 0 {
		return 0
	}
	var sum float64
	for _, v := range metrics {
		sum += v
	}
	return uint8(math.Round(sum / float64(len(metrics))))
}

func collectIssues(sub *model.Submission, metrics model.MetricsMap) model.IssueList {
	issues := model.IssueList{}
	for _, name := range sortedMetricNames(metrics) {
		score := metrics[name]
		switch {
		case score < 60:
			issues = append(issues, model.Issue{
				Severity:    "high",
				Category:    name,
				Description: describeLowScore(name, score),
			})
		case score < 75:
			issues = append(issues, model.Issue{
				Severity:    "medium",
				Category:    name,
				Description: describeLowScore(name, score),
			})
		}
	}
	// Oversized payloads are flagged no matter how well they score.
	if sub.FileSize > gib {
		issues = append(issues, model.Issue{
			Severity:    "medium",
			Category:    "fileSize",
			Description: "dataset exceeds 1 GiB, consider splitting or compressing",
			Location:    sub.DatasetRef,
		})
	}
	return issues
}

// sortedMetricNames fixes issue ordering; map iteration must not leak into
// a deterministic pipeline.
func sortedMetricNames(metrics model.MetricsMap) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func describeLowScore(name string, score float64) string {
	return fmt.Sprintf("%s scored %.0f, below acceptable range", name, score)
}

func summarize(result *CheckResult) Summary {
	critical := []string{"accuracy", "validity", "formatCompliance"}
	var sum float64
	var n int
	for _, name := range critical {
		if v, ok := result.Metrics[name]; ok {
			sum += v
			n++
		}
	}
	criticalScore := float64(result.OverallScore)
	if n > 0 {
		criticalScore = sum / float64(n)
	}

	// The summary status mirrors the submission status the decision leads
	// to on chain.
	status := model.SubmissionStatusRejected
	if result.Approved {
		status = model.SubmissionStatusApproved
	}
	return Summary{
		CriticalScore: criticalScore,
		Status:        status,
		IssueCount:    len(result.Issues),
	}
}
