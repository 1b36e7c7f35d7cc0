package quality

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/model"
)

// ReportPublisher renders a quality run into a durable report and returns
// its reference.
type ReportPublisher interface {
	Publish(ctx context.Context, sub *model.Submission, result *CheckResult) (string, error)
}

// ContentStore is the content-addressed surface reports are published to.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Pin(ctx context.Context, ref string) error
}

// Report is the serialized form stored under the report reference.
type Report struct {
	SubmissionID uint64           `json:"submissionId"`
	RequestID    uint64           `json:"requestId"`
	Format       string           `json:"format"`
	Metrics      model.MetricsMap `json:"metrics"`
	OverallScore uint8            `json:"overallScore"`
	Approved     bool             `json:"approved"`
	Issues       model.IssueList  `json:"issues"`
	Summary      Summary          `json:"summary"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

// CASPublisher writes reports to content-addressed storage and pins them.
// Recently published reports are served from an in-process cache so the API
// layer does not round-trip to the store for the common read-after-write.
type CASPublisher struct {
	cas    ContentStore
	cache  *gocache.Cache
	logger log.Logger
}

func NewCASPublisher(cas ContentStore, logger log.Logger) *CASPublisher {
	return &CASPublisher{
		cas:    cas,
		cache:  gocache.New(10*time.Minute, 30*time.Minute),
		logger: logger,
	}
}

func (p *CASPublisher) Publish(ctx context.Context, sub *model.Submission, result *CheckResult) (string, error) {
	report := Report{
		SubmissionID: sub.SubmissionID,
		RequestID:    sub.RequestID,
		Format:       sub.Format,
		Metrics:      result.Metrics,
		OverallScore: result.OverallScore,
		Approved:     result.Approved,
		Issues:       result.Issues,
		Summary:      result.Summary,
		GeneratedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", errors.Wrap(err, "marshal quality report")
	}

	ref, err := p.cas.Put(ctx, data)
	if err != nil {
		return "", errors.Wrap(err, "store quality report")
	}
	// An unpinned report may be garbage collected, which only costs a
	// re-generation. Not worth failing the pipeline over.
	if err := p.cas.Pin(ctx, ref); err != nil {
		p.logger.WithFields(logrus.Fields{"error": err, "ref": ref}).Warn("Failed to pin quality report")
	}

	p.cache.Set(ref, data, gocache.DefaultExpiration)
	return ref, nil
}

// GetReport fetches a published report, preferring the local cache.
func (p *CASPublisher) GetReport(ctx context.Context, ref string) ([]byte, error) {
	if cached, ok := p.cache.Get(ref); ok {
		return cached.([]byte), nil
	}
	data, err := p.cas.Get(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch quality report %s", ref)
	}
	p.cache.Set(ref, data, gocache.DefaultExpiration)
	return data, nil
}
