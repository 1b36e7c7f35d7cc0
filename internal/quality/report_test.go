package quality

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/model"
)

type fakeCAS struct {
	objects map[string][]byte
	pinned  map[string]bool
	pinErr  error
	gets    int
}

func newFakeCAS() *fakeCAS {
	return &fakeCAS{objects: map[string][]byte{}, pinned: map[string]bool{}}
}

func (f *fakeCAS) Put(_ context.Context, data []byte) (string, error) {
	ref := "Qm" + string(rune('a'+len(f.objects)))
	f.objects[ref] = data
	return ref, nil
}

func (f *fakeCAS) Get(_ context.Context, ref string) ([]byte, error) {
	f.gets++
	data, ok := f.objects[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeCAS) Pin(_ context.Context, ref string) error {
	if f.pinErr != nil {
		return f.pinErr
	}
	f.pinned[ref] = true
	return nil
}

func TestPublishStoresAndPinsReport(t *testing.T) {
	cas := newFakeCAS()
	p := NewCASPublisher(cas, testLogger(t))

	sub := csvSubmission()
	result := testEngine(t, newFakeStore(), 70).RunQualityChecks(sub)

	ref, err := p.Publish(context.Background(), sub, result)
	require.NoError(t, err)
	assert.True(t, cas.pinned[ref])

	var report Report
	require.NoError(t, json.Unmarshal(cas.objects[ref], &report))
	assert.Equal(t, sub.SubmissionID, report.SubmissionID)
	assert.Equal(t, uint8(88), report.OverallScore)
	assert.True(t, report.Approved)
}

func TestPublishSurvivesPinFailure(t *testing.T) {
	cas := newFakeCAS()
	cas.pinErr = errors.New("pin service down")
	p := NewCASPublisher(cas, testLogger(t))

	sub := csvSubmission()
	result := testEngine(t, newFakeStore(), 70).RunQualityChecks(sub)

	ref, err := p.Publish(context.Background(), sub, result)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestGetReportServesFromCacheAfterPublish(t *testing.T) {
	cas := newFakeCAS()
	p := NewCASPublisher(cas, testLogger(t))

	sub := csvSubmission()
	result := testEngine(t, newFakeStore(), 70).RunQualityChecks(sub)
	ref, err := p.Publish(context.Background(), sub, result)
	require.NoError(t, err)

	data, err := p.GetReport(context.Background(), ref)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Zero(t, cas.gets, "read-after-write hits the cache")
}

func TestVerifyContinuesWithoutReportOnStorageFailure(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, failingPublisher{}, testLogger(t), "0xverifier", 70, false)

	v, err := engine.Verify(context.Background(), csvSubmission())
	require.NoError(t, err)
	assert.Empty(t, v.ReportRef, "decision recorded without a report reference")
	require.Len(t, store.verifications, 1)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *model.Submission, *CheckResult) (string, error) {
	return "", errors.New("storage outage")
}
