package synchronizer

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata-labs/marketplace-broker/common/config"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
)

type fakeLedger struct {
	requests    map[uint64]contract.LedgerRequest
	submissions map[uint64]contract.LedgerSubmission
	readCount   int
}

func (f *fakeLedger) GetRequest(_ context.Context, id uint64) (contract.LedgerRequest, error) {
	f.readCount++
	req, ok := f.requests[id]
	if !ok {
		return contract.LedgerRequest{}, contract.ErrNotFound
	}
	return req, nil
}

func (f *fakeLedger) GetSubmission(_ context.Context, id uint64) (contract.LedgerSubmission, error) {
	f.readCount++
	sub, ok := f.submissions[id]
	if !ok {
		return contract.LedgerSubmission{}, contract.ErrNotFound
	}
	return sub, nil
}

type fakeStore struct {
	requests    map[uint64]model.Request
	submissions map[uint64]model.Submission
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:    map[uint64]model.Request{},
		submissions: map[uint64]model.Submission{},
	}
}

func (f *fakeStore) UpsertRequest(req *model.Request) error {
	f.requests[req.RequestID] = *req
	return nil
}

func (f *fakeStore) UpsertSubmission(sub *model.Submission) error {
	f.submissions[sub.SubmissionID] = *sub
	return nil
}

func testLogger(t *testing.T) log.Logger {
	logger, err := log.GetLogger(&config.LoggerConfig{Level: "info"})
	require.NoError(t, err)
	return logger
}

func ledgerRequest(id uint64) contract.LedgerRequest {
	return contract.LedgerRequest{
		Id:                    new(big.Int).SetUint64(id),
		Buyer:                 ethcommon.HexToAddress("0x1111111111111111111111111111111111111111"),
		Description:           "tabular weather data",
		Budget:                big.NewInt(1_000_000),
		FormatsMask:           0b000011,
		Status:                0,
		FinalizedSubmissionId: big.NewInt(0),
		CreatedAt:             big.NewInt(1700000000),
	}
}

func ledgerSubmission(id, requestID uint64) contract.LedgerSubmission {
	return contract.LedgerSubmission{
		Id:             new(big.Int).SetUint64(id),
		RequestId:      new(big.Int).SetUint64(requestID),
		Seller:         ethcommon.HexToAddress("0x2222222222222222222222222222222222222222"),
		Model:          ethcommon.HexToAddress("0x3333333333333333333333333333333333333333"),
		Format:         0,
		FileSize:       big.NewInt(2048),
		SampleCount:    big.NewInt(500),
		FileExtensions: "csv, csv",
		DatasetRef:     "0xroothash",
		Status:         0,
		SubmittedAt:    big.NewInt(1700000100),
	}
}

func TestSyncRequestDecodesCanonicalState(t *testing.T) {
	ledger := &fakeLedger{requests: map[uint64]contract.LedgerRequest{7: ledgerRequest(7)}}
	store := newFakeStore()
	s := New(ledger, store, testLogger(t))

	req, err := s.SyncRequest(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), req.RequestID)
	assert.Equal(t, "OPEN", req.Status)
	assert.Equal(t, uint8(0b000011), req.FormatsMask)
	assert.Equal(t, model.StringSlice{"CSV", "JSON"}, req.AcceptedFormats)
	assert.Equal(t, "1000000", req.Budget)
	assert.Nil(t, req.QualityScore)
	assert.Nil(t, req.FinalizedSubmissionID)
	assert.Contains(t, store.requests, uint64(7))
}

func TestSyncRequestIdempotent(t *testing.T) {
	ledger := &fakeLedger{requests: map[uint64]contract.LedgerRequest{7: ledgerRequest(7)}}
	store := newFakeStore()
	s := New(ledger, store, testLogger(t))

	first, err := s.SyncRequest(context.Background(), 7)
	require.NoError(t, err)
	second, err := s.SyncRequest(context.Background(), 7)
	require.NoError(t, err)

	// Timestamps aside, consecutive syncs with no canonical change are
	// byte-identical.
	first.UpdatedAt, second.UpdatedAt = nil, nil
	assert.Equal(t, first, second)
	assert.Len(t, store.requests, 1)
}

func TestSyncSubmissionDecodesCanonicalState(t *testing.T) {
	ledger := &fakeLedger{submissions: map[uint64]contract.LedgerSubmission{3: ledgerSubmission(3, 7)}}
	store := newFakeStore()
	s := New(ledger, store, testLogger(t))

	sub, err := s.SyncSubmission(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), sub.SubmissionID)
	assert.Equal(t, uint64(7), sub.RequestID)
	assert.Equal(t, "CSV", sub.Format)
	assert.Equal(t, "PENDING", sub.Status)
	assert.Equal(t, model.StringSlice{"csv", "csv"}, sub.FileExtensions)
}

func TestSyncSubmissionNotFound(t *testing.T) {
	ledger := &fakeLedger{submissions: map[uint64]contract.LedgerSubmission{}}
	store := newFakeStore()
	s := New(ledger, store, testLogger(t))

	_, err := s.SyncSubmission(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrNotFound)
	assert.Empty(t, store.submissions)
}

func TestSyncOrderingIndependence(t *testing.T) {
	// A verified submission arriving before the mirror ever saw the
	// original submit converges to the same state as the in-order path.
	verified := ledgerSubmission(3, 7)
	verified.Status = 1
	verified.QualityChecked = true

	ledger := &fakeLedger{submissions: map[uint64]contract.LedgerSubmission{3: verified}}
	outOfOrder := newFakeStore()
	s := New(ledger, outOfOrder, testLogger(t))

	_, err := s.SyncSubmission(context.Background(), 3)
	require.NoError(t, err)

	inOrder := newFakeStore()
	s2 := New(ledger, inOrder, testLogger(t))
	_, err = s2.SyncSubmission(context.Background(), 3)
	require.NoError(t, err)
	_, err = s2.SyncSubmission(context.Background(), 3)
	require.NoError(t, err)

	got := outOfOrder.submissions[3]
	want := inOrder.submissions[3]
	got.UpdatedAt, want.UpdatedAt = nil, nil
	assert.Equal(t, want, got)
	assert.Equal(t, "APPROVED", got.Status)
	assert.True(t, got.QualityChecked)
}

func TestSyncRequestRejectsCorruptMask(t *testing.T) {
	bad := ledgerRequest(8)
	bad.FormatsMask = 0

	ledger := &fakeLedger{requests: map[uint64]contract.LedgerRequest{8: bad}}
	store := newFakeStore()
	s := New(ledger, store, testLogger(t))

	_, err := s.SyncRequest(context.Background(), 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvalidFormatsMask)
	assert.Empty(t, store.requests)
}
