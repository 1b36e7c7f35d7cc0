package event

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata-labs/marketplace-broker/common/config"
	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
)

var testContractAddr = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type fakeSync struct {
	requests    map[uint64]int
	submissions map[uint64]int
	failUntil   int
	calls       int
}

func newFakeSync() *fakeSync {
	return &fakeSync{requests: map[uint64]int{}, submissions: map[uint64]int{}}
}

func (f *fakeSync) SyncRequest(_ context.Context, id uint64) (*model.Request, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("transient ledger error")
	}
	f.requests[id]++
	return &model.Request{RequestID: id, Status: model.RequestStatusOpen}, nil
}

func (f *fakeSync) SyncSubmission(_ context.Context, id uint64) (*model.Submission, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("transient ledger error")
	}
	f.submissions[id]++
	return &model.Submission{SubmissionID: id, Status: model.SubmissionStatusPending}, nil
}

type fakeOps struct {
	ops []model.OperationLog
}

func (f *fakeOps) CreateOperationLog(op *model.OperationLog) error {
	f.ops = append(f.ops, *op)
	return nil
}

func testLogger(t *testing.T) log.Logger {
	logger, err := log.GetLogger(&config.LoggerConfig{Level: "info"})
	require.NoError(t, err)
	return logger
}

func testMarket(t *testing.T) *contract.DataMarketplace {
	market, err := contract.NewDataMarketplace(testContractAddr, nil)
	require.NoError(t, err)
	return market
}

func submissionVerifiedLog(t *testing.T, submissionID, requestID uint64) types.Log {
	parsed, err := abi.JSON(strings.NewReader(contract.DataMarketplaceABI))
	require.NoError(t, err)
	ev := parsed.Events["SubmissionVerified"]
	data, err := ev.Inputs.NonIndexed().Pack(true, uint8(88))
	require.NoError(t, err)
	return types.Log{
		Address: testContractAddr,
		Topics: []ethcommon.Hash{
			ev.ID,
			ethcommon.BigToHash(new(big.Int).SetUint64(submissionID)),
			ethcommon.BigToHash(new(big.Int).SetUint64(requestID)),
		},
		Data: data,
	}
}

func newTestIngestor(t *testing.T, sync *fakeSync, ops *fakeOps, handler Handler, maxRetries int) *Ingestor {
	return NewIngestor(nil, testMarket(t), sync, ops, handler, testLogger(t), maxRetries, time.Millisecond, false)
}

func TestProcessSyncsSubmissionThenRequest(t *testing.T) {
	sync := newFakeSync()
	var handledReq *model.Request
	var handledSub *model.Submission
	handler := func(_ context.Context, _ *MarketplaceEvent, req *model.Request, sub *model.Submission) {
		handledReq, handledSub = req, sub
	}
	i := newTestIngestor(t, sync, &fakeOps{}, handler, 0)

	ev := &MarketplaceEvent{Name: "SubmissionVerified", RequestID: 7, SubmissionID: 9}
	require.NoError(t, i.Process(context.Background(), ev))

	assert.Equal(t, 1, sync.submissions[9])
	assert.Equal(t, 1, sync.requests[7])
	require.NotNil(t, handledReq)
	require.NotNil(t, handledSub)
	assert.Equal(t, uint64(7), handledReq.RequestID)
	assert.Equal(t, uint64(9), handledSub.SubmissionID)
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	sync := newFakeSync()
	i := newTestIngestor(t, sync, &fakeOps{}, nil, 0)

	ev := &MarketplaceEvent{Name: "RequestCreated", RequestID: 7}
	require.NoError(t, i.Process(context.Background(), ev))
	require.NoError(t, i.Process(context.Background(), ev))

	// Redelivery re-reads canonical truth and upserts; nothing accumulates.
	assert.Equal(t, 2, sync.requests[7])
	assert.Len(t, sync.requests, 1)
}

func TestDecodeKnownEvent(t *testing.T) {
	i := newTestIngestor(t, newFakeSync(), &fakeOps{}, nil, 0)

	ev, err := i.decode(submissionVerifiedLog(t, 9, 7))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "SubmissionVerified", ev.Name)
	assert.Equal(t, uint64(9), ev.SubmissionID)
	assert.Equal(t, uint64(7), ev.RequestID)
}

func TestDecodeIgnoresForeignLog(t *testing.T) {
	i := newTestIngestor(t, newFakeSync(), &fakeOps{}, nil, 0)

	ev, err := i.decode(types.Log{Topics: []ethcommon.Hash{ethcommon.HexToHash("0xdeadbeef")}})
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	sync := newFakeSync()
	sync.failUntil = 2
	i := newTestIngestor(t, sync, &fakeOps{}, nil, 3)

	ev := &MarketplaceEvent{Name: "RequestCreated", RequestID: 7}
	require.NoError(t, i.processWithRetry(context.Background(), ev))
	assert.Equal(t, 1, sync.requests[7])
}

func TestExhaustedRetryBudgetRecordsDurableFailure(t *testing.T) {
	sync := newFakeSync()
	sync.failUntil = 1000
	ops := &fakeOps{}
	i := newTestIngestor(t, sync, ops, nil, 2)

	lg := submissionVerifiedLog(t, 9, 7)
	i.handleLog(context.Background(), lg)

	require.Len(t, ops.ops, 1)
	assert.Equal(t, "eventSync:SubmissionVerified", ops.ops[0].Kind)
	assert.Equal(t, model.OperationStatusFailed, ops.ops[0].Status)
	assert.Equal(t, uint64(9), ops.ops[0].SubmissionID)
	assert.NotEmpty(t, ops.ops[0].Error)
}

func TestHandleLogSkipsUnparsableMarketplaceLog(t *testing.T) {
	sync := newFakeSync()
	ops := &fakeOps{}
	i := newTestIngestor(t, sync, ops, nil, 0)

	// Right event topic, truncated payload: skipped, not a durable failure.
	lg := submissionVerifiedLog(t, 9, 7)
	lg.Topics = lg.Topics[:1]
	i.handleLog(context.Background(), lg)

	assert.Empty(t, sync.requests)
	assert.Empty(t, sync.submissions)
	assert.Empty(t, ops.ops)
}
