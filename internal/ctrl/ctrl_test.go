package ctrl

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridata-labs/marketplace-broker/common/config"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/model"
)

var (
	testContractAddr = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testBuyer        = ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	testSeller       = ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeLedger struct {
	t *testing.T

	createCalls int
	submitCalls int
	verifyCalls int
	cancelCalls int

	receipt    *types.Receipt
	waitErr    error
	checkedTxs []string
}

func (f *fakeLedger) newTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: 1, To: &testContractAddr, Gas: 21000, GasPrice: big.NewInt(1), Value: big.NewInt(0)})
}

func (f *fakeLedger) CreateRequest(_ context.Context, _ uint8, _ string, _ *big.Int) (*types.Transaction, error) {
	f.createCalls++
	return f.newTx(), nil
}

func (f *fakeLedger) SubmitDataset(_ context.Context, _ uint64, _ string, _ contract.Format, _, _ uint64, _, _ string) (*types.Transaction, error) {
	f.submitCalls++
	return f.newTx(), nil
}

func (f *fakeLedger) VerifySubmission(_ context.Context, _ uint64, _ bool, _ uint8, _ string) (*types.Transaction, error) {
	f.verifyCalls++
	return f.newTx(), nil
}

func (f *fakeLedger) CancelRequest(_ context.Context, _ uint64) (*types.Transaction, error) {
	f.cancelCalls++
	return f.newTx(), nil
}

func (f *fakeLedger) WaitForReceipt(_ context.Context, _ ethcommon.Hash) (*types.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.receipt, nil
}

func (f *fakeLedger) CheckReceipt(_ context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	f.checkedTxs = append(f.checkedTxs, txHash.Hex())
	return f.receipt, nil
}

func (f *fakeLedger) GetBuyerRequests(_ context.Context, _ string) ([]uint64, error) {
	return []uint64{1, 2}, nil
}

func (f *fakeLedger) GetSellerSubmissions(_ context.Context, _ string) ([]uint64, error) {
	return []uint64{3}, nil
}

type fakeSync struct {
	syncedRequests    []uint64
	syncedSubmissions []uint64
}

func (f *fakeSync) SyncRequest(_ context.Context, id uint64) (*model.Request, error) {
	f.syncedRequests = append(f.syncedRequests, id)
	return &model.Request{RequestID: id}, nil
}

func (f *fakeSync) SyncSubmission(_ context.Context, id uint64) (*model.Submission, error) {
	f.syncedSubmissions = append(f.syncedSubmissions, id)
	return &model.Submission{SubmissionID: id}, nil
}

type fakeStore struct {
	createTxHashes   map[uint64]string
	finalizeTxHashes map[uint64]string
	pending          []model.PendingTransaction
	pendingStatus    map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		createTxHashes:   map[uint64]string{},
		finalizeTxHashes: map[uint64]string{},
		pendingStatus:    map[string]string{},
	}
}

func (f *fakeStore) GetRequest(id uint64) (model.Request, error) {
	return model.Request{RequestID: id}, nil
}

func (f *fakeStore) GetSubmission(id uint64) (model.Submission, error) {
	return model.Submission{SubmissionID: id}, nil
}

func (f *fakeStore) ListRequest(_ *model.RequestListOptions) ([]model.Request, error) {
	return nil, nil
}

func (f *fakeStore) ListSubmission(_ *model.SubmissionListOptions) ([]model.Submission, error) {
	return nil, nil
}

func (f *fakeStore) GetVerificationBySubmission(submissionID uint64) (model.Verification, error) {
	return model.Verification{SubmissionID: submissionID}, nil
}

func (f *fakeStore) SetRequestCreateTxHash(id uint64, txHash string) error {
	f.createTxHashes[id] = txHash
	return nil
}

func (f *fakeStore) SetRequestFinalizeTxHash(id uint64, txHash string) error {
	f.finalizeTxHashes[id] = txHash
	return nil
}

func (f *fakeStore) TrackPendingTransaction(tx *model.PendingTransaction) error {
	f.pending = append(f.pending, *tx)
	return nil
}

func (f *fakeStore) ListWaitingTransactions() ([]model.PendingTransaction, error) {
	return f.pending, nil
}

func (f *fakeStore) UpdatePendingTransactionStatus(txHash, status string) error {
	f.pendingStatus[txHash] = status
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

func marketABI(t *testing.T) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(contract.DataMarketplaceABI))
	require.NoError(t, err)
	return parsed
}

func requestCreatedLog(t *testing.T, requestID uint64) *types.Log {
	parsed := marketABI(t)
	ev := parsed.Events["RequestCreated"]
	data, err := ev.Inputs.NonIndexed().Pack(uint8(3), big.NewInt(1000))
	require.NoError(t, err)
	return &types.Log{
		Address: testContractAddr,
		Topics: []ethcommon.Hash{
			ev.ID,
			ethcommon.BigToHash(new(big.Int).SetUint64(requestID)),
			ethcommon.BytesToHash(ethcommon.LeftPadBytes(testBuyer.Bytes(), 32)),
		},
		Data: data,
	}
}

func submissionSubmittedLog(t *testing.T, submissionID, requestID uint64) *types.Log {
	parsed := marketABI(t)
	ev := parsed.Events["SubmissionSubmitted"]
	return &types.Log{
		Address: testContractAddr,
		Topics: []ethcommon.Hash{
			ev.ID,
			ethcommon.BigToHash(new(big.Int).SetUint64(submissionID)),
			ethcommon.BigToHash(new(big.Int).SetUint64(requestID)),
			ethcommon.BytesToHash(ethcommon.LeftPadBytes(testSeller.Bytes(), 32)),
		},
	}
}

func paymentReleasedLog(t *testing.T, requestID, submissionID uint64) *types.Log {
	parsed := marketABI(t)
	ev := parsed.Events["PaymentReleased"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(1000))
	require.NoError(t, err)
	return &types.Log{
		Address: testContractAddr,
		Topics: []ethcommon.Hash{
			ev.ID,
			ethcommon.BigToHash(new(big.Int).SetUint64(requestID)),
			ethcommon.BigToHash(new(big.Int).SetUint64(submissionID)),
			ethcommon.BytesToHash(ethcommon.LeftPadBytes(testSeller.Bytes(), 32)),
		},
		Data: data,
	}
}

func unparsableLog() *types.Log {
	return &types.Log{
		Address: testContractAddr,
		Topics:  []ethcommon.Hash{ethcommon.HexToHash("0xdeadbeef")},
		Data:    []byte{0x01},
	}
}

func newTestCtrl(t *testing.T, ledger *fakeLedger, sync *fakeSync, store *fakeStore) *Ctrl {
	return New(ledger, testMarket(t), sync, store, testLogger(t), false)
}

func TestCreateRequestRejectsZeroMaskBeforeLedgerCall(t *testing.T) {
	ledger := &fakeLedger{t: t}
	c := newTestCtrl(t, ledger, &fakeSync{}, newFakeStore())

	_, err := c.CreateRequest(context.Background(), 0, "desc", "100")
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrInvalidFormatsMask)
	assert.Zero(t, ledger.createCalls, "ledger must not be touched for invalid input")
}

func TestCreateRequestExtractsIDFromReceipt(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{unparsableLog(), requestCreatedLog(t, 42)},
	}
	sync := &fakeSync{}
	store := newFakeStore()
	c := newTestCtrl(t, ledger, sync, store)

	result, err := c.CreateRequest(context.Background(), 3, "weather data", "1000")
	require.NoError(t, err)

	assert.Equal(t, uint64(42), result.ID)
	assert.Equal(t, []uint64{42}, sync.syncedRequests)
	assert.Equal(t, result.TxHash, store.createTxHashes[42])
}

func TestCreateRequestEventNotFound(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{unparsableLog()},
	}
	sync := &fakeSync{}
	c := newTestCtrl(t, ledger, sync, newFakeStore())

	_, err := c.CreateRequest(context.Background(), 3, "weather data", "1000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Empty(t, sync.syncedRequests, "no mirror write on failure")
	assert.Equal(t, 1, ledger.createCalls, "confirmed-but-eventless is not retried")
}

func TestSubmitDatasetRejectsUnknownFormat(t *testing.T) {
	ledger := &fakeLedger{t: t}
	c := newTestCtrl(t, ledger, &fakeSync{}, newFakeStore())

	_, err := c.SubmitDataset(context.Background(), &SubmitDatasetParams{
		RequestID:    7,
		ModelAddress: testSeller.Hex(),
		Format:       "XML",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrUnknownFormat)
	assert.Zero(t, ledger.submitCalls)
}

func TestSubmitDatasetExtractsSubmissionID(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{submissionSubmittedLog(t, 9, 7)},
	}
	sync := &fakeSync{}
	c := newTestCtrl(t, ledger, sync, newFakeStore())

	result, err := c.SubmitDataset(context.Background(), &SubmitDatasetParams{
		RequestID:      7,
		ModelAddress:   testSeller.Hex(),
		Format:         "CSV",
		FileSize:       2048,
		SampleCount:    500,
		FileExtensions: []string{"csv"},
		DatasetRef:     "0xroothash",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), result.ID)
	assert.Equal(t, []uint64{9}, sync.syncedSubmissions)
}

func TestVerifySubmissionSyncsParentOnFinalize(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{paymentReleasedLog(t, 7, 9)},
	}
	sync := &fakeSync{}
	store := newFakeStore()
	c := newTestCtrl(t, ledger, sync, store)

	txHash, err := c.VerifySubmission(context.Background(), 9, true, 88, "QmReport")
	require.NoError(t, err)

	assert.Equal(t, []uint64{9}, sync.syncedSubmissions)
	assert.Equal(t, []uint64{7}, sync.syncedRequests)
	assert.Equal(t, txHash, store.finalizeTxHashes[7])
}

func TestVerifySubmissionWithoutFinalizeSkipsParent(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful}
	sync := &fakeSync{}
	store := newFakeStore()
	c := newTestCtrl(t, ledger, sync, store)

	_, err := c.VerifySubmission(context.Background(), 9, false, 40, "")
	require.NoError(t, err)

	assert.Equal(t, []uint64{9}, sync.syncedSubmissions)
	assert.Empty(t, sync.syncedRequests)
	assert.Empty(t, store.finalizeTxHashes)
}

func TestReceiptTimeoutTracksPendingTransaction(t *testing.T) {
	ledger := &fakeLedger{t: t, waitErr: contract.ErrReceiptTimeout}
	sync := &fakeSync{}
	store := newFakeStore()
	c := newTestCtrl(t, ledger, sync, store)

	_, err := c.CancelRequest(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrReceiptTimeout)

	require.Len(t, store.pending, 1)
	assert.Equal(t, "cancelRequest", store.pending[0].Call)
	assert.Equal(t, uint64(7), store.pending[0].EntityID)
	assert.Equal(t, model.PendingTxStatusWaiting, store.pending[0].Status)
	assert.Empty(t, sync.syncedRequests)
}

func TestReconcilerConfirmsMinedTransaction(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{paymentReleasedLog(t, 7, 9)},
	}
	sync := &fakeSync{}
	store := newFakeStore()
	store.pending = []model.PendingTransaction{{
		TxHash:   "0xabc",
		Call:     "verifySubmission",
		EntityID: 9,
		Status:   model.PendingTxStatusWaiting,
	}}
	c := newTestCtrl(t, ledger, sync, store)

	r := NewReconciler(c, 1)
	r.reconcileOnce(context.Background())

	assert.Equal(t, []uint64{9}, sync.syncedSubmissions)
	assert.Equal(t, []uint64{7}, sync.syncedRequests)
	assert.Equal(t, model.PendingTxStatusConfirmed, store.pendingStatus["0xabc"])
}

func TestReconcilerMarksRevertedTransaction(t *testing.T) {
	ledger := &fakeLedger{t: t}
	ledger.receipt = &types.Receipt{Status: types.ReceiptStatusFailed}
	sync := &fakeSync{}
	store := newFakeStore()
	store.pending = []model.PendingTransaction{{
		TxHash:   "0xdef",
		Call:     "cancelRequest",
		EntityID: 7,
		Status:   model.PendingTxStatusWaiting,
	}}
	c := newTestCtrl(t, ledger, sync, store)

	r := NewReconciler(c, 1)
	r.reconcileOnce(context.Background())

	assert.Equal(t, model.PendingTxStatusReverted, store.pendingStatus["0xdef"])
	assert.Empty(t, sync.syncedRequests)
	assert.Empty(t, sync.syncedSubmissions)
}

func TestSyncBuyerRequests(t *testing.T) {
	ledger := &fakeLedger{t: t}
	sync := &fakeSync{}
	c := newTestCtrl(t, ledger, sync, newFakeStore())

	n, err := c.SyncBuyerRequests(context.Background(), testBuyer.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint64{1, 2}, sync.syncedRequests)
}
