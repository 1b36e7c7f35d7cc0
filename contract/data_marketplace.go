package contract

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// DataMarketplaceABI is the contract interface the broker depends on. Kept
// as a literal so the binding carries no codegen step; the shapes below must
// stay in lockstep with the deployed contract.
const DataMarketplaceABI = `[
  {"type":"function","name":"request","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[
    {"name":"id","type":"uint256"},
    {"name":"buyer","type":"address"},
    {"name":"description","type":"string"},
    {"name":"budget","type":"uint256"},
    {"name":"formatsMask","type":"uint8"},
    {"name":"status","type":"uint8"},
    {"name":"qualityScore","type":"uint8"},
    {"name":"reportRef","type":"string"},
    {"name":"finalizedSubmissionId","type":"uint256"},
    {"name":"createdAt","type":"uint256"}]}]},
  {"type":"function","name":"submission","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[
    {"name":"id","type":"uint256"},
    {"name":"requestId","type":"uint256"},
    {"name":"seller","type":"address"},
    {"name":"model","type":"address"},
    {"name":"format","type":"uint8"},
    {"name":"fileSize","type":"uint256"},
    {"name":"sampleCount","type":"uint256"},
    {"name":"fileExtensions","type":"string"},
    {"name":"datasetRef","type":"string"},
    {"name":"status","type":"uint8"},
    {"name":"qualityChecked","type":"bool"},
    {"name":"submittedAt","type":"uint256"}]}]},
  {"type":"function","name":"getBuyerRequests","stateMutability":"view","inputs":[{"name":"buyer","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getSellerSubmissions","stateMutability":"view","inputs":[{"name":"seller","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"createRequest","stateMutability":"payable","inputs":[{"name":"formatsMask","type":"uint8"},{"name":"description","type":"string"}],"outputs":[]},
  {"type":"function","name":"submitDataset","stateMutability":"nonpayable","inputs":[{"name":"requestId","type":"uint256"},{"name":"model","type":"address"},{"name":"format","type":"uint8"},{"name":"fileSize","type":"uint256"},{"name":"sampleCount","type":"uint256"},{"name":"fileExtensions","type":"string"},{"name":"datasetRef","type":"string"}],"outputs":[]},
  {"type":"function","name":"verifySubmission","stateMutability":"nonpayable","inputs":[{"name":"submissionId","type":"uint256"},{"name":"approved","type":"bool"},{"name":"score","type":"uint8"},{"name":"reportRef","type":"string"}],"outputs":[]},
  {"type":"function","name":"cancelRequest","stateMutability":"nonpayable","inputs":[{"name":"requestId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"RequestCreated","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"formatsMask","type":"uint8","indexed":false},{"name":"budget","type":"uint256","indexed":false}]},
  {"type":"event","name":"SubmissionSubmitted","anonymous":false,"inputs":[{"name":"submissionId","type":"uint256","indexed":true},{"name":"requestId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true}]},
  {"type":"event","name":"SubmissionVerified","anonymous":false,"inputs":[{"name":"submissionId","type":"uint256","indexed":true},{"name":"requestId","type":"uint256","indexed":true},{"name":"approved","type":"bool","indexed":false},{"name":"score","type":"uint8","indexed":false}]},
  {"type":"event","name":"PaymentReleased","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"submissionId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"RefundIssued","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"submissionId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// LedgerRequest mirrors the contract's request tuple.
type LedgerRequest struct {
	Id                    *big.Int
	Buyer                 common.Address
	Description           string
	Budget                *big.Int
	FormatsMask           uint8
	Status                uint8
	QualityScore          uint8
	ReportRef             string
	FinalizedSubmissionId *big.Int
	CreatedAt             *big.Int
}

// LedgerSubmission mirrors the contract's submission tuple.
type LedgerSubmission struct {
	Id             *big.Int
	RequestId      *big.Int
	Seller         common.Address
	Model          common.Address
	Format         uint8
	FileSize       *big.Int
	SampleCount    *big.Int
	FileExtensions string
	DatasetRef     string
	Status         uint8
	QualityChecked bool
	SubmittedAt    *big.Int
}

type RequestCreatedEvent struct {
	RequestId   *big.Int
	Buyer       common.Address
	FormatsMask uint8
	Budget      *big.Int
	Raw         types.Log
}

type SubmissionSubmittedEvent struct {
	SubmissionId *big.Int
	RequestId    *big.Int
	Seller       common.Address
	Raw          types.Log
}

type SubmissionVerifiedEvent struct {
	SubmissionId *big.Int
	RequestId    *big.Int
	Approved     bool
	Score        uint8
	Raw          types.Log
}

type PaymentReleasedEvent struct {
	RequestId    *big.Int
	SubmissionId *big.Int
	Seller       common.Address
	Amount       *big.Int
	Raw          types.Log
}

type RefundIssuedEvent struct {
	RequestId    *big.Int
	SubmissionId *big.Int
	Buyer        common.Address
	Amount       *big.Int
	Raw          types.Log
}

// DataMarketplace wraps the deployed marketplace contract.
type DataMarketplace struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

func NewDataMarketplace(address common.Address, backend bind.ContractBackend) (*DataMarketplace, error) {
	parsed, err := abi.JSON(strings.NewReader(DataMarketplaceABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse marketplace abi")
	}
	return &DataMarketplace{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (m *DataMarketplace) Address() common.Address {
	return m.address
}

// EventID returns the topic hash for a named event, zero hash if unknown.
func (m *DataMarketplace) EventID(name string) common.Hash {
	return m.abi.Events[name].ID
}

func (m *DataMarketplace) Request(opts *bind.CallOpts, id *big.Int) (LedgerRequest, error) {
	var out []interface{}
	if err := m.bound.Call(opts, &out, "request", id); err != nil {
		return LedgerRequest{}, err
	}
	return *abi.ConvertType(out[0], new(LedgerRequest)).(*LedgerRequest), nil
}

func (m *DataMarketplace) Submission(opts *bind.CallOpts, id *big.Int) (LedgerSubmission, error) {
	var out []interface{}
	if err := m.bound.Call(opts, &out, "submission", id); err != nil {
		return LedgerSubmission{}, err
	}
	return *abi.ConvertType(out[0], new(LedgerSubmission)).(*LedgerSubmission), nil
}

func (m *DataMarketplace) GetBuyerRequests(opts *bind.CallOpts, buyer common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := m.bound.Call(opts, &out, "getBuyerRequests", buyer); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (m *DataMarketplace) GetSellerSubmissions(opts *bind.CallOpts, seller common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := m.bound.Call(opts, &out, "getSellerSubmissions", seller); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (m *DataMarketplace) CreateRequest(opts *bind.TransactOpts, formatsMask uint8, description string) (*types.Transaction, error) {
	return m.bound.Transact(opts, "createRequest", formatsMask, description)
}

func (m *DataMarketplace) SubmitDataset(opts *bind.TransactOpts, requestId *big.Int, model common.Address, format uint8, fileSize, sampleCount *big.Int, fileExtensions, datasetRef string) (*types.Transaction, error) {
	return m.bound.Transact(opts, "submitDataset", requestId, model, format, fileSize, sampleCount, fileExtensions, datasetRef)
}

func (m *DataMarketplace) VerifySubmission(opts *bind.TransactOpts, submissionId *big.Int, approved bool, score uint8, reportRef string) (*types.Transaction, error) {
	return m.bound.Transact(opts, "verifySubmission", submissionId, approved, score, reportRef)
}

func (m *DataMarketplace) CancelRequest(opts *bind.TransactOpts, requestId *big.Int) (*types.Transaction, error) {
	return m.bound.Transact(opts, "cancelRequest", requestId)
}

func (m *DataMarketplace) ParseRequestCreated(log types.Log) (*RequestCreatedEvent, error) {
	ev := new(RequestCreatedEvent)
	if err := m.bound.UnpackLog(ev, "RequestCreated", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

func (m *DataMarketplace) ParseSubmissionSubmitted(log types.Log) (*SubmissionSubmittedEvent, error) {
	ev := new(SubmissionSubmittedEvent)
	if err := m.bound.UnpackLog(ev, "SubmissionSubmitted", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

func (m *DataMarketplace) ParseSubmissionVerified(log types.Log) (*SubmissionVerifiedEvent, error) {
	ev := new(SubmissionVerifiedEvent)
	if err := m.bound.UnpackLog(ev, "SubmissionVerified", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

func (m *DataMarketplace) ParsePaymentReleased(log types.Log) (*PaymentReleasedEvent, error) {
	ev := new(PaymentReleasedEvent)
	if err := m.bound.UnpackLog(ev, "PaymentReleased", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

func (m *DataMarketplace) ParseRefundIssued(log types.Log) (*RefundIssuedEvent, error) {
	ev := new(RefundIssuedEvent)
	if err := m.bound.UnpackLog(ev, "RefundIssued", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}
