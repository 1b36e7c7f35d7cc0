// Package marketcontract wraps the marketplace binding with the guard rails
// the rest of the broker relies on: initialization checks, zero-id absence
// detection and signer-gated writes.
package marketcontract

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/config"
	"github.com/veridata-labs/marketplace-broker/contract"
)

type LedgerClient struct {
	client *contract.EthereumClient
	market *contract.DataMarketplace
	conf   *config.Ledger
	logger log.Logger

	initialized bool
}

func NewLedgerClient(conf *config.Config, logger log.Logger) (*LedgerClient, error) {
	if conf.Ledger.ContractAddress == "" {
		return nil, errors.New("marketplace contract address not configured")
	}

	client, err := contract.NewEthereumClient(&conf.Ledger, conf.GasPrice, conf.MaxGasPrice)
	if err != nil {
		return nil, err
	}

	market, err := contract.NewDataMarketplace(ethcommon.HexToAddress(conf.Ledger.ContractAddress), client.Client)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &LedgerClient{
		client:      client,
		market:      market,
		conf:        &conf.Ledger,
		logger:      logger,
		initialized: true,
	}, nil
}

func (c *LedgerClient) ensureInitialized() error {
	if c == nil || !c.initialized {
		return contract.ErrNotInitialized
	}
	return nil
}

func (c *LedgerClient) Market() *contract.DataMarketplace {
	return c.market
}

func (c *LedgerClient) Client() *contract.EthereumClient {
	return c.client
}

func (c *LedgerClient) HasSigner() bool {
	return c.client.HasSigner()
}

func (c *LedgerClient) SignerAddress() string {
	return c.client.SignerAddress().Hex()
}

// GetRequest performs a canonical read. The contract returns a zeroed tuple
// for unknown ids; that sentinel becomes ErrNotFound, never an empty record.
func (c *LedgerClient) GetRequest(ctx context.Context, id uint64) (contract.LedgerRequest, error) {
	if err := c.ensureInitialized(); err != nil {
		return contract.LedgerRequest{}, err
	}
	req, err := c.market.Request(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(id))
	if err != nil {
		c.logger.WithFields(logrus.Fields{"error": err, "request_id": id}).Error("Failed to read request")
		return contract.LedgerRequest{}, errors.Wrap(err, "read request")
	}
	if req.Id == nil || req.Id.Sign() == 0 {
		return contract.LedgerRequest{}, errors.Wrapf(contract.ErrNotFound, "request %d", id)
	}
	return req, nil
}

func (c *LedgerClient) GetSubmission(ctx context.Context, id uint64) (contract.LedgerSubmission, error) {
	if err := c.ensureInitialized(); err != nil {
		return contract.LedgerSubmission{}, err
	}
	sub, err := c.market.Submission(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(id))
	if err != nil {
		c.logger.WithFields(logrus.Fields{"error": err, "submission_id": id}).Error("Failed to read submission")
		return contract.LedgerSubmission{}, errors.Wrap(err, "read submission")
	}
	if sub.Id == nil || sub.Id.Sign() == 0 {
		return contract.LedgerSubmission{}, errors.Wrapf(contract.ErrNotFound, "submission %d", id)
	}
	return sub, nil
}

func (c *LedgerClient) GetBuyerRequests(ctx context.Context, buyer string) ([]uint64, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	ids, err := c.market.GetBuyerRequests(&bind.CallOpts{Context: ctx}, ethcommon.HexToAddress(buyer))
	if err != nil {
		return nil, errors.Wrap(err, "list buyer requests")
	}
	return toUint64s(ids), nil
}

func (c *LedgerClient) GetSellerSubmissions(ctx context.Context, seller string) ([]uint64, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	ids, err := c.market.GetSellerSubmissions(&bind.CallOpts{Context: ctx}, ethcommon.HexToAddress(seller))
	if err != nil {
		return nil, errors.Wrap(err, "list seller submissions")
	}
	return toUint64s(ids), nil
}

func (c *LedgerClient) CreateRequest(ctx context.Context, formatsMask uint8, description string, budget *big.Int) (*types.Transaction, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	opts, err := c.client.CreateTransactOpts(ctx, budget)
	if err != nil {
		return nil, err
	}
	return c.market.CreateRequest(opts, formatsMask, description)
}

func (c *LedgerClient) SubmitDataset(ctx context.Context, requestID uint64, modelAddr string, format contract.Format, fileSize, sampleCount uint64, fileExtensions, datasetRef string) (*types.Transaction, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	opts, err := c.client.CreateTransactOpts(ctx, nil)
	if err != nil {
		return nil, err
	}
	return c.market.SubmitDataset(opts,
		new(big.Int).SetUint64(requestID),
		ethcommon.HexToAddress(modelAddr),
		uint8(format),
		new(big.Int).SetUint64(fileSize),
		new(big.Int).SetUint64(sampleCount),
		fileExtensions,
		datasetRef,
	)
}

func (c *LedgerClient) VerifySubmission(ctx context.Context, submissionID uint64, approved bool, score uint8, reportRef string) (*types.Transaction, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	opts, err := c.client.CreateTransactOpts(ctx, nil)
	if err != nil {
		return nil, err
	}
	return c.market.VerifySubmission(opts, new(big.Int).SetUint64(submissionID), approved, score, reportRef)
}

func (c *LedgerClient) CancelRequest(ctx context.Context, requestID uint64) (*types.Transaction, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	opts, err := c.client.CreateTransactOpts(ctx, nil)
	if err != nil {
		return nil, err
	}
	return c.market.CancelRequest(opts, new(big.Int).SetUint64(requestID))
}

// WaitForReceipt blocks until the configured confirmation depth.
func (c *LedgerClient) WaitForReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	return c.client.WaitForReceipt(ctx, txHash, c.conf.Confirmations, contract.RetryOption{
		Rounds:   c.conf.ReceiptRounds,
		Interval: time.Duration(c.conf.ReceiptIntervalSecs) * time.Second,
	})
}

// CheckReceipt performs a single receipt lookup without waiting. A nil
// receipt with nil error means the transaction is still unmined.
func (c *LedgerClient) CheckReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	receipt, err := c.client.Client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get transaction receipt")
	}
	return receipt, nil
}

func (c *LedgerClient) Close() {
	c.client.Close()
}

func toUint64s(ids []*big.Int) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Uint64())
	}
	return out
}
