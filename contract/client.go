package contract

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/config"
)

var (
	ErrNotInitialized      = errors.New("ledger client not initialized")
	ErrNotFound            = errors.New("entity not found on ledger")
	ErrSignerMissing       = errors.New("no signing identity configured")
	ErrTransactionReverted = errors.New("transaction execution reverted")
	ErrReceiptTimeout      = errors.New("no receipt after max retries")
)

var defaultDialTimeout = 15 * time.Second

type RetryOption struct {
	Rounds   uint
	Interval time.Duration
}

// EthereumClient owns the RPC connection and the optional signing identity.
// Constructed once by the composition root and shared by every component
// that talks to the ledger.
type EthereumClient struct {
	Client *ethclient.Client

	chainID     *big.Int
	signer      *ecdsa.PrivateKey
	signerAddr  common.Address
	gasPrice    *big.Int
	maxGasPrice *big.Int
}

func NewEthereumClient(conf *config.Ledger, gasPrice, maxGasPrice string) (*EthereumClient, error) {
	if conf.RpcEndpoint == "" {
		return nil, errors.New("ledger rpc endpoint not configured")
	}

	client, err := ethclient.Dial(conf.RpcEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "dial ledger rpc")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ledger endpoint %s unreachable", conf.RpcEndpoint)
	}

	c := &EthereumClient{
		Client:  client,
		chainID: chainID,
	}

	if gasPrice != "" {
		price, ok := new(big.Int).SetString(gasPrice, 10)
		if !ok {
			return nil, errors.Errorf("invalid gas price: %s", gasPrice)
		}
		c.gasPrice = price
	}
	if maxGasPrice != "" {
		price, ok := new(big.Int).SetString(maxGasPrice, 10)
		if !ok {
			return nil, errors.Errorf("invalid max gas price: %s", maxGasPrice)
		}
		c.maxGasPrice = price
	}

	if conf.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "parse signing key")
		}
		c.signer = key
		c.signerAddr = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

func (c *EthereumClient) HasSigner() bool {
	return c.signer != nil
}

func (c *EthereumClient) SignerAddress() common.Address {
	return c.signerAddr
}

func (c *EthereumClient) ChainID() *big.Int {
	return c.chainID
}

// CreateTransactOpts builds transact options bound to the signing identity.
// Read-only deployments fail here, before anything reaches the ledger.
func (c *EthereumClient) CreateTransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, ErrSignerMissing
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, c.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "create transact opts")
	}
	opts.Context = ctx
	opts.Value = value
	if c.gasPrice != nil {
		opts.GasPrice = new(big.Int).Set(c.gasPrice)
	}
	return opts, nil
}

// WaitForReceipt blocks until the transaction has the requested number of
// confirmations. A timed-out wait does not mean the transaction is dead; the
// caller is expected to track the hash for later reconciliation.
func (c *EthereumClient) WaitForReceipt(ctx context.Context, txHash common.Hash, confirmations uint64, opts ...RetryOption) (*types.Receipt, error) {
	var opt RetryOption
	if len(opts) > 0 {
		opt = opts[0]
	} else {
		opt.Rounds = 10
		opt.Interval = time.Second * 10
	}

	var receipt *types.Receipt
	var err error
	var tries uint
	for receipt == nil {
		if tries > opt.Rounds+1 && opt.Rounds != 0 {
			return nil, ErrReceiptTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opt.Interval):
		}
		receipt, err = c.Client.TransactionReceipt(ctx, txHash)
		if err != nil && err != ethereum.NotFound {
			return nil, errors.Wrap(err, "get transaction receipt")
		}
		tries++
	}

	if confirmations > 1 {
		if err := c.waitForConfirmations(ctx, receipt.BlockNumber.Uint64(), confirmations, opt); err != nil {
			return nil, err
		}
	}

	switch receipt.Status {
	case types.ReceiptStatusSuccessful:
		return receipt, nil
	case types.ReceiptStatusFailed:
		return receipt, ErrTransactionReverted
	default:
		return receipt, errors.Errorf("unknown receipt status %d", receipt.Status)
	}
}

func (c *EthereumClient) waitForConfirmations(ctx context.Context, minedAt, confirmations uint64, opt RetryOption) error {
	var tries uint
	for {
		head, err := c.Client.BlockNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "get block number")
		}
		if head >= minedAt+confirmations-1 {
			return nil
		}
		tries++
		if tries > opt.Rounds && opt.Rounds != 0 {
			return ErrReceiptTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opt.Interval):
		}
	}
}

func (c *EthereumClient) Close() {
	c.Client.Close()
}
