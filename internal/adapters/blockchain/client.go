package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/usecase"
)

// ErrReadOnly is returned when a transaction is requested without a deployer key
var ErrReadOnly = errors.New("no deployer key configured; set [deployer].private_key in odeploy.toml")

// ErrReverted is returned for mined transactions with a failed status
var ErrReverted = errors.New("transaction reverted")

// Backend is the node API the client needs. Both *ethclient.Client and the
// simulated backend's client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// Dialer opens a backend for an RPC URL
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Client implements usecase.ChainClient for the selected environment. The
// connection is opened on first use so commands that never touch the chain
// do not need a reachable node.
type Client struct {
	env  *config.Environment
	key  *ecdsa.PrivateKey
	from common.Address
	dial Dialer
	log  *slog.Logger

	mu      sync.Mutex
	backend Backend
	chainID *big.Int
}

// NewClient creates the chain client of the runtime config
func NewClient(cfg *config.RuntimeConfig, log *slog.Logger) (*Client, error) {
	c := &Client{
		env:  cfg.Environment,
		dial: dialEthclient,
		log:  log.With("component", "chain"),
	}

	var raw string
	if cfg.ProjectConfig != nil {
		raw = strings.TrimSpace(cfg.ProjectConfig.Deployer.PrivateKey)
	}
	if raw == "" {
		return c, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid deployer private key: %w", err)
	}
	c.key = key
	c.from = crypto.PubkeyToAddress(key.PublicKey)
	return c, nil
}

// NewClientWithBackend creates a client over an already connected backend
func NewClientWithBackend(env *config.Environment, key *ecdsa.PrivateKey, backend Backend, log *slog.Logger) *Client {
	c := &Client{env: env, backend: backend, log: log}
	if key != nil {
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c
}

// connect dials the environment and checks its chain id
func (c *Client) connect(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend == nil {
		if c.env == nil {
			return nil, fmt.Errorf("no environment selected")
		}
		if c.env.RPCURL == "" {
			return nil, fmt.Errorf("environment %s has no RPC URL", c.env.Name)
		}
		backend, err := c.dial(ctx, c.env.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RPC: %w", err)
		}
		c.backend = backend
	}

	if c.chainID == nil {
		networkChainID, err := c.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain ID: %w", err)
		}
		if c.env != nil && c.env.ChainID != 0 && networkChainID.Uint64() != c.env.ChainID {
			return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", c.env.ChainID, networkChainID.Uint64())
		}
		c.chainID = networkChainID
		c.log.Debug("connected", "chainId", networkChainID)
	}

	return c.backend, nil
}

// Deployer returns the address transactions are sent from
func (c *Client) Deployer() common.Address {
	return c.from
}

// ChainID returns the chain id reported by the node
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if _, err := c.connect(ctx); err != nil {
		return 0, err
	}
	return c.chainID.Uint64(), nil
}

func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, Backend, error) {
	if c.key == nil {
		return nil, nil, ErrReadOnly
	}
	backend, err := c.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, nil, err
	}
	opts.Context = ctx
	return opts, backend, nil
}

// Deploy sends a contract creation with the full init code
func (c *Client) Deploy(ctx context.Context, initCode []byte) (*models.Receipt, error) {
	opts, backend, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	// The init code is already packed so the constructor ABI is empty
	_, tx, _, err := bind.DeployContract(opts, abi.ABI{}, initCode, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to send deployment: %w", err)
	}
	c.log.Debug("deployment sent", "tx", tx.Hash().Hex())
	return c.wait(ctx, backend, tx)
}

// Transact sends data to a contract
func (c *Client) Transact(ctx context.Context, to common.Address, data []byte) (*models.Receipt, error) {
	opts, backend, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(to, abi.ABI{}, backend, backend, backend)
	tx, err := contract.RawTransact(opts, data)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.log.Debug("transaction sent", "to", to.Hex(), "tx", tx.Hash().Hex())
	return c.wait(ctx, backend, tx)
}

func (c *Client) wait(ctx context.Context, backend Backend, tx *types.Transaction) (*models.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}

	result := &models.Receipt{
		TxHash:  receipt.TxHash.Hex(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("%w: %s", ErrReverted, receipt.TxHash.Hex())
	}
	if receipt.ContractAddress != (common.Address{}) {
		result.ContractAddress = receipt.ContractAddress.Hex()
	}
	return result, nil
}

// Call executes a read-only call against the latest block
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	backend, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	return backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data}, nil)
}

// CodeAt returns the runtime code at address
func (c *Client) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	backend, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	return backend.CodeAt(ctx, address, nil)
}

// StorageAt reads one storage slot
func (c *Client) StorageAt(ctx context.Context, address common.Address, slot common.Hash) ([]byte, error) {
	backend, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	return backend.StorageAt(ctx, address, slot, nil)
}

var _ usecase.ChainClient = (*Client)(nil)
