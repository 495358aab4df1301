package stub

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"drop-mint/internal/evm"
)

// ErrNoHandler is returned by Call when no handler is registered for a selector.
var ErrNoHandler = errors.New("no call handler")

// CallHandler answers an eth_call whose calldata starts with a registered selector.
type CallHandler func(msg evm.CallMsg) ([]byte, error)

// RPCClient implements evm.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	Block        uint64
	Nonce        uint64
	GasPriceWei  *big.Int
	GasEstimate  uint64
	EstimateErr  error
	SendErr      error

	// Handlers are keyed by 4-byte function selector.
	Handlers map[[4]byte]CallHandler

	// Receipts returned by TransactionReceipt; ReceiptFor builds one when
	// a hash has no entry.
	Receipts   map[common.Hash]*evm.Receipt
	ReceiptFor func(tx *types.Transaction) *evm.Receipt

	// Sent holds every transaction submitted through SendRawTransaction.
	Sent []*types.Transaction
}

// NewRPCClient creates a new stub RPC client for chainID.
func NewRPCClient(chainID int64) *RPCClient {
	return &RPCClient{
		ChainIDValue: big.NewInt(chainID),
		GasPriceWei:  big.NewInt(1_000_000_000),
		GasEstimate:  150_000,
		Handlers:     make(map[[4]byte]CallHandler),
		Receipts:     make(map[common.Hash]*evm.Receipt),
	}
}

// Handle registers a handler for a function selector.
func (c *RPCClient) Handle(selector []byte, h CallHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var key [4]byte
	copy(key[:], selector)
	c.Handlers[key] = h
}

// ChainID returns the configured chain id.
func (c *RPCClient) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ChainIDValue), nil
}

// BlockNumber returns the configured block number.
func (c *RPCClient) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Block, nil
}

// Call dispatches to the handler registered for the calldata selector.
func (c *RPCClient) Call(_ context.Context, msg evm.CallMsg) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, ErrNoHandler
	}

	var key [4]byte
	copy(key[:], msg.Data[:4])

	c.mu.Lock()
	h, ok := c.Handlers[key]
	c.mu.Unlock()
	if !ok {
		return nil, ErrNoHandler
	}
	return h(msg)
}

// PendingNonceAt returns the configured nonce.
func (c *RPCClient) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Nonce, nil
}

// GasPrice returns the configured gas price.
func (c *RPCClient) GasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.GasPriceWei), nil
}

// EstimateGas returns the configured estimate or error.
func (c *RPCClient) EstimateGas(_ context.Context, _ evm.CallMsg) (uint64, error) {
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return c.GasEstimate, nil
}

// SendRawTransaction decodes and records the transaction.
func (c *RPCClient) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	if c.SendErr != nil {
		return common.Hash{}, c.SendErr
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, tx)
	c.Nonce++
	if _, ok := c.Receipts[tx.Hash()]; !ok && c.ReceiptFor != nil {
		c.Receipts[tx.Hash()] = c.ReceiptFor(tx)
	}
	return tx.Hash(), nil
}

// TransactionReceipt returns the stored receipt, or nil if pending.
func (c *RPCClient) TransactionReceipt(_ context.Context, hash common.Hash) (*evm.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Receipts[hash], nil
}

// SentTransactions returns a copy of the submitted transactions.
func (c *RPCClient) SentTransactions() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.Sent...)
}
