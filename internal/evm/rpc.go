// Package evm provides JSON-RPC access to an EVM-compatible node.
package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RPCClient defines the node methods the drop binding needs.
type RPCClient interface {
	// ChainID returns the chain id reported by the node.
	ChainID(ctx context.Context) (*big.Int, error)

	// BlockNumber returns the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// Call executes a read-only message call against the latest block.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)

	// PendingNonceAt returns the next nonce for the account, including pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// GasPrice returns the node's suggested legacy gas price.
	GasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas needed to execute msg.
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)

	// SendRawTransaction submits a signed, RLP-encoded transaction and returns its hash.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	// TransactionReceipt returns the receipt of a mined transaction.
	// Returns nil, nil while the transaction is still pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// CallMsg is the argument of eth_call and eth_estimateGas.
type CallMsg struct {
	From  *common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Receipt is the subset of a transaction receipt the drop binding reads.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64 // 1 success, 0 reverted
	GasUsed     uint64
	Logs        []Log
}

// Log is an event emitted during transaction execution.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}
