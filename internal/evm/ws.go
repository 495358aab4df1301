package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// WSClient defines the node WebSocket subscription interface.
type WSClient interface {
	// SubscribeNewHeads delivers a Head for every new block.
	// The channel is closed when the connection ends.
	SubscribeNewHeads(ctx context.Context) (<-chan Head, error)

	// Close closes the WebSocket connection.
	Close() error
}

// Head is a newHeads notification.
type Head struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
}
