package mintview

import (
	"context"

	"drop-mint/internal/domain"
	"drop-mint/internal/evm"
)

// Reader performs the remote reads behind a Snapshot.
type Reader interface {
	Ready(ctx context.Context) error
	Metadata(ctx context.Context) (*domain.ContractMetadata, error)
	ClaimedSupply(ctx context.Context) (uint64, error)
	UnclaimedSupply(ctx context.Context) (uint64, error)
	ActiveClaimCondition(ctx context.Context) (*domain.ClaimCondition, error)
}

// Source exposes the latest snapshots as named accessors. The boolean
// results report whether a value has been fetched.
type Source interface {
	Contract() bool
	Metadata() *domain.ContractMetadata
	ClaimedSupply() (uint64, bool)
	UnclaimedSupply() (uint64, bool)
	ActiveClaimCondition() *domain.ClaimCondition
	Snapshot() Snapshot

	// Generation identifies the current view instance. It changes when the
	// source is restarted or closed.
	Generation() uint64
}

// Claimer submits claims.
type Claimer interface {
	Claim(ctx context.Context, req domain.MintRequest) (*domain.ClaimResult, error)
}

// HeadSubscriber delivers new block notifications.
type HeadSubscriber interface {
	SubscribeNewHeads(ctx context.Context) (<-chan evm.Head, error)
}
