package drop

import "errors"

// Drop errors.
var (
	// ErrNoSigner is returned by Claim when no wallet key is configured.
	ErrNoSigner = errors.New("no wallet connected")

	// ErrNoActiveCondition is returned by Claim when the drop has no claim phase.
	ErrNoActiveCondition = errors.New("no active claim condition")

	// ErrInvalidQuantity is returned for claim quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrWrongChain is returned when the node serves a different chain than configured.
	ErrWrongChain = errors.New("node is on a different chain")

	// ErrTransactionReverted is returned when a submitted transaction reverts.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrOutOfRange is returned when an on-chain counter does not fit the domain type.
	ErrOutOfRange = errors.New("value out of range")
)
