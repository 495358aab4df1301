package domain

import "math/big"

// MintRequest is a single claim attempt. It is never persisted.
type MintRequest struct {
	ContractAddress string
	Quantity        int // >= 1
}

// ClaimResult describes the tokens minted by a successful claim.
type ClaimResult struct {
	TxHash   string
	TokenIDs []*big.Int
}

// Minted returns the number of tokens actually minted, which may differ
// from the requested quantity when the contract enforces its own caps.
func (r *ClaimResult) Minted() int {
	if r == nil {
		return 0
	}
	return len(r.TokenIDs)
}
