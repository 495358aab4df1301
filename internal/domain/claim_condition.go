package domain

import (
	"math/big"
	"strings"
)

// NativeTokenAddress is the sentinel currency address drop contracts use
// for the chain's native gas token.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Currency describes the token a claim is paid in.
type Currency struct {
	Address      string // NativeTokenAddress or ERC-20 contract
	Symbol       string
	Decimals     int
	Value        *big.Int // price in smallest units
	DisplayValue string   // Value formatted with Decimals
}

// IsNative reports whether the currency is the chain's native token.
func (c Currency) IsNative() bool {
	return strings.EqualFold(c.Address, NativeTokenAddress)
}

// ClaimCondition is the active claim phase of a drop.
type ClaimCondition struct {
	ID              *big.Int
	StartTimestamp  int64
	AvailableSupply uint64 // remaining claims in this phase; meaningless if Unlimited
	Unlimited       bool
	MaxPerWallet    *big.Int
	Price           *big.Int // per token, smallest units
	Currency        Currency
}

// Exhausted reports whether the phase admits no more claims.
func (c *ClaimCondition) Exhausted() bool {
	return c != nil && !c.Unlimited && c.AvailableSupply == 0
}

// IsFree reports whether the per-token price is exactly zero.
func (c *ClaimCondition) IsFree() bool {
	return c != nil && c.Price != nil && c.Price.Sign() == 0
}
