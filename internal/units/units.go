// Package units converts between human-readable token amounts and the
// integer token-unit counts that go on chain.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the precision accepted by Parse and Format.
const MaxDecimals = 77

// ErrInvalidAmount is returned when an amount cannot be represented exactly.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a decimal string such as "0.05" into an integer count of
// the smallest token unit for the given precision. Conversion is exact:
// a value with more fractional digits than decimals is rejected rather than rounded.
func Parse(value string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidAmount, decimals)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	if strings.ContainsAny(value, "eE") {
		return nil, fmt.Errorf("%w: exponent notation %q", ErrInvalidAmount, value)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, value)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, value, decimals)
	}

	return shifted.BigInt(), nil
}

// MustParse is Parse for constants known to be valid.
func MustParse(value string, decimals int) *big.Int {
	v, err := Parse(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// Format renders an integer unit count with the given precision.
// The output always carries at least one fractional digit ("1.0", "0.05"),
// matching what wallets and block explorers display.
func Format(amount *big.Int, decimals int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if decimals <= 0 {
		return amount.String() + ".0"
	}

	s := decimal.NewFromBigInt(amount, -int32(decimals)).StringFixed(int32(decimals))
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// Mul returns unit × quantity without mutating unit.
func Mul(unit *big.Int, quantity int64) *big.Int {
	if unit == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(unit, big.NewInt(quantity))
}
