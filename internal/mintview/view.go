// Package mintview derives what the mint page shows from the latest chain
// snapshots. Derivation is pure; fetching lives in Poller.
package mintview

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"drop-mint/internal/domain"
	"drop-mint/internal/units"
)

// DefaultQuantity is the number of tokens claimed per click.
const DefaultQuantity = 1

// RenderState is one of the four mutually exclusive page states.
type RenderState string

const (
	StateLoading       RenderState = "loading"
	StateSoldOut       RenderState = "sold_out"
	StatePhaseNotReady RenderState = "phase_not_ready"
	StateMintReady     RenderState = "mint_ready"
)

// LoadingText is shown for values that have not been fetched yet.
const LoadingText = "Loading..."

// Snapshot is the latest fetched value of each remote read. A nil field has
// not been fetched yet.
type Snapshot struct {
	ContractReady bool
	Metadata      *domain.ContractMetadata
	Claimed       *uint64
	Unclaimed     *uint64
	Condition     *domain.ClaimCondition

	Generation uint64
	UpdatedAt  time.Time
}

// Supply returns both supply counts when both have been fetched.
func (s Snapshot) Supply() (domain.SupplyCounts, bool) {
	if s.Claimed == nil || s.Unclaimed == nil {
		return domain.SupplyCounts{}, false
	}
	return domain.SupplyCounts{Claimed: *s.Claimed, Unclaimed: *s.Unclaimed}, true
}

// View is the render model of the mint page.
type View struct {
	State       RenderState `json:"state"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`

	Claimed    *uint64 `json:"claimed,omitempty"`
	Total      *uint64 `json:"total,omitempty"`
	SupplyText string  `json:"supplyText"`

	Quantity int    `json:"quantity"`
	Label    string `json:"label,omitempty"`
}

// Derive computes the page state from s. Loading wins over every other
// state, then sold out, then an exhausted phase; anything else is mintable.
func Derive(s Snapshot, quantity int) View {
	if quantity < 1 {
		quantity = DefaultQuantity
	}

	v := View{
		State:      deriveState(s),
		SupplyText: LoadingText,
		Quantity:   quantity,
	}

	if s.Metadata != nil {
		v.Name = s.Metadata.Name
		v.Description = s.Metadata.Description
		v.Image = s.Metadata.Image
	}

	if supply, ok := s.Supply(); ok {
		claimed, total := supply.Claimed, supply.Total()
		v.Claimed = &claimed
		v.Total = &total
		v.SupplyText = fmt.Sprintf("%d / %d", claimed, total)
	}

	if v.State == StateMintReady {
		v.Label = Label(s.Condition, quantity)
	}
	return v
}

func deriveState(s Snapshot) RenderState {
	switch {
	case !s.ContractReady || s.Metadata == nil:
		return StateLoading
	case s.Unclaimed != nil && *s.Unclaimed == 0:
		return StateSoldOut
	case s.Condition.Exhausted():
		return StatePhaseNotReady
	default:
		return StateMintReady
	}
}

// Label builds the call-to-action text, e.g. "Mint", "Mint 2 (Free)" or
// "Mint (0.1 MATIC)".
func Label(cond *domain.ClaimCondition, quantity int) string {
	label := "Mint"
	if quantity > 1 {
		label += " " + strconv.Itoa(quantity)
	}

	switch {
	case cond.IsFree():
		label += " (Free)"
	case cond != nil && cond.Currency.DisplayValue != "":
		total, err := TotalPrice(cond.Currency, quantity)
		if err == nil {
			label += fmt.Sprintf(" (%s %s)", units.Format(total, cond.Currency.Decimals), cond.Currency.Symbol)
		}
	}
	return label
}

// TotalPrice returns the exact amount in smallest units for quantity tokens,
// parsed from the currency's display value. An unknown display value counts
// as zero.
func TotalPrice(cur domain.Currency, quantity int) (*big.Int, error) {
	display := cur.DisplayValue
	if display == "" {
		display = "0"
	}

	unit, err := units.Parse(display, cur.Decimals)
	if err != nil {
		return nil, err
	}
	return units.Mul(unit, int64(quantity)), nil
}

// SuccessMessage is shown after a claim mints minted tokens.
func SuccessMessage(minted int) string {
	suffix := ""
	if minted > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Successfully minted %d NFT%s!", minted, suffix)
}

// FailureMessage is shown after a failed claim: the error text, unchanged.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
