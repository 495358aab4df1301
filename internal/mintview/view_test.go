package mintview

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drop-mint/internal/domain"
	"drop-mint/internal/units"
)

func u64(v uint64) *uint64 { return &v }

func testMetadata() *domain.ContractMetadata {
	return &domain.ContractMetadata{
		Name:        "Tiny Kittens",
		Description: "A drop.",
		Image:       "https://ipfs.io/ipfs/QmImage",
	}
}

func condition(available uint64, price string, decimals int, symbol string) *domain.ClaimCondition {
	value := units.MustParse(price, decimals)
	return &domain.ClaimCondition{
		AvailableSupply: available,
		Price:           value,
		Currency: domain.Currency{
			Address:      domain.NativeTokenAddress,
			Symbol:       symbol,
			Decimals:     decimals,
			Value:        value,
			DisplayValue: units.Format(value, decimals),
		},
	}
}

func loaded(claimed, unclaimed uint64, cond *domain.ClaimCondition) Snapshot {
	return Snapshot{
		ContractReady: true,
		Metadata:      testMetadata(),
		Claimed:       u64(claimed),
		Unclaimed:     u64(unclaimed),
		Condition:     cond,
	}
}

func TestDerive_UnclaimedPositiveNeverSoldOut(t *testing.T) {
	for _, claimed := range []uint64{0, 1, 3, 1000} {
		for _, unclaimed := range []uint64{1, 2, 7, 1 << 40} {
			for _, cond := range []*domain.ClaimCondition{nil, condition(0, "0", 18, "ETH"), condition(5, "1", 18, "ETH")} {
				v := Derive(loaded(claimed, unclaimed, cond), 1)
				assert.NotEqual(t, StateSoldOut, v.State, "claimed=%d unclaimed=%d", claimed, unclaimed)
			}
		}
	}
}

func TestDerive_UnclaimedZeroIsSoldOut(t *testing.T) {
	for _, claimed := range []uint64{0, 10, 1 << 50} {
		for _, cond := range []*domain.ClaimCondition{nil, condition(0, "0", 18, "ETH"), condition(7, "0.5", 18, "ETH")} {
			v := Derive(loaded(claimed, 0, cond), 1)
			assert.Equal(t, StateSoldOut, v.State, "claimed=%d", claimed)
			assert.Empty(t, v.Label)
		}
	}
}

func TestDerive_ExhaustedPhase(t *testing.T) {
	for _, unclaimed := range []uint64{1, 5, 99} {
		v := Derive(loaded(5, unclaimed, condition(0, "0.1", 18, "MATIC")), 1)
		assert.Equal(t, StatePhaseNotReady, v.State)
	}
}

func TestDerive_UnlimitedPhaseIsNotExhausted(t *testing.T) {
	cond := condition(0, "0", 18, "ETH")
	cond.Unlimited = true

	v := Derive(loaded(1, 1, cond), 1)
	assert.Equal(t, StateMintReady, v.State)
}

func TestDerive_TotalIsSum(t *testing.T) {
	pairs := [][2]uint64{{0, 0}, {0, 1}, {3, 7}, {10, 0}, {1 << 31, 1 << 31}, {123456789, 987654321}}
	for _, p := range pairs {
		v := Derive(loaded(p[0], p[1], nil), 1)
		require.NotNil(t, v.Total)
		assert.Equal(t, p[0]+p[1], *v.Total)
		assert.Equal(t, fmt.Sprintf("%d / %d", p[0], p[0]+p[1]), v.SupplyText)
	}
}

func TestDerive_SupplyLoadingUntilBothCounts(t *testing.T) {
	s := loaded(3, 7, nil)
	s.Unclaimed = nil

	v := Derive(s, 1)
	assert.Equal(t, LoadingText, v.SupplyText)
	assert.Nil(t, v.Total)
	assert.Equal(t, StateMintReady, v.State)
}

func TestLabel_Free(t *testing.T) {
	for _, q := range []int{1, 2, 5} {
		label := Label(condition(10, "0", 18, "ETH"), q)
		assert.Contains(t, label, "(Free)")
		assert.NotRegexp(t, `\d+\.\d+`, label)
	}
}

func TestLabel_ExactTotals(t *testing.T) {
	tests := []struct {
		price    string
		decimals int
		quantity int
		want     string
	}{
		{"0.1", 18, 1, "Mint (0.1 MATIC)"},
		{"0.1", 18, 2, "Mint 2 (0.2 MATIC)"},
		{"0.1", 18, 5, "Mint 5 (0.5 MATIC)"},
		{"0.1", 18, 10, "Mint 10 (1.0 MATIC)"},
		{"0.3", 18, 3, "Mint 3 (0.9 MATIC)"},
		{"0.000000000000000001", 18, 10, "Mint 10 (0.00000000000000001 MATIC)"},
		{"2.5", 6, 5, "Mint 5 (12.5 MATIC)"},
		{"1", 0, 2, "Mint 2 (2.0 MATIC)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(condition(100, tt.price, tt.decimals, "MATIC"), tt.quantity))
		})
	}
}

func TestLabel_NoDisplayValue(t *testing.T) {
	cond := condition(100, "1", 18, "ETH")
	cond.Currency.DisplayValue = ""

	assert.Equal(t, "Mint", Label(cond, 1))
	assert.Equal(t, "Mint 3", Label(cond, 3))
}

func TestLabel_NoCondition(t *testing.T) {
	assert.Equal(t, "Mint", Label(nil, 1))
}

func TestTotalPrice(t *testing.T) {
	cur := domain.Currency{Decimals: 18, DisplayValue: "0.05"}

	total, err := TotalPrice(cur, 3)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("150000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(total))

	total, err = TotalPrice(domain.Currency{Decimals: 18}, 4)
	require.NoError(t, err)
	assert.Zero(t, total.Sign())

	_, err = TotalPrice(domain.Currency{Decimals: 2, DisplayValue: "0.001"}, 1)
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
}

func TestScenario_FreeMintReady(t *testing.T) {
	v := Derive(loaded(3, 7, condition(7, "0", 18, "MATIC")), 1)
	assert.Equal(t, StateMintReady, v.State)
	assert.Equal(t, "Mint (Free)", v.Label)
	assert.Equal(t, "3 / 10", v.SupplyText)
}

func TestScenario_SoldOut(t *testing.T) {
	v := Derive(loaded(10, 0, condition(5, "1", 18, "ETH")), 1)
	assert.Equal(t, StateSoldOut, v.State)
	assert.Equal(t, "10 / 10", v.SupplyText)
}

func TestScenario_PhaseNotReady(t *testing.T) {
	v := Derive(loaded(5, 5, condition(0, "0", 18, "ETH")), 1)
	assert.Equal(t, StatePhaseNotReady, v.State)
}

func TestScenario_MetadataNotLoaded(t *testing.T) {
	snapshots := []Snapshot{
		{ContractReady: true},
		{ContractReady: true, Claimed: u64(10), Unclaimed: u64(0)},
		{ContractReady: true, Claimed: u64(5), Unclaimed: u64(5), Condition: condition(0, "0", 18, "ETH")},
		{Metadata: testMetadata(), Claimed: u64(1), Unclaimed: u64(1)},
	}
	for i, s := range snapshots {
		assert.Equal(t, StateLoading, Derive(s, 1).State, "snapshot %d", i)
	}
}

func TestDerive_QuantityDefaultsToOne(t *testing.T) {
	v := Derive(loaded(0, 1, condition(1, "0", 18, "ETH")), 0)
	assert.Equal(t, 1, v.Quantity)
	assert.Equal(t, "Mint (Free)", v.Label)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Successfully minted 1 NFT!", SuccessMessage(1))
	assert.Equal(t, "Successfully minted 3 NFTs!", SuccessMessage(3))
	assert.Equal(t, "Successfully minted 0 NFT!", SuccessMessage(0))

	assert.Equal(t, "execution reverted: !Qty", FailureMessage(errors.New("execution reverted: !Qty")))
	assert.Empty(t, FailureMessage(nil))
}
