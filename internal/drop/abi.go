package drop

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// dropABIJSON is the subset of the NFT drop contract the mint page uses.
const dropABIJSON = `[
  {"type":"function","name":"contractURI","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"nextTokenIdToClaim","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"nextTokenIdToMint","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getActiveClaimConditionId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getClaimConditionById","stateMutability":"view",
   "inputs":[{"name":"_conditionId","type":"uint256"}],
   "outputs":[{"name":"condition","type":"tuple","components":[
     {"name":"startTimestamp","type":"uint256"},
     {"name":"maxClaimableSupply","type":"uint256"},
     {"name":"supplyClaimed","type":"uint256"},
     {"name":"quantityLimitPerWallet","type":"uint256"},
     {"name":"merkleRoot","type":"bytes32"},
     {"name":"pricePerToken","type":"uint256"},
     {"name":"currency","type":"address"},
     {"name":"metadata","type":"string"}]}]},
  {"type":"function","name":"claim","stateMutability":"payable",
   "inputs":[
     {"name":"_receiver","type":"address"},
     {"name":"_quantity","type":"uint256"},
     {"name":"_currency","type":"address"},
     {"name":"_pricePerToken","type":"uint256"},
     {"name":"_allowlistProof","type":"tuple","components":[
       {"name":"proof","type":"bytes32[]"},
       {"name":"quantityLimitPerWallet","type":"uint256"},
       {"name":"pricePerToken","type":"uint256"},
       {"name":"currency","type":"address"}]},
     {"name":"_data","type":"bytes"}],
   "outputs":[]},
  {"type":"event","name":"TokensClaimed","anonymous":false,
   "inputs":[
     {"name":"claimConditionIndex","type":"uint256","indexed":true},
     {"name":"claimer","type":"address","indexed":true},
     {"name":"receiver","type":"address","indexed":true},
     {"name":"startTokenId","type":"uint256","indexed":false},
     {"name":"quantityClaimed","type":"uint256","indexed":false}]}
]`

// erc20ABIJSON covers the currency reads and the spend approval.
const erc20ABIJSON = `[
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"allowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var (
	// DropABI is the parsed drop contract ABI.
	DropABI = mustParseABI(dropABIJSON)
	// ERC20ABI is the parsed ERC-20 ABI.
	ERC20ABI = mustParseABI(erc20ABIJSON)

	// maxUint256 marks an unlimited claim phase and an open allowlist price.
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// claimConditionTuple mirrors the getClaimConditionById output.
type claimConditionTuple struct {
	StartTimestamp         *big.Int
	MaxClaimableSupply     *big.Int
	SupplyClaimed          *big.Int
	QuantityLimitPerWallet *big.Int
	MerkleRoot             [32]byte
	PricePerToken          *big.Int
	Currency               common.Address
	Metadata               string
}

// allowlistProof mirrors the claim _allowlistProof input.
type allowlistProof struct {
	Proof                  [][32]byte
	QuantityLimitPerWallet *big.Int
	PricePerToken          *big.Int
	Currency               common.Address
}

// openAllowlistProof is the proof submitted by claimers not on an allowlist.
func openAllowlistProof() allowlistProof {
	return allowlistProof{
		Proof:                  [][32]byte{},
		QuantityLimitPerWallet: big.NewInt(0),
		PricePerToken:          new(big.Int).Set(maxUint256),
		Currency:               common.Address{},
	}
}

// tokensClaimedEvent holds the non-indexed fields of TokensClaimed.
type tokensClaimedEvent struct {
	StartTokenId    *big.Int
	QuantityClaimed *big.Int
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
