// Package drop binds an NFT drop contract: it reads the collection state the
// mint page displays and submits claim transactions.
package drop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"drop-mint/internal/chain"
	"drop-mint/internal/domain"
	"drop-mint/internal/evm"
	"drop-mint/internal/units"
)

// Default configuration values.
const (
	DefaultIPFSGateway         = "https://ipfs.io/ipfs/"
	DefaultReceiptPollInterval = 2 * time.Second
	DefaultGasBufferPercent    = 20
)

// Contract reads from and claims against one drop contract.
type Contract struct {
	rpc          evm.RPCClient
	address      common.Address
	network      chain.Info
	signer       *Signer
	gateway      string
	httpClient   *http.Client
	pollInterval time.Duration
	gasBuffer    uint64
	logger       *zap.Logger

	ready atomic.Bool
}

// Options contains configuration for creating a Contract.
type Options struct {
	RPC                 evm.RPCClient
	Address             string
	Network             chain.Info
	Signer              *Signer      // nil disables Claim
	IPFSGateway         string       // Default: DefaultIPFSGateway
	HTTPClient          *http.Client // used for metadata documents
	ReceiptPollInterval time.Duration
	GasBufferPercent    uint64
	Logger              *zap.Logger
}

// New creates a contract binding. The address must be a hex contract address.
func New(opts Options) (*Contract, error) {
	if !common.IsHexAddress(opts.Address) {
		return nil, fmt.Errorf("invalid contract address %q", opts.Address)
	}
	if opts.RPC == nil {
		return nil, errors.New("rpc client is required")
	}

	gateway := opts.IPFSGateway
	if gateway == "" {
		gateway = DefaultIPFSGateway
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	pollInterval := opts.ReceiptPollInterval
	if pollInterval == 0 {
		pollInterval = DefaultReceiptPollInterval
	}

	gasBuffer := opts.GasBufferPercent
	if gasBuffer == 0 {
		gasBuffer = DefaultGasBufferPercent
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Contract{
		rpc:          opts.RPC,
		address:      common.HexToAddress(opts.Address),
		network:      opts.Network,
		signer:       opts.Signer,
		gateway:      gateway,
		httpClient:   httpClient,
		pollInterval: pollInterval,
		gasBuffer:    gasBuffer,
		logger:       logger.With(zap.String("contract", opts.Address)),
	}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Wallet returns the claiming wallet address, if a signer is configured.
func (c *Contract) Wallet() (common.Address, bool) {
	if c.signer == nil {
		return common.Address{}, false
	}
	return c.signer.Address(), true
}

// Ready verifies once that the node serves the configured chain.
// Until it succeeds the contract handle is considered unavailable.
func (c *Contract) Ready(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if id.Int64() != c.network.ChainID {
		return fmt.Errorf("%w: expected %d (%s), node reports %s",
			ErrWrongChain, c.network.ChainID, c.network.Name, id)
	}

	c.ready.Store(true)
	return nil
}

// ClaimedSupply returns the number of tokens claimed so far.
func (c *Contract) ClaimedSupply(ctx context.Context) (uint64, error) {
	claimed, err := c.callUint(ctx, "nextTokenIdToClaim")
	if err != nil {
		return 0, err
	}
	return toUint64(claimed)
}

// UnclaimedSupply returns the number of lazy-minted tokens still available to claim.
func (c *Contract) UnclaimedSupply(ctx context.Context) (uint64, error) {
	minted, err := c.callUint(ctx, "nextTokenIdToMint")
	if err != nil {
		return 0, err
	}
	claimed, err := c.callUint(ctx, "nextTokenIdToClaim")
	if err != nil {
		return 0, err
	}
	if minted.Cmp(claimed) <= 0 {
		return 0, nil
	}
	return toUint64(new(big.Int).Sub(minted, claimed))
}

// ActiveClaimCondition returns the active claim phase, or nil when the drop
// has none.
func (c *Contract) ActiveClaimCondition(ctx context.Context) (*domain.ClaimCondition, error) {
	id, raw, err := c.activeCondition(ctx)
	if err != nil || raw == nil {
		return nil, err
	}

	currency, err := c.currency(ctx, raw.Currency, raw.PricePerToken)
	if err != nil {
		return nil, err
	}

	cond := &domain.ClaimCondition{
		ID:             id,
		StartTimestamp: raw.StartTimestamp.Int64(),
		MaxPerWallet:   raw.QuantityLimitPerWallet,
		Price:          raw.PricePerToken,
		Currency:       currency,
	}

	if raw.MaxClaimableSupply.Cmp(maxUint256) == 0 {
		cond.Unlimited = true
	} else if raw.MaxClaimableSupply.Cmp(raw.SupplyClaimed) > 0 {
		available, err := toUint64(new(big.Int).Sub(raw.MaxClaimableSupply, raw.SupplyClaimed))
		if err != nil {
			return nil, err
		}
		cond.AvailableSupply = available
	}

	return cond, nil
}

// activeCondition reads the active condition id and its raw tuple.
// A reverted id lookup means no condition is set.
func (c *Contract) activeCondition(ctx context.Context) (*big.Int, *claimConditionTuple, error) {
	id, err := c.callUint(ctx, "getActiveClaimConditionId")
	if err != nil {
		var rpcErr *evm.RPCError
		if errors.As(err, &rpcErr) && rpcErr.IsRevert() {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	out, err := c.call(ctx, DropABI, c.address, "getClaimConditionById", id)
	if err != nil {
		return nil, nil, err
	}
	raw := *abi.ConvertType(out[0], new(claimConditionTuple)).(*claimConditionTuple)
	return id, &raw, nil
}

// currency resolves symbol, decimals and display value for a claim currency.
func (c *Contract) currency(ctx context.Context, addr common.Address, price *big.Int) (domain.Currency, error) {
	cur := domain.Currency{
		Address: addr.Hex(),
		Value:   price,
	}

	if cur.IsNative() {
		cur.Symbol = c.network.Currency.Symbol
		cur.Decimals = c.network.Currency.Decimals
	} else {
		out, err := c.call(ctx, ERC20ABI, addr, "symbol")
		if err != nil {
			return domain.Currency{}, fmt.Errorf("currency symbol: %w", err)
		}
		cur.Symbol = out[0].(string)

		out, err = c.call(ctx, ERC20ABI, addr, "decimals")
		if err != nil {
			return domain.Currency{}, fmt.Errorf("currency decimals: %w", err)
		}
		cur.Decimals = int(out[0].(uint8))
	}

	cur.DisplayValue = units.Format(price, cur.Decimals)
	return cur, nil
}

// callUint calls a no-argument uint256 view on the drop contract.
func (c *Contract) callUint(ctx context.Context, method string) (*big.Int, error) {
	out, err := c.call(ctx, DropABI, c.address, method)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// call packs a view call, executes it and unpacks the outputs.
func (c *Contract) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := c.rpc.Call(ctx, evm.CallMsg{To: to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func toUint64(v *big.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, v)
	}
	return v.Uint64(), nil
}
