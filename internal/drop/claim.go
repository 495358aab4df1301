package drop

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"drop-mint/internal/domain"
	"drop-mint/internal/evm"
)

// Claim mints req.Quantity tokens to the configured wallet under the active
// claim phase. The attempt is made exactly once; the returned error carries
// the node's reason verbatim when the claim is rejected.
func (c *Contract) Claim(ctx context.Context, req domain.MintRequest) (*domain.ClaimResult, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	_, cond, err := c.activeCondition(ctx)
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, ErrNoActiveCondition
	}

	quantity := big.NewInt(int64(req.Quantity))
	total := new(big.Int).Mul(cond.PricePerToken, quantity)
	receiver := c.signer.Address()

	value := new(big.Int)
	if isNative(cond.Currency) {
		value.Set(total)
	} else if total.Sign() > 0 {
		if err := c.ensureAllowance(ctx, cond.Currency, total); err != nil {
			return nil, err
		}
	}

	data, err := DropABI.Pack("claim",
		receiver,
		quantity,
		cond.Currency,
		cond.PricePerToken,
		openAllowlistProof(),
		[]byte{},
	)
	if err != nil {
		return nil, fmt.Errorf("pack claim: %w", err)
	}

	receipt, err := c.transact(ctx, c.address, value, data)
	if err != nil {
		return nil, err
	}

	ids, err := c.claimedTokenIDs(receipt, req.Quantity)
	if err != nil {
		return nil, err
	}

	c.logger.Info("claim confirmed",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Int("requested", req.Quantity),
		zap.Int("minted", len(ids)),
	)

	return &domain.ClaimResult{
		TxHash:   receipt.TxHash.Hex(),
		TokenIDs: ids,
	}, nil
}

// ensureAllowance approves the drop to spend total of an ERC-20 currency
// when the current allowance is short.
func (c *Contract) ensureAllowance(ctx context.Context, token common.Address, total *big.Int) error {
	owner := c.signer.Address()

	out, err := c.call(ctx, ERC20ABI, token, "allowance", owner, c.address)
	if err != nil {
		return fmt.Errorf("currency allowance: %w", err)
	}
	if out[0].(*big.Int).Cmp(total) >= 0 {
		return nil
	}

	data, err := ERC20ABI.Pack("approve", c.address, total)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}

	receipt, err := c.transact(ctx, token, new(big.Int), data)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	c.logger.Info("currency approved",
		zap.String("token", token.Hex()),
		zap.String("amount", total.String()),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}

// transact signs and submits a transaction from the configured wallet, then
// waits for it to be mined.
func (c *Contract) transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*evm.Receipt, error) {
	from := c.signer.Address()
	chainID := big.NewInt(c.network.ChainID)

	nonce, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	gasPrice, err := c.rpc.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	gas, err := c.rpc.EstimateGas(ctx, evm.CallMsg{From: &from, To: to, Value: value, Data: data})
	if err != nil {
		// Reverts surface here first; the node's message is the user-facing reason.
		return nil, err
	}
	gas += gas * c.gasBuffer / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	hash, err := c.rpc.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("transaction sent",
		zap.String("tx", hash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
	}
	return receipt, nil
}

// waitMined polls for the receipt of hash until it is available or ctx ends.
func (c *Contract) waitMined(ctx context.Context, hash common.Hash) (*evm.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// claimedTokenIDs expands the TokensClaimed events emitted by the drop into
// the individual token ids. A receipt reporting more than requested tokens
// is rejected.
func (c *Contract) claimedTokenIDs(receipt *evm.Receipt, requested int) ([]*big.Int, error) {
	event := DropABI.Events["TokensClaimed"]

	var ids []*big.Int
	for _, log := range receipt.Logs {
		if log.Address != c.address || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		var ev tokensClaimedEvent
		if err := DropABI.UnpackIntoInterface(&ev, "TokensClaimed", log.Data); err != nil {
			return nil, fmt.Errorf("decode TokensClaimed: %w", err)
		}
		remaining := int64(requested - len(ids))
		if !ev.QuantityClaimed.IsInt64() || ev.QuantityClaimed.Int64() > remaining {
			return nil, fmt.Errorf("%w: claimed quantity %s exceeds requested %d", ErrOutOfRange, ev.QuantityClaimed, requested)
		}

		for i := int64(0); i < ev.QuantityClaimed.Int64(); i++ {
			ids = append(ids, new(big.Int).Add(ev.StartTokenId, big.NewInt(i)))
		}
	}
	return ids, nil
}

func isNative(addr common.Address) bool {
	return domain.Currency{Address: addr.Hex()}.IsNative()
}
