package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"drop-mint/internal/chain"
	"drop-mint/internal/config"
	"drop-mint/internal/drop"
	"drop-mint/internal/evm"
	"drop-mint/internal/mintview"
	"drop-mint/internal/observability"
	"drop-mint/internal/shell"
)

// allStates lists every render state for the state gauge.
var allStates = []string{
	string(mintview.StateLoading),
	string(mintview.StateSoldOut),
	string(mintview.StatePhaseNotReady),
	string(mintview.StateMintReady),
}

// app holds the wired components of one mint page.
type app struct {
	network  chain.Info
	rpcURL   string
	contract *drop.Contract
	ws       *evm.WSClientImpl
	poller   *mintview.Poller
	shell    *shell.Server
	logger   *zap.Logger
}

// newApp wires the drop binding, poller and shell from cfg. When subscribe
// is set and a WebSocket endpoint is configured, new blocks trigger refreshes.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, subscribe bool) (*app, error) {
	network, err := cfg.Chain()
	if err != nil {
		return nil, err
	}
	rpcURL, err := cfg.RPCURL()
	if err != nil {
		return nil, err
	}

	rpc := evm.NewHTTPClient(rpcURL, evm.WithLatencyObserver(func(method string, d time.Duration, err error) {
		observability.RecordRPCLatency(method, d.Seconds(), err)
	}))

	var signer *drop.Signer
	if cfg.MinterPrivateKey != "" {
		signer, err = drop.NewSigner(cfg.MinterPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("minter key: %w", err)
		}
		logger.Info("claim wallet configured", zap.String("address", signer.Address().Hex()))
	} else {
		logger.Warn("MINTER_PRIVATE_KEY not set, claims will fail with no wallet connected")
	}

	contract, err := drop.New(drop.Options{
		RPC:         rpc,
		Address:     cfg.ContractAddress,
		Network:     network,
		Signer:      signer,
		IPFSGateway: cfg.IPFSGateway,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		network:  network,
		rpcURL:   rpcURL,
		contract: contract,
		logger:   logger,
	}

	var heads mintview.HeadSubscriber
	if subscribe && cfg.WSEndpoint != "" {
		ws, err := evm.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			logger.Warn("websocket unavailable, polling on interval only", zap.Error(err))
		} else {
			a.ws = ws
			heads = ws
		}
	}

	a.poller = mintview.NewPoller(mintview.PollerOptions{
		Reader:    contract,
		Heads:     heads,
		Interval:  cfg.GetRefreshInterval(),
		Logger:    logger,
		OnRefresh: recordRefresh(observability.DefaultMetrics),
	})

	a.shell = shell.New(shell.Config{
		Network:         network,
		RPCURL:          rpcURL,
		ContractAddress: cfg.ContractAddress,
		Branding:        shell.Branding(cfg.Branding),
		ClaimTimeout:    cfg.GetClaimTimeout(),
	}, a.poller, contract, logger)

	return a, nil
}

// Close stops the poller and the subscription.
func (a *app) Close() {
	a.poller.Close()
	if a.ws != nil {
		a.ws.Close()
	}
}

// recordRefresh exports every refresh outcome and the resulting page state.
func recordRefresh(m *observability.Metrics) func(mintview.RefreshResult) {
	return func(r mintview.RefreshResult) {
		status := observability.RefreshOK
		switch {
		case r.Stale:
			status = observability.RefreshStale
		case r.Err != nil:
			status = observability.RefreshError
		}
		m.RecordRefresh(r.Trigger, status, r.Duration.Seconds(), time.Now().Unix())

		if r.Stale {
			return
		}
		if supply, ok := r.Snapshot.Supply(); ok {
			m.SetSupply(supply.Claimed, supply.Unclaimed)
		}
		m.SetRenderState(string(mintview.Derive(r.Snapshot, mintview.DefaultQuantity).State), allStates...)
	}
}
