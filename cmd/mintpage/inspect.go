package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drop-mint/internal/mintview"
	"drop-mint/internal/shell"
)

// runInspect refreshes once and prints the state the page would render.
func runInspect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.poller.Refresh(ctx); err != nil {
		logger.Warn("refresh incomplete", zap.Error(err))
	}

	snap := a.poller.Snapshot()
	return printJSON(cmd, shell.StateResponse{
		View:       mintview.Derive(snap, mintview.DefaultQuantity),
		Generation: snap.Generation,
		UpdatedAt:  snap.UpdatedAt,
		Network:    string(a.network.Network),
		ChainID:    a.network.ChainID,
		Contract:   cfg.ContractAddress,
	})
}
