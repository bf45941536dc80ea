package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tony-42069/sol-liquidity-monitor/internal/condition"
	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

type inspectReport struct {
	Pool       string           `json:"pool"`
	Metrics    model.Metrics    `json:"metrics"`
	Conditions condition.Result `json:"conditions"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	d, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.monitor.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize monitor: %w", err)
	}
	metrics, err := d.monitor.GetPoolState(ctx)
	if err != nil {
		return fmt.Errorf("read pool state: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(inspectReport{
		Pool:       d.addrs.Pool.String(),
		Metrics:    metrics,
		Conditions: d.monitor.Evaluate(metrics),
	})
}
