package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/stream"
)

func runStream(cmd *cobra.Command, _ []string) error {
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

	b := stream.New(stream.Config{Listen: d.cfg.Listen, Interval: d.cfg.StreamInterval}, d.monitor, d.logger, d.recorder)
	if err := b.Start(ctx); err != nil {
		return err
	}
	d.logger.Info("streaming pool updates", zap.String("pool", d.addrs.Pool.String()))

	<-ctx.Done()
	stopBroadcaster(b, d.logger)
	return nil
}
