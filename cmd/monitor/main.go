package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tony-42069/sol-liquidity-monitor/internal/chain"
	"github.com/tony-42069/sol-liquidity-monitor/internal/config"
	"github.com/tony-42069/sol-liquidity-monitor/internal/executor"
	"github.com/tony-42069/sol-liquidity-monitor/internal/monitor"
	"github.com/tony-42069/sol-liquidity-monitor/internal/pricing"
	"github.com/tony-42069/sol-liquidity-monitor/internal/runner"
	"github.com/tony-42069/sol-liquidity-monitor/internal/signer"
	"github.com/tony-42069/sol-liquidity-monitor/internal/storage"
	"github.com/tony-42069/sol-liquidity-monitor/internal/storage/postgres"
	"github.com/tony-42069/sol-liquidity-monitor/internal/stream"
	"github.com/tony-42069/sol-liquidity-monitor/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:          "monitor",
		Short:        "Solana pool liquidity monitor and one-shot seller",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the pool and sell once when conditions are met",
		RunE:  runMonitor,
	}
	poolFlags(runCmd.Flags())
	runCmd.Flags().String("sell-amount", "24084.46", "token amount to sell")
	runCmd.Flags().Duration("poll-interval", 5*time.Second, "interval between checks")
	runCmd.Flags().Int("max-retries", 3, "initialization retry attempts")
	runCmd.Flags().Duration("retry-delay", time.Second, "initial retry delay")
	runCmd.Flags().Uint("submit-max-retries", 3, "rpc resubmission attempts for the sale")
	runCmd.Flags().Duration("confirm-timeout", 60*time.Second, "sale confirmation timeout")
	runCmd.Flags().Uint64("min-amount-out", 0, "minimum swap output in base units")
	runCmd.Flags().String("derivation-path", signer.DefaultDerivationPath, "wallet derivation path")
	runCmd.Flags().Bool("stream", false, "also serve the push channel")
	runCmd.Flags().String("listen", stream.DefaultListen, "push channel listen address")
	runCmd.Flags().Duration("stream-interval", stream.DefaultInterval, "push channel update interval")
	runCmd.Flags().String("journal", "./data/trades.jsonl", "trade outcome JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for trade outcomes (overrides journal)")
	root.AddCommand(runCmd)

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Serve price and liquidity updates over websocket",
		RunE:  runStream,
	}
	poolFlags(streamCmd.Flags())
	streamCmd.Flags().String("listen", stream.DefaultListen, "listen address")
	streamCmd.Flags().Duration("stream-interval", stream.DefaultInterval, "update interval")
	root.AddCommand(streamCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Read the pool once and print metrics and conditions as JSON",
		RunE:  runInspect,
	}
	poolFlags(inspectCmd.Flags())
	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func poolFlags(fs *pflag.FlagSet) {
	fs.String("rpc", config.DefaultRPC, "Solana RPC URL")
	fs.String("pool", config.DefaultPool, "pool account address")
	fs.String("token-mint", config.DefaultTokenMint, "token mint address")
	fs.String("amm-program", config.DefaultAMMProgram, "AMM program id")
	fs.Float64("price-min", 4, "lower bound of the price band (inclusive)")
	fs.Float64("price-max", 5, "upper bound of the price band (inclusive)")
	fs.Float64("min-liquidity", 300000, "minimum pool liquidity in USD")
	fs.Float64("reference-price", pricing.DefaultReferencePrice, "quote asset price in USD")
	fs.String("commitment", "confirmed", "commitment level (processed, confirmed, finalized)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// deps are the components shared by every command.
type deps struct {
	cfg      config.Config
	addrs    config.Addresses
	logger   *zap.Logger
	client   *chain.Client
	recorder *telemetry.Recorder
	monitor  *monitor.Monitor
}

func setup(cmd *cobra.Command) (*deps, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	addrs, _ := cfg.Addresses()
	thresholds, _ := cfg.Thresholds()

	client, err := chain.NewClient(cfg.RPCURL, chain.Options{
		Commitment:     cfg.CommitmentType(),
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	recorder := telemetry.New()
	mon := monitor.New(client, addrs.Pool, pricing.FixedOracle(cfg.ReferencePrice), thresholds, logger, recorder)

	cleanup := func() {
		_ = client.Close()
		_ = logger.Sync()
	}
	return &deps{
		cfg:      cfg,
		addrs:    addrs,
		logger:   logger,
		client:   client,
		recorder: recorder,
		monitor:  mon,
	}, cleanup, nil
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	d, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg, logger := d.cfg, d.logger

	keypair, err := signer.FromMnemonic(cfg.SeedPhrase, cfg.DerivationPath)
	if err != nil {
		logger.Error("load wallet failed", zap.Error(err))
		return fmt.Errorf("load wallet: %w", err)
	}
	thresholds, _ := cfg.Thresholds()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	exec := executor.New(executor.Config{
		TokenMint:        d.addrs.TokenMint,
		ProgramID:        d.addrs.AMMProgram,
		SellAmount:       thresholds.SellAmount,
		MinAmountOut:     cfg.MinAmountOut,
		SubmitMaxRetries: cfg.SubmitMaxRetries,
		Commitment:       cfg.CommitmentType(),
	}, d.client, keypair, d.monitor, logger, d.recorder)

	if cfg.Stream {
		b := stream.New(stream.Config{Listen: cfg.Listen, Interval: cfg.StreamInterval}, d.monitor, logger, d.recorder)
		if err := b.Start(ctx); err != nil {
			return err
		}
		defer stopBroadcaster(b, logger)
	}

	logger.Info("liquidity monitor start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", d.addrs.Pool.String()),
		zap.String("token_mint", d.addrs.TokenMint.String()),
		zap.String("wallet", keypair.PublicKey().String()),
		zap.String("sell_amount", thresholds.SellAmount.String()),
		zap.Float64("price_min", cfg.PriceMin),
		zap.Float64("price_max", cfg.PriceMax),
		zap.Float64("min_liquidity_usd", cfg.MinLiquidity),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("stream", cfg.Stream),
	)

	r := runner.NewRunner(runner.RunConfig{
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
	}, d.monitor, exec, sink, logger)

	outcome, err := r.Run(ctx)
	if err != nil {
		logger.Error("fatal error", zap.Error(err))
		var failed *executor.TransactionFailedError
		if errors.As(err, &failed) {
			logger.Error("sale transaction failed", zap.String("signature", failed.Signature), zap.String("detail", failed.Detail))
		}
		return err
	}
	if outcome != nil {
		logger.Info("sale executed",
			zap.String("signature", outcome.Signature),
			zap.Uint64("slot", outcome.Slot),
			zap.Uint64("amount_in", outcome.AmountIn),
		)
		return nil
	}
	logger.Info("monitor stopped without a sale")
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Storage, func(), error) {
	if cfg.PgDSN == "" {
		logger.Debug("journaling outcomes to file", zap.String("path", cfg.Journal))
		return storage.NewJsonlStorage(cfg.Journal), func() {}, nil
	}

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

func stopBroadcaster(b *stream.Broadcaster, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		logger.Warn("stop stream failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
