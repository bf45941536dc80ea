package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/executor"
	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
	"github.com/tony-42069/sol-liquidity-monitor/internal/storage"
)

// RunConfig holds runtime settings for the poll loop.
type RunConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Monitor is the pool monitor driven by the loop.
type Monitor interface {
	Initialize(ctx context.Context) error
	CheckConditions(ctx context.Context) bool
}

// Executor submits the sale.
type Executor interface {
	ExecuteSale(ctx context.Context) (model.TradeOutcome, error)
}

// Runner polls the monitor and sells once when the conditions are met.
type Runner struct {
	cfg      RunConfig
	monitor  Monitor
	executor Executor
	storage  storage.Storage
	logger   *zap.Logger
	executed bool
}

// NewRunner builds a Runner with its dependencies. storageSink may be nil.
func NewRunner(cfg RunConfig, monitor Monitor, exec Executor, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		monitor:  monitor,
		executor: exec,
		storage:  storageSink,
		logger:   logger.Named("runner"),
	}
}

// Run initializes the monitor and polls until the sale is executed, it fails,
// or ctx is cancelled. A cancelled run returns a nil outcome and a nil error.
func (r *Runner) Run(ctx context.Context) (*model.TradeOutcome, error) {
	if r.monitor == nil {
		return nil, fmt.Errorf("monitor is nil")
	}
	if r.executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if r.cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than zero")
	}
	if r.executed {
		return nil, fmt.Errorf("sale already executed")
	}

	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryDelay, nil, func(ctx context.Context) error {
		err := r.monitor.Initialize(ctx)
		if err != nil {
			r.logger.Warn("initialize failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("initialize monitor: %w", err)
	}

	r.logger.Info("monitoring loop start", zap.Duration("poll_interval", r.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("monitoring loop stopped")
			return nil, nil
		default:
		}

		if r.check(ctx) {
			r.logger.Info("trading conditions met, executing sale")
			return r.execute(ctx)
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("monitoring loop stopped")
			return nil, nil
		case <-timer.C:
		}
	}
}

func (r *Runner) check(ctx context.Context) (met bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("condition check panicked", zap.Any("panic", rec))
			met = false
		}
	}()
	return r.monitor.CheckConditions(ctx)
}

func (r *Runner) execute(ctx context.Context) (*model.TradeOutcome, error) {
	r.executed = true

	outcome, err := r.executor.ExecuteSale(ctx)
	if outcome.Signature != "" {
		r.record(ctx, outcome)
	}
	if err != nil {
		var failed *executor.TransactionFailedError
		if errors.As(err, &failed) {
			return nil, fmt.Errorf("sale rejected on-chain: %w", err)
		}
		return nil, fmt.Errorf("execute sale: %w", err)
	}
	return &outcome, nil
}

func (r *Runner) record(ctx context.Context, outcome model.TradeOutcome) {
	if r.storage == nil {
		return
	}
	if err := r.storage.PutOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		r.logger.Error("record outcome failed", zap.Error(err), zap.String("signature", outcome.Signature))
	}
}
