package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/chain"
	"github.com/tony-42069/sol-liquidity-monitor/internal/condition"
	"github.com/tony-42069/sol-liquidity-monitor/internal/dex"
	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
	"github.com/tony-42069/sol-liquidity-monitor/internal/pricing"
	"github.com/tony-42069/sol-liquidity-monitor/internal/telemetry"
)

var (
	// ErrPoolNotFound is returned by Initialize when the pool account is absent.
	ErrPoolNotFound = errors.New("pool account not found")
	// ErrAccountNotFound is returned when a ready pool's account disappears.
	ErrAccountNotFound = errors.New("pool account disappeared")
	// ErrNotInitialized is returned when the pool is read before Initialize succeeds.
	ErrNotInitialized = errors.New("pool monitor not initialized")
)

// AccountReader reads raw account data from the ledger.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Monitor reads and evaluates a single pool.
type Monitor struct {
	reader     AccountReader
	pool       solana.PublicKey
	oracle     pricing.Oracle
	thresholds model.Thresholds
	logger     *zap.Logger
	recorder   *telemetry.Recorder
	ready      atomic.Bool
	now        func() time.Time
}

// New builds a Monitor in the uninitialized state.
func New(reader AccountReader, pool solana.PublicKey, oracle pricing.Oracle, thresholds model.Thresholds, logger *zap.Logger, recorder *telemetry.Recorder) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if oracle == nil {
		oracle = pricing.FixedOracle(pricing.DefaultReferencePrice)
	}
	return &Monitor{
		reader:     reader,
		pool:       pool,
		oracle:     oracle,
		thresholds: thresholds,
		logger:     logger.Named("monitor"),
		recorder:   recorder,
		now:        time.Now,
	}
}

// PoolAddress returns the configured pool.
func (m *Monitor) PoolAddress() solana.PublicKey {
	return m.pool
}

// Ready reports whether Initialize has succeeded.
func (m *Monitor) Ready() bool {
	return m.ready.Load()
}

// Initialize confirms the pool account exists. On failure the monitor stays
// uninitialized and Initialize may be called again.
func (m *Monitor) Initialize(ctx context.Context) error {
	if m.reader == nil {
		return fmt.Errorf("account reader is nil")
	}
	if _, err := m.reader.GetAccountInfo(ctx, m.pool); err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, m.pool)
		}
		return fmt.Errorf("read pool %s: %w", m.pool, err)
	}
	m.ready.Store(true)
	m.logger.Info("pool initialized", zap.Stringer("pool", m.pool))
	return nil
}

// GetPoolState re-reads the pool account and computes fresh metrics.
func (m *Monitor) GetPoolState(ctx context.Context) (model.Metrics, error) {
	if !m.ready.Load() {
		return model.Metrics{}, ErrNotInitialized
	}

	data, err := m.reader.GetAccountInfo(ctx, m.pool)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			return model.Metrics{}, fmt.Errorf("%w: %s", ErrAccountNotFound, m.pool)
		}
		return model.Metrics{}, fmt.Errorf("read pool: %w", err)
	}

	state, err := dex.DecodePoolState(data)
	if err != nil {
		m.logger.Debug("undecodable pool account", zap.Int("len", len(data)), zap.String("data", hexutil.Encode(data)))
		return model.Metrics{}, err
	}

	ref, err := m.oracle.ReferencePrice(ctx)
	if err != nil {
		return model.Metrics{}, fmt.Errorf("reference price: %w", err)
	}

	base := pricing.Scale(state.BaseReserve)
	quote := pricing.Scale(state.QuoteReserve)
	metrics := model.Metrics{
		BaseReserve:    base,
		QuoteReserve:   quote,
		ReferencePrice: ref,
		Price:          pricing.Price(base, quote, ref),
		LiquidityUSD:   pricing.LiquidityUSD(base, quote, ref),
		Slot:           state.LastSnapSlot,
		ObservedAt:     m.now().UTC(),
	}
	m.recorder.Observe(metrics.Price, metrics.LiquidityUSD)
	return metrics, nil
}

// Evaluate applies the configured thresholds to metrics.
func (m *Monitor) Evaluate(metrics model.Metrics) condition.Result {
	return condition.Evaluate(metrics, m.thresholds)
}

// CheckConditions reads, evaluates and logs the pool. Failures are logged and
// reported as false so the poll loop keeps running.
func (m *Monitor) CheckConditions(ctx context.Context) bool {
	metrics, err := m.GetPoolState(ctx)
	if err != nil {
		m.logger.Warn("check conditions failed", zap.Error(err))
		m.recorder.PollTick(telemetry.ResultError)
		return false
	}

	res := m.Evaluate(metrics)
	fields := []zap.Field{
		zap.Float64("base_reserve", metrics.BaseReserve),
		zap.Float64("quote_reserve", metrics.QuoteReserve),
		zap.Float64("price", metrics.Price),
		zap.Float64("liquidity_usd", metrics.LiquidityUSD),
	}
	fields = append(fields, res.Zap()...)

	if res.Met {
		m.logger.Info("trading conditions met", fields...)
		m.recorder.PollTick(telemetry.ResultMet)
		return true
	}

	m.logger.Info("trading conditions not met", fields...)
	for _, reason := range res.Reasons {
		m.logger.Info("unmet condition", zap.String("code", reason.Code), zap.String("detail", reason.Detail))
	}
	m.recorder.PollTick(telemetry.ResultUnmet)
	return false
}
