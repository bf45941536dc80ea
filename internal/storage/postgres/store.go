package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_outcomes (
	signature        TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	pool_address     TEXT NOT NULL,
	payer            TEXT NOT NULL,
	scratch_account  TEXT NOT NULL,
	amount_in        NUMERIC(20, 0) NOT NULL,
	min_amount_out   NUMERIC(20, 0) NOT NULL,
	slot             BIGINT NOT NULL,
	submitted_at     TIMESTAMPTZ NOT NULL,
	confirmed_at     TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store provides Postgres persistence for trade outcomes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the outcome table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create trade_outcomes: %w", err)
	}
	return nil
}

// PutOutcome inserts or updates a trade outcome keyed by signature.
func (s *Store) PutOutcome(ctx context.Context, o model.TradeOutcome) error {
	var confirmedAt interface{}
	if !o.ConfirmedAt.IsZero() {
		confirmedAt = o.ConfirmedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_outcomes (
			signature, status, pool_address, payer, scratch_account,
			amount_in, min_amount_out, slot, submitted_at, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
		ON CONFLICT (signature)
		DO UPDATE SET
			status = EXCLUDED.status,
			slot = EXCLUDED.slot,
			confirmed_at = EXCLUDED.confirmed_at
	`,
		o.Signature,
		o.Status,
		o.Pool,
		o.Payer,
		o.ScratchAccount,
		fmt.Sprintf("%d", o.AmountIn),
		fmt.Sprintf("%d", o.MinAmountOut),
		int64(o.Slot),
		o.SubmittedAt,
		confirmedAt,
	)
	return err
}
