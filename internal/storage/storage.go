package storage

import (
	"context"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

// Storage defines a sink for trade outcomes.
type Storage interface {
	PutOutcome(ctx context.Context, outcome model.TradeOutcome) error
}
