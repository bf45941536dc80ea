package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Thresholds is the trigger configuration. It is built once at startup and only read afterwards.
type Thresholds struct {
	PriceMin        float64
	PriceMax        float64
	MinLiquidityUSD float64
	SellAmount      decimal.Decimal
	PollInterval    time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}
