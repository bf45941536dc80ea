package model

import "time"

// Metrics holds the values derived from one pool read. Reserves are scaled to whole tokens.
type Metrics struct {
	BaseReserve    float64   `json:"base_reserve"`
	QuoteReserve   float64   `json:"quote_reserve"`
	ReferencePrice float64   `json:"reference_price"`
	Price          float64   `json:"price"`
	LiquidityUSD   float64   `json:"liquidity_usd"`
	Slot           uint64    `json:"slot"`
	ObservedAt     time.Time `json:"observed_at"`
}
