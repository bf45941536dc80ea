package model

import "time"

// TradeOutcome records the single sale submitted during a run.
type TradeOutcome struct {
	Signature      string    `json:"signature"`
	Status         string    `json:"status"`
	Pool           string    `json:"pool"`
	Payer          string    `json:"payer"`
	ScratchAccount string    `json:"scratch_account"`
	AmountIn       uint64    `json:"amount_in"`
	MinAmountOut   uint64    `json:"min_amount_out"`
	Slot           uint64    `json:"slot"`
	SubmittedAt    time.Time `json:"submitted_at"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}
