package model

import bin "github.com/gagliardetto/binary"

// RawPoolState is the fixed-layout reserve and fee record of the pool account.
type RawPoolState struct {
	BaseReserve          uint64      `json:"base_reserve"`
	QuoteReserve         uint64      `json:"quote_reserve"`
	LpSupply             bin.Uint128 `json:"lp_supply"`
	LastSnapSlot         uint64      `json:"last_snap_slot"`
	FeeGrowthGlobalBase  uint64      `json:"fee_growth_global_base"`
	FeeGrowthGlobalQuote uint64      `json:"fee_growth_global_quote"`
	FeeProtocolBase      uint64      `json:"fee_protocol_base"`
	FeeProtocolQuote     uint64      `json:"fee_protocol_quote"`
}
