package dex

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

// PoolStateSize is the byte length of the pool state layout:
// base(8) quote(8) lpSupply(16) lastSnapSlot(8) and four u64 fee fields.
const PoolStateSize = 8 + 8 + 16 + 8 + 8 + 8 + 8 + 8

// DecodePoolState decodes a pool account buffer. The buffer must be exactly
// PoolStateSize bytes; nothing is returned on a partial decode.
func DecodePoolState(data []byte) (model.RawPoolState, error) {
	if len(data) != PoolStateSize {
		return model.RawPoolState{}, &DecodeError{Length: len(data), Want: PoolStateSize}
	}

	dec := bin.NewBinDecoder(data)
	var (
		state model.RawPoolState
		err   error
	)
	read64 := func(dst *uint64) {
		if err != nil {
			return
		}
		*dst, err = dec.ReadUint64(bin.LE)
	}

	read64(&state.BaseReserve)
	read64(&state.QuoteReserve)
	if err == nil {
		state.LpSupply, err = dec.ReadUint128(bin.LE)
	}
	read64(&state.LastSnapSlot)
	read64(&state.FeeGrowthGlobalBase)
	read64(&state.FeeGrowthGlobalQuote)
	read64(&state.FeeProtocolBase)
	read64(&state.FeeProtocolQuote)

	if err != nil {
		return model.RawPoolState{}, &DecodeError{Length: len(data), Want: PoolStateSize, Err: err}
	}
	return state, nil
}

// EncodePoolState writes state in the pool account layout.
func EncodePoolState(state model.RawPoolState) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(PoolStateSize)
	enc := bin.NewBinEncoder(buf)

	fields := []uint64{state.BaseReserve, state.QuoteReserve}
	for _, v := range fields {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return nil, fmt.Errorf("encode reserve: %w", err)
		}
	}
	if err := enc.WriteUint128(state.LpSupply, bin.LE); err != nil {
		return nil, fmt.Errorf("encode lp supply: %w", err)
	}
	fields = []uint64{
		state.LastSnapSlot,
		state.FeeGrowthGlobalBase,
		state.FeeGrowthGlobalQuote,
		state.FeeProtocolBase,
		state.FeeProtocolQuote,
	}
	for _, v := range fields {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return nil, fmt.Errorf("encode field: %w", err)
		}
	}
	return buf.Bytes(), nil
}
