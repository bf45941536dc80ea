package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimals is the token decimal count shared by both pool assets.
const Decimals = 9

// Scale converts a raw base-unit quantity to whole tokens.
func Scale(raw uint64) float64 {
	return decimal.NewFromUint64(raw).Shift(-Decimals).InexactFloat64()
}

// Price returns the quote-per-base price multiplied by the reference price of
// the quote asset. A zero base reserve yields zero.
func Price(base, quote, referencePrice float64) float64 {
	if base == 0 {
		return 0
	}
	return quote / base * referencePrice
}

// LiquidityUSD values both legs of the pool in the reference currency.
func LiquidityUSD(base, quote, referencePrice float64) float64 {
	return base*Price(base, quote, referencePrice) + quote*referencePrice
}

// ToRaw converts a whole-token amount to base units, dropping fractional units.
func ToRaw(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}
	raw := amount.Shift(Decimals).Truncate(0).BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("amount overflows u64: %s", amount)
	}
	return raw.Uint64(), nil
}
