package pricing

import (
	"context"
	"fmt"
)

// DefaultReferencePrice stands in for the quote asset's market price.
const DefaultReferencePrice = 100.0

// Oracle supplies the reference price of the quote asset.
type Oracle interface {
	ReferencePrice(ctx context.Context) (float64, error)
}

// FixedOracle always reports the same price.
type FixedOracle float64

func (o FixedOracle) ReferencePrice(context.Context) (float64, error) {
	if o <= 0 {
		return 0, fmt.Errorf("reference price must be positive: %v", float64(o))
	}
	return float64(o), nil
}
