package condition

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

// Reason codes reported for unmet conditions.
const (
	ReasonPriceOutOfRange       = "price_out_of_range"
	ReasonInsufficientLiquidity = "insufficient_liquidity"
)

// Reason explains one unmet condition.
type Reason struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Met     bool     `json:"met"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// Has reports whether code is among the reasons.
func (r Result) Has(code string) bool {
	for _, reason := range r.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}

// Zap returns log fields describing the result.
func (r Result) Zap() []zap.Field {
	codes := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		codes = append(codes, reason.Code)
	}
	return []zap.Field{zap.Bool("met", r.Met), zap.Strings("reasons", codes)}
}

// Evaluate checks the price band (inclusive) and the liquidity floor. Both
// checks always run so every unmet condition is reported.
func Evaluate(m model.Metrics, t model.Thresholds) Result {
	inRange := m.Price >= t.PriceMin && m.Price <= t.PriceMax
	enoughLiquidity := m.LiquidityUSD >= t.MinLiquidityUSD

	var reasons []Reason
	if !inRange {
		reasons = append(reasons, Reason{
			Code:   ReasonPriceOutOfRange,
			Detail: fmt.Sprintf("price %.4f not in [%.4f, %.4f]", m.Price, t.PriceMin, t.PriceMax),
		})
	}
	if !enoughLiquidity {
		reasons = append(reasons, Reason{
			Code:   ReasonInsufficientLiquidity,
			Detail: fmt.Sprintf("liquidity %.2f below %.2f", m.LiquidityUSD, t.MinLiquidityUSD),
		})
	}

	return Result{Met: inRange && enoughLiquidity, Reasons: reasons}
}
