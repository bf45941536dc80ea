package condition

import (
	"testing"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
	"github.com/tony-42069/sol-liquidity-monitor/internal/pricing"
)

func band() model.Thresholds {
	return model.Thresholds{PriceMin: 4, PriceMax: 5, MinLiquidityUSD: 300_000}
}

func metricsFor(base, quote, ref float64) model.Metrics {
	return model.Metrics{
		BaseReserve:    base,
		QuoteReserve:   quote,
		ReferencePrice: ref,
		Price:          pricing.Price(base, quote, ref),
		LiquidityUSD:   pricing.LiquidityUSD(base, quote, ref),
	}
}

func TestEvaluateMet(t *testing.T) {
	res := Evaluate(metricsFor(80_000, 360_000, 1), band())
	if !res.Met {
		t.Fatalf("expected met, reasons: %+v", res.Reasons)
	}
	if len(res.Reasons) != 0 {
		t.Fatalf("unexpected reasons: %+v", res.Reasons)
	}
}

func TestEvaluatePriceOutOfBand(t *testing.T) {
	res := Evaluate(metricsFor(2000, 9000, 100), band())
	if res.Met {
		t.Fatalf("expected unmet")
	}
	if !res.Has(ReasonPriceOutOfRange) {
		t.Fatalf("missing price reason: %+v", res.Reasons)
	}
}

func TestEvaluateReportsBothReasons(t *testing.T) {
	res := Evaluate(model.Metrics{Price: 10, LiquidityUSD: 5}, band())
	if res.Met {
		t.Fatalf("expected unmet")
	}
	if !res.Has(ReasonPriceOutOfRange) || !res.Has(ReasonInsufficientLiquidity) {
		t.Fatalf("expected both reasons: %+v", res.Reasons)
	}
	if len(res.Reasons) != 2 {
		t.Fatalf("reasons %d, want 2", len(res.Reasons))
	}
}

func TestEvaluateLiquidityOnly(t *testing.T) {
	res := Evaluate(model.Metrics{Price: 4.5, LiquidityUSD: 299_999.99}, band())
	if res.Met {
		t.Fatalf("expected unmet")
	}
	if res.Has(ReasonPriceOutOfRange) || !res.Has(ReasonInsufficientLiquidity) {
		t.Fatalf("unexpected reasons: %+v", res.Reasons)
	}
}

func TestEvaluateBoundsInclusive(t *testing.T) {
	for _, price := range []float64{4, 5} {
		res := Evaluate(model.Metrics{Price: price, LiquidityUSD: 300_000}, band())
		if !res.Met {
			t.Fatalf("price %v should be inside the band: %+v", price, res.Reasons)
		}
	}
}

func TestEvaluateZeroPrice(t *testing.T) {
	res := Evaluate(metricsFor(0, 360_000, 1), band())
	if res.Met || !res.Has(ReasonPriceOutOfRange) {
		t.Fatalf("zero price should fail the band: %+v", res)
	}
}
