package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return NewEngine(DefaultFeeConfig())
}

func TestSolve_ReferenceScenario(t *testing.T) {
	// ¥5000 purchase, 400g StandardA to the US, default category, 15%
	// target, USD/JPY 150.
	eng := testEngine()
	fx := NewExchangeContext(150)

	q, err := eng.Solve(SolveInput{
		PurchasePriceJPY: 5000,
		WeightGrams:      400,
		Size:             SizeStandardA,
		Destination:      "US",
		Category:         CategoryDefault,
		TargetMargin:     0.15,
		FX:               fx,
	})
	require.NoError(t, err)

	assert.True(t, q.Converged, "should converge well within the iteration bound")
	assert.Equal(t, 1367.0, q.ShippingJPY)
	assert.Equal(t, CustomsClearanceFeeJPY, q.CustomsFeeJPY)

	// Price carries the conventional .99 ending.
	cents := math.Round(math.Mod(q.SellingPriceUSD, 1) * 100)
	assert.Equal(t, 99.0, cents, "price %v should end in .99", q.SellingPriceUSD)

	// Total cost is the sum of its components.
	assert.InDelta(t, 5000+1367+CustomsClearanceFeeJPY+q.DutyJPY, q.TotalCostJPY, 1.0)

	// Duty is 15% of price plus the processing surcharge, at market rate.
	wantDuty := q.SellingPriceUSD * 0.15 * (1 + DDPProcessingFeeRate) * 150
	assert.InDelta(t, wantDuty, q.DutyJPY, 1.0)

	assert.GreaterOrEqual(t, q.ProfitRate, 14.8)
	assert.LessOrEqual(t, q.ProfitRate, 15.2)
}

func TestSolve_RejectsMarginAtOrAboveOne(t *testing.T) {
	eng := testEngine()
	fx := NewExchangeContext(150)

	for _, m := range []float64{1.0, 1.5, 0, -0.1, math.NaN()} {
		_, err := eng.Solve(SolveInput{
			PurchasePriceJPY: 5000,
			WeightGrams:      400,
			Size:             SizeStandardA,
			Destination:      "US",
			Category:         CategoryDefault,
			TargetMargin:     m,
			FX:               fx,
		})
		assert.Error(t, err, "margin %v must be rejected", m)
	}
}

func TestSolve_RejectsInvalidInputs(t *testing.T) {
	eng := testEngine()
	fx := NewExchangeContext(150)

	base := SolveInput{
		PurchasePriceJPY: 5000,
		WeightGrams:      400,
		Size:             SizeStandardA,
		Destination:      "US",
		Category:         CategoryDefault,
		TargetMargin:     0.15,
		FX:               fx,
	}

	in := base
	in.PurchasePriceJPY = 0
	_, err := eng.Solve(in)
	assert.Error(t, err)

	in = base
	in.PurchasePriceJPY = math.Inf(1)
	_, err = eng.Solve(in)
	assert.Error(t, err)

	in = base
	in.WeightGrams = -5
	_, err = eng.Solve(in)
	assert.Error(t, err)
}

func TestSolveEvaluate_RoundTrip(t *testing.T) {
	// evaluate(solve(cost, m)).margin ≈ m. The flat-rate linearization is
	// exact at the fixed point, so the residual drift comes from cent
	// rounding and the .99 price ending; the ending moves the price by at
	// most ±$0.50.
	eng := testEngine()
	fx := NewExchangeContext(152.3)

	for _, tc := range []struct {
		purchase float64
		weight   float64
		size     SizeClass
		cat      Category
		margin   float64
	}{
		{3000, 300, SizeStandardA, CategoryDefault, 0.15},
		{12000, 900, SizeStandardB, CategoryElectronics, 0.10},
		{45000, 700, SizeStandardA, CategoryWatches, 0.20},
		{250000, 600, SizeStandardA, CategoryWatches, 0.15},
		{8000, 4500, SizeLargeA, CategoryToys, 0.25},
		{20000, 1200, SizeStandardB, CategoryClothing, 0.12},
	} {
		q, err := eng.Solve(SolveInput{
			PurchasePriceJPY: tc.purchase,
			WeightGrams:      tc.weight,
			Size:             tc.size,
			Destination:      "US",
			Category:         tc.cat,
			TargetMargin:     tc.margin,
			FX:               fx,
		})
		require.NoError(t, err)
		require.True(t, q.Converged, "purchase %v should converge", tc.purchase)

		rep, err := eng.Evaluate(EvaluateInput{
			PriceUSD:         q.SellingPriceUSD,
			PurchasePriceJPY: tc.purchase,
			WeightGrams:      tc.weight,
			Size:             tc.size,
			Destination:      "US",
			Category:         tc.cat,
			FX:               fx,
		})
		require.NoError(t, err)

		assert.InDelta(t, tc.margin, rep.ProfitRate, 0.008,
			"purchase=%v cat=%s margin=%v solved=%v realized=%v",
			tc.purchase, tc.cat, tc.margin, q.SellingPriceUSD, rep.ProfitRate)
	}
}

func TestSolve_MonotonicInPurchasePrice(t *testing.T) {
	eng := testEngine()
	fx := NewExchangeContext(150)

	prev := 0.0
	for purchase := 1000.0; purchase <= 50000; purchase += 1000 {
		q, err := eng.Solve(SolveInput{
			PurchasePriceJPY: purchase,
			WeightGrams:      400,
			Size:             SizeStandardA,
			Destination:      "US",
			Category:         CategoryDefault,
			TargetMargin:     0.15,
			FX:               fx,
		})
		require.NoError(t, err)
		if q.SellingPriceUSD < prev {
			t.Fatalf("price decreased from %v to %v when purchase rose to ¥%v",
				prev, q.SellingPriceUSD, purchase)
		}
		prev = q.SellingPriceUSD
	}
}

func TestSolve_PriceFloor(t *testing.T) {
	// A near-zero cost basis still never prices below $0.99.
	eng := testEngine()
	fx := NewExchangeContext(150)

	q, err := eng.Solve(SolveInput{
		PurchasePriceJPY: 1,
		WeightGrams:      1,
		Size:             SizeStandardA,
		Destination:      "US",
		Category:         CategoryElectronics,
		TargetMargin:     0.01,
		FX:               fx,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.SellingPriceUSD, 0.99)
}

func TestEvaluate_Idempotent(t *testing.T) {
	eng := testEngine()
	in := EvaluateInput{
		PriceUSD:         79.99,
		PurchasePriceJPY: 6200,
		WeightGrams:      850,
		Size:             SizeStandardB,
		Destination:      "US",
		Category:         CategoryToys,
		FX:               NewExchangeContext(149.7),
	}

	a, err := eng.Evaluate(in)
	require.NoError(t, err)
	b, err := eng.Evaluate(in)
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical inputs must produce bit-identical output")
}

func TestEvaluate_EconomyCeilingFlag(t *testing.T) {
	eng := testEngine()
	fx := NewExchangeContext(150)

	rep, err := eng.Evaluate(EvaluateInput{
		PriceUSD:         850,
		PurchasePriceJPY: 60000,
		WeightGrams:      900,
		Size:             SizeStandardB,
		Destination:      "US",
		Category:         CategoryWatches,
		FX:               fx,
	})
	require.NoError(t, err)
	assert.True(t, rep.OverEconomyCeiling)

	rep, err = eng.Evaluate(EvaluateInput{
		PriceUSD:         120,
		PurchasePriceJPY: 9000,
		WeightGrams:      900,
		Size:             SizeStandardB,
		Destination:      "US",
		Category:         CategoryWatches,
		FX:               fx,
	})
	require.NoError(t, err)
	assert.False(t, rep.OverEconomyCeiling)
}

func TestEvaluate_RejectsNonPositivePrice(t *testing.T) {
	eng := testEngine()
	_, err := eng.Evaluate(EvaluateInput{
		PriceUSD:         0,
		PurchasePriceJPY: 100,
		WeightGrams:      100,
		Size:             SizeStandardA,
		Destination:      "US",
		Category:         CategoryDefault,
		FX:               NewExchangeContext(150),
	})
	assert.Error(t, err)
}

func TestEffectiveRateBelowMarket(t *testing.T) {
	fx := NewExchangeContext(150)
	assert.Less(t, fx.EffectiveRate, fx.MarketRate)
	assert.InDelta(t, 147.0, fx.EffectiveRate, 1e-9)
}
