package pricing

import (
	"fmt"
	"math"
)

// EvaluateInput is a what-if: an explicit candidate price plus the cost
// inputs a solve would have used.
type EvaluateInput struct {
	PriceUSD         float64
	PurchasePriceJPY float64
	WeightGrams      float64
	Size             SizeClass
	Destination      string
	Category         Category
	FX               ExchangeContext
}

// ProfitReport is the forward direction's output: every cost and fee
// component realized at the given price.
type ProfitReport struct {
	PriceUSD           float64      `json:"price_usd"`
	Fees               FeeBreakdown `json:"fees"`
	NetProceedsUSD     float64      `json:"net_proceeds_usd"`
	NetProceedsJPY     float64      `json:"net_proceeds_jpy"`
	ShippingJPY        float64      `json:"shipping_jpy"`
	DutyJPY            float64      `json:"ddp_jpy"`
	CustomsFeeJPY      float64      `json:"customs_fee_jpy"`
	TotalCostJPY       float64      `json:"total_cost_jpy"`
	EstimatedProfitJPY float64      `json:"estimated_profit_jpy"`
	// ProfitRate is a fraction of net proceeds (0.15 = 15%), the same margin
	// law the solver targets.
	ProfitRate float64 `json:"profit_rate"`
	// OverEconomyCeiling flags prices SpeedPAK Economy cannot carry. It is
	// informational; the evaluation itself still succeeds.
	OverEconomyCeiling bool            `json:"over_economy_ceiling"`
	Exchange           ExchangeContext `json:"exchange"`
}

// Evaluate computes the realized margin at a fixed price. No iteration is
// needed: with the price given there is no circularity between price and
// duty. Pure function of its inputs; identical inputs and an unchanged
// exchange context produce identical output.
func (e *Engine) Evaluate(in EvaluateInput) (*ProfitReport, error) {
	if !(in.PriceUSD > 0) || math.IsInf(in.PriceUSD, 0) {
		return nil, fmt.Errorf("price must be a positive amount, got %v", in.PriceUSD)
	}
	if !(in.PurchasePriceJPY > 0) || math.IsInf(in.PurchasePriceJPY, 0) {
		return nil, fmt.Errorf("purchase price must be a positive amount, got %v", in.PurchasePriceJPY)
	}
	if !(in.WeightGrams > 0) || math.IsInf(in.WeightGrams, 0) {
		return nil, fmt.Errorf("weight must be positive, got %v", in.WeightGrams)
	}

	shippingJPY := ShippingRateJPY(in.Destination, in.Size, in.WeightGrams)
	dutyRate := DutyRate(in.Category)

	c := e.profitAt(in.PriceUSD, in.PurchasePriceJPY, shippingJPY, dutyRate, in.Category, in.FX)

	return &ProfitReport{
		PriceUSD:           in.PriceUSD,
		Fees:               c.fees,
		NetProceedsUSD:     roundCents(c.netProceedsUSD),
		NetProceedsJPY:     math.Round(c.netProceedsJPY),
		ShippingJPY:        shippingJPY,
		DutyJPY:            math.Round(c.dutyJPY),
		CustomsFeeJPY:      CustomsClearanceFeeJPY,
		TotalCostJPY:       math.Round(c.totalCostJPY),
		EstimatedProfitJPY: math.Round(c.profitJPY),
		ProfitRate:         c.marginFraction,
		OverEconomyCeiling: in.PriceUSD >= EconomyCeilingUSD,
		Exchange:           in.FX,
	}, nil
}
