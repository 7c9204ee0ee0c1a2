package pricing

import (
	"fmt"
	"math"
)

const (
	solverSeedUSD    = 50.0
	solverEpsilonUSD = 0.01
	solverMaxIter    = 20
	minListingUSD    = 0.99

	// EconomyCeilingUSD is the maximum order value SpeedPAK Economy accepts.
	EconomyCeilingUSD = 800.0
)

// Engine computes listing prices and profit reports. It is stateless apart
// from its fee configuration; both directions are pure functions of their
// inputs and the supplied exchange context.
type Engine struct {
	fees FeeConfig
}

// NewEngine creates an Engine with the given fee model.
func NewEngine(fees FeeConfig) *Engine {
	return &Engine{fees: fees}
}

// SolveInput is the cost basis and target for a price solve.
type SolveInput struct {
	PurchasePriceJPY float64
	WeightGrams      float64
	Size             SizeClass
	Destination      string
	Category         Category
	TargetMargin     float64
	FX               ExchangeContext
}

// Quote is the solver's output for one invocation. Immutable once built.
type Quote struct {
	SellingPriceUSD    float64      `json:"selling_price_usd"`
	Fees               FeeBreakdown `json:"fees"`
	ShippingJPY        float64      `json:"shipping_jpy"`
	DutyJPY            float64      `json:"ddp_jpy"`
	CustomsFeeJPY      float64      `json:"customs_fee_jpy"`
	TotalCostJPY       float64      `json:"total_cost_jpy"`
	NetProceedsJPY     float64      `json:"net_proceeds_jpy"`
	EstimatedProfitJPY float64      `json:"estimated_profit_jpy"`
	// ProfitRate is a percentage (15.0 = 15%), matching the monitor's
	// convention.
	ProfitRate    float64 `json:"profit_rate"`
	ExchangeRate  float64 `json:"exchange_rate"`
	EffectiveRate float64 `json:"effective_rate"`
	Converged     bool    `json:"converged"`
	Iterations    int     `json:"iterations"`
}

func (in SolveInput) validate() error {
	if !(in.PurchasePriceJPY > 0) || math.IsInf(in.PurchasePriceJPY, 0) {
		return fmt.Errorf("purchase price must be a positive amount, got %v", in.PurchasePriceJPY)
	}
	if !(in.WeightGrams > 0) || math.IsInf(in.WeightGrams, 0) {
		return fmt.Errorf("weight must be positive, got %v", in.WeightGrams)
	}
	if math.IsNaN(in.TargetMargin) || in.TargetMargin <= 0 || in.TargetMargin >= 1 {
		return fmt.Errorf("target profit rate must be between 0 and 1 exclusive, got %v", in.TargetMargin)
	}
	return nil
}

// Solve back-solves the listing price that yields the target margin. Fees and
// duty both depend on the unknown price, so the price is found by fixed-point
// iteration: each pass recomputes the price-dependent costs at the current
// candidate, then inverts the linear (flat-rate) portion of the fee relation
// to get the next candidate. Hitting the iteration bound without meeting the
// epsilon is best-effort, not an error; Converged reports which happened.
func (e *Engine) Solve(in SolveInput) (*Quote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	shippingJPY := ShippingRateJPY(in.Destination, in.Size, in.WeightGrams)
	dutyRate := DutyRate(in.Category)

	price := solverSeedUSD
	converged := false
	iterations := 0

	for i := 0; i < solverMaxIter; i++ {
		iterations = i + 1

		feeBase := e.fees.FeeBase(price)
		perOrder := e.fees.perOrderFee(feeBase)

		dutyUSD := price * dutyRate
		ddpUSD := dutyUSD * (1 + DDPProcessingFeeRate)
		dutyJPY := ddpUSD * in.FX.MarketRate

		totalCostJPY := in.PurchasePriceJPY + shippingJPY + dutyJPY + CustomsClearanceFeeJPY
		requiredProceedsJPY := totalCostJPY / (1 - in.TargetMargin)

		// Linearize: net = price − feeBase·r·(1+tax) − perOrder·(1+tax),
		// with r the blended proportional rate at the current price.
		r := e.fees.blendedFeeRate(feeBase, in.Category)
		denom := 1 - (1+e.fees.SalesTaxRate)*r*(1+e.fees.FeeTaxRate)
		if denom <= 0 {
			return nil, fmt.Errorf("fee rates leave no net proceeds (denominator %v)", denom)
		}

		next := (requiredProceedsJPY/in.FX.EffectiveRate + perOrder*(1+e.fees.FeeTaxRate)) / denom

		if math.Abs(next-price) < solverEpsilonUSD {
			price = next
			converged = true
			break
		}
		price = next
	}

	finalPrice := roundPsychological(price)

	report := e.profitAt(finalPrice, in.PurchasePriceJPY, shippingJPY, dutyRate, in.Category, in.FX)

	return &Quote{
		SellingPriceUSD:    finalPrice,
		Fees:               report.fees,
		ShippingJPY:        shippingJPY,
		DutyJPY:            math.Round(report.dutyJPY),
		CustomsFeeJPY:      CustomsClearanceFeeJPY,
		TotalCostJPY:       math.Round(report.totalCostJPY),
		NetProceedsJPY:     math.Round(report.netProceedsJPY),
		EstimatedProfitJPY: math.Round(report.profitJPY),
		ProfitRate:         math.Round(report.marginFraction*1000) / 10,
		ExchangeRate:       in.FX.MarketRate,
		EffectiveRate:      in.FX.EffectiveRate,
		Converged:          converged,
		Iterations:         iterations,
	}, nil
}

// profitComponents is the shared forward computation behind Solve's final
// pass and Evaluate.
type profitComponents struct {
	fees           FeeBreakdown
	netProceedsUSD float64
	netProceedsJPY float64
	dutyJPY        float64
	totalCostJPY   float64
	profitJPY      float64
	marginFraction float64
}

func (e *Engine) profitAt(price, purchaseJPY, shippingJPY, dutyRate float64, cat Category, fx ExchangeContext) profitComponents {
	fees := e.fees.Breakdown(price, cat)

	netUSD := price - fees.Total
	netJPY := netUSD * fx.EffectiveRate

	dutyUSD := price * dutyRate
	dutyJPY := dutyUSD * (1 + DDPProcessingFeeRate) * fx.MarketRate

	totalCostJPY := purchaseJPY + shippingJPY + dutyJPY + CustomsClearanceFeeJPY
	profitJPY := netJPY - totalCostJPY

	margin := 0.0
	if netJPY > 0 {
		margin = profitJPY / netJPY
	}

	return profitComponents{
		fees:           fees,
		netProceedsUSD: netUSD,
		netProceedsJPY: netJPY,
		dutyJPY:        dutyJPY,
		totalCostJPY:   totalCostJPY,
		profitJPY:      profitJPY,
		marginFraction: margin,
	}
}

// roundPsychological rounds to the marketplace-conventional $X.99 ending,
// never below $0.99.
func roundPsychological(price float64) float64 {
	return math.Max(math.Round(price)-0.01, minListingUSD)
}
