package pricing

import "github.com/shopspring/decimal"

// FeeBracket is one band of a graduated final value fee schedule. Rate
// applies only to the portion of the fee base above the previous bracket's
// threshold, up to UpTo (0 means unbounded).
type FeeBracket struct {
	UpTo float64
	Rate float64
}

// FeeConfig parameterizes the marketplace fee model. The February 2025 fee
// revision is the authoritative default; older revisions (flat-only FVF) are
// expressible by leaving TieredCategories empty.
type FeeConfig struct {
	FlatFVFRate      float64
	TieredBrackets   []FeeBracket
	TieredCategories map[Category]bool

	IntlFeeRate       float64
	PerOrderFeeHigh   float64
	PerOrderFeeLow    float64
	PerOrderFeeCutoff float64
	FeeTaxRate        float64
	SalesTaxRate      float64
}

// DefaultFeeConfig returns the eBay US fee model for a Japan-based seller,
// 2025-02-14 revision.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		FlatFVFRate: 0.127,
		TieredBrackets: []FeeBracket{
			{UpTo: 1000, Rate: 0.15},
			{UpTo: 7500, Rate: 0.065},
			{UpTo: 0, Rate: 0.03},
		},
		TieredCategories: map[Category]bool{
			CategoryWatches: true,
			CategoryJewelry: true,
		},
		IntlFeeRate:       0.0135,
		PerOrderFeeHigh:   0.40,
		PerOrderFeeLow:    0.30,
		PerOrderFeeCutoff: 10.0,
		FeeTaxRate:        0.10,
		SalesTaxRate:      0.0711,
	}
}

// FeeBreakdown itemizes marketplace fees for one sale, in USD. Each component
// is rounded to cents independently before Total is summed, matching eBay's
// fee statements.
type FeeBreakdown struct {
	FeeBase          float64 `json:"fee_base_usd"`
	FinalValueFee    float64 `json:"final_value_fee_usd"`
	InternationalFee float64 `json:"international_fee_usd"`
	PerOrderFee      float64 `json:"per_order_fee_usd"`
	TaxOnFees        float64 `json:"tax_on_fees_usd"`
	Total            float64 `json:"total_fees_usd"`
}

// FeeBase is the amount fees are computed against: the listing price grossed
// up by the destination sales tax eBay collects and remits but still charges
// fees on.
func (c FeeConfig) FeeBase(price float64) float64 {
	return price * (1 + c.SalesTaxRate)
}

// FinalValueFee computes the unrounded FVF for a fee base. Tiered categories
// use the graduated brackets (each band's rate applies only to the amount
// falling within that band); all other categories pay the flat rate on the
// whole base.
func (c FeeConfig) FinalValueFee(feeBase float64, cat Category) float64 {
	if !c.TieredCategories[cat] {
		return feeBase * c.FlatFVFRate
	}

	var fee, lower float64
	for _, b := range c.TieredBrackets {
		upper := b.UpTo
		if upper == 0 || upper > feeBase {
			upper = feeBase
		}
		if upper > lower {
			fee += (upper - lower) * b.Rate
		}
		if b.UpTo == 0 || feeBase <= b.UpTo {
			break
		}
		lower = b.UpTo
	}
	return fee
}

func (c FeeConfig) perOrderFee(feeBase float64) float64 {
	if feeBase > c.PerOrderFeeCutoff {
		return c.PerOrderFeeHigh
	}
	return c.PerOrderFeeLow
}

// Breakdown computes the full fee statement for a listing price.
func (c FeeConfig) Breakdown(price float64, cat Category) FeeBreakdown {
	feeBase := c.FeeBase(price)
	fvf := c.FinalValueFee(feeBase, cat)
	intl := feeBase * c.IntlFeeRate
	perOrder := c.perOrderFee(feeBase)
	tax := c.FeeTaxRate * (fvf + intl + perOrder)

	b := FeeBreakdown{
		FeeBase:          roundCents(feeBase),
		FinalValueFee:    roundCents(fvf),
		InternationalFee: roundCents(intl),
		PerOrderFee:      roundCents(perOrder),
		TaxOnFees:        roundCents(tax),
	}
	b.Total = roundCents(b.FinalValueFee + b.InternationalFee + b.PerOrderFee + b.TaxOnFees)
	return b
}

// blendedFeeRate is the effective proportional fee rate (FVF + international)
// at a given fee base. The solver uses it to linearize the piecewise fee
// function around the current price.
func (c FeeConfig) blendedFeeRate(feeBase float64, cat Category) float64 {
	if feeBase <= 0 {
		return c.FlatFVFRate + c.IntlFeeRate
	}
	return c.FinalValueFee(feeBase, cat)/feeBase + c.IntlFeeRate
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
