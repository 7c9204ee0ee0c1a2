package pricing

import "strings"

// Category is a duty/fee classification for a product.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryToys        Category = "toys"
	CategoryCosmetics   Category = "cosmetics"
	CategoryTools       Category = "tools"
	CategoryFood        Category = "food"
	CategoryWatches     Category = "watches"
	CategoryJewelry     Category = "jewelry"
	CategoryClothing    Category = "clothing"
	CategoryDefault     Category = "default"
)

// DDP effective duty rates for goods entering the US from Japan, 2025-2026:
// MAX(MFN rate, 15% reciprocal tariff). ITA-covered electronics are exempt
// from the reciprocal tariff; watches carry a blended composite rate.
var dutyRates = map[Category]float64{
	CategoryElectronics: 0.0,
	CategoryToys:        0.15,
	CategoryCosmetics:   0.15,
	CategoryTools:       0.15,
	CategoryFood:        0.15,
	CategoryWatches:     0.09,
	CategoryJewelry:     0.15,
	CategoryClothing:    0.16,
	CategoryDefault:     0.15,
}

const (
	// DDPProcessingFeeRate is charged by the carrier on the duty amount.
	DDPProcessingFeeRate = 0.021
	// CustomsClearanceFeeJPY is the flat clearance fee per shipment
	// (2025-10 revision).
	CustomsClearanceFeeJPY = 245.0
)

// NormalizeCategory maps free-form category text onto a known Category,
// falling back to default.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dutyRates[c]; ok {
		return c
	}
	return CategoryDefault
}

// DutyRate returns the effective DDP duty rate for a category.
func DutyRate(c Category) float64 {
	if rate, ok := dutyRates[c]; ok {
		return rate
	}
	return dutyRates[CategoryDefault]
}
