package classify

import "github.com/guarzo/crosslist/internal/pricing"

// Size class thresholds. Dimensions in centimeters, weight in grams. A class
// fits when both the dimension sum (L+W+H) and the weight are at or below its
// limits, so a strictly larger parcel can never classify smaller.
type sizeThreshold struct {
	class       pricing.SizeClass
	maxDimSumCM float64
	maxWeightG  float64
}

var sizeThresholds = []sizeThreshold{
	{pricing.SizeStandardA, 60, 2000},
	{pricing.SizeStandardB, 90, 2000},
	{pricing.SizeLargeA, 150, 5000},
	{pricing.SizeLargeB, 300, 10000},
}

// Size assigns a SpeedPAK size class from package dimensions and weight.
// Parcels past every threshold still return the largest class; whether the
// carrier accepts them is a listing-time concern, not a classification one.
func Size(weightGrams, lengthCM, widthCM, heightCM float64) pricing.SizeClass {
	dimSum := lengthCM + widthCM + heightCM
	for _, t := range sizeThresholds {
		if dimSum <= t.maxDimSumCM && weightGrams <= t.maxWeightG {
			return t.class
		}
	}
	return pricing.SizeLargeB
}

// PackagedWeight estimates shipping weight from catalog data: the declared
// package weight when present, otherwise the item weight padded for
// packaging material.
func PackagedWeight(itemWeightG, packageWeightG float64) float64 {
	if packageWeightG > 0 {
		return packageWeightG
	}
	if itemWeightG > 0 {
		return itemWeightG*1.15 + 50
	}
	// No weight data at all: assume a small parcel rather than failing the
	// whole estimate.
	return 500
}
