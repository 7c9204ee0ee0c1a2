package pricing

import (
	"sort"
	"strings"
)

// SizeClass is a SpeedPAK parcel tier used to look up flat shipping rates.
type SizeClass string

const (
	SizeStandardA SizeClass = "StandardA"
	SizeStandardB SizeClass = "StandardB"
	SizeLargeA    SizeClass = "LargeA"
	SizeLargeB    SizeClass = "LargeB"
)

// weightStep is one breakpoint in a rate schedule: the rate applies to any
// parcel at or below MaxGrams.
type weightStep struct {
	MaxGrams int
	RateJPY  float64
}

// SpeedPAK Economy rates, 2025-01-16 revision. Values are JPY.
var speedpakRates = map[string]map[SizeClass][]weightStep{
	"US": {
		SizeStandardA: {{500, 1367}, {1000, 1724}, {1500, 2081}, {2000, 2303}},
		SizeStandardB: {{500, 1659}, {1000, 2017}, {1500, 2374}, {2000, 2587}},
		SizeLargeA:    {{1000, 2710}, {2000, 3425}, {3000, 4140}, {4000, 4855}, {5000, 5570}},
		SizeLargeB:    {{2000, 3790}, {4000, 5220}, {6000, 6650}, {8000, 8080}, {10000, 9510}},
	},
	"EU": {
		SizeStandardA: {{500, 1499}, {1000, 1893}, {1500, 2287}, {2000, 2533}},
		SizeStandardB: {{500, 1819}, {1000, 2214}, {1500, 2608}, {2000, 2843}},
		SizeLargeA:    {{1000, 2971}, {2000, 3754}, {3000, 4537}, {4000, 5320}, {5000, 6103}},
		SizeLargeB:    {{2000, 4155}, {4000, 5721}, {6000, 7287}, {8000, 8853}, {10000, 10419}},
	},
	"AU": {
		SizeStandardA: {{500, 1581}, {1000, 1996}, {1500, 2411}, {2000, 2671}},
		SizeStandardB: {{500, 1918}, {1000, 2334}, {1500, 2749}, {2000, 2999}},
		SizeLargeA:    {{1000, 3134}, {2000, 3960}, {3000, 4786}, {4000, 5612}, {5000, 6438}},
		SizeLargeB:    {{2000, 4383}, {4000, 6035}, {6000, 7687}, {8000, 9339}, {10000, 10991}},
	},
}

// euMemberCodes are destination codes that ship at the EU zone rate.
var euMemberCodes = map[string]bool{
	"UK": true, "DE": true, "FR": true, "IT": true, "ES": true,
}

// NormalizeZone maps a destination country code to a SpeedPAK rate zone.
// Regional European codes collapse into EU; anything unrecognized falls back
// to US, which is the primary lane.
func NormalizeZone(destination string) string {
	zone := strings.ToUpper(destination)
	if euMemberCodes[zone] {
		return "EU"
	}
	if _, ok := speedpakRates[zone]; !ok {
		return "US"
	}
	return zone
}

// ShippingRateJPY returns the SpeedPAK Economy rate for a parcel. The rate is
// that of the smallest breakpoint at or above the given weight; weights past
// the last breakpoint clamp to it rather than erroring. A size class missing
// from the zone substitutes StandardA.
func ShippingRateJPY(destination string, size SizeClass, weightGrams float64) float64 {
	zone := speedpakRates[NormalizeZone(destination)]

	steps, ok := zone[size]
	if !ok {
		steps = zone[SizeStandardA]
	}

	idx := sort.Search(len(steps), func(i int) bool {
		return weightGrams <= float64(steps[i].MaxGrams)
	})
	if idx == len(steps) {
		idx = len(steps) - 1
	}
	return steps[idx].RateJPY
}
