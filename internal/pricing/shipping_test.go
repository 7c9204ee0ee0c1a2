package pricing

import "testing"

func TestShippingRateJPY_Breakpoints(t *testing.T) {
	// Smallest breakpoint at or above the weight wins; no interpolation.
	if got := ShippingRateJPY("US", SizeStandardA, 400); got != 1367 {
		t.Errorf("US/StandardA/400g = %v, want 1367", got)
	}
	if got := ShippingRateJPY("US", SizeStandardA, 500); got != 1367 {
		t.Errorf("US/StandardA/500g = %v, want 1367", got)
	}
	if got := ShippingRateJPY("US", SizeStandardA, 501); got != 1724 {
		t.Errorf("US/StandardA/501g = %v, want 1724", got)
	}
}

func TestShippingRateJPY_ClampsHigh(t *testing.T) {
	// Weight beyond the last breakpoint returns the last rate, never an
	// error.
	if got := ShippingRateJPY("US", SizeStandardA, 9999); got != 2303 {
		t.Errorf("overweight parcel = %v, want 2303 (max breakpoint rate)", got)
	}
	if got := ShippingRateJPY("AU", SizeLargeB, 50000); got != 10991 {
		t.Errorf("overweight LargeB = %v, want 10991", got)
	}
}

func TestNormalizeZone(t *testing.T) {
	cases := map[string]string{
		"US": "US",
		"us": "US",
		"UK": "EU",
		"DE": "EU",
		"fr": "EU",
		"AU": "AU",
		"CA": "US", // unrecognized codes fall back to the primary zone
		"":   "US",
	}
	for dest, want := range cases {
		if got := NormalizeZone(dest); got != want {
			t.Errorf("NormalizeZone(%q) = %q, want %q", dest, got, want)
		}
	}
}

func TestShippingRateJPY_UnknownSizeClassFallsBack(t *testing.T) {
	got := ShippingRateJPY("US", SizeClass("Oversize"), 400)
	want := ShippingRateJPY("US", SizeStandardA, 400)
	if got != want {
		t.Errorf("unknown size class = %v, want StandardA rate %v", got, want)
	}
}
