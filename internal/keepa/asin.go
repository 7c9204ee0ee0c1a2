package keepa

import (
	"fmt"
	"regexp"
	"strings"
)

var bareASIN = regexp.MustCompile(`(?i)^[A-Z0-9]{10}$`)

// Known Amazon URL shapes that carry an ASIN.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/gp/aw/d/([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)asin=([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})`),
}

// ExtractASIN pulls a 10-character ASIN out of an Amazon URL, or validates a
// bare identifier.
func ExtractASIN(urlOrASIN string) (string, error) {
	s := strings.TrimSpace(urlOrASIN)

	if bareASIN.MatchString(s) {
		return strings.ToUpper(s), nil
	}

	for _, p := range asinPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return strings.ToUpper(m[1]), nil
		}
	}

	return "", fmt.Errorf("no ASIN found in %q", urlOrASIN)
}

var asinToken = regexp.MustCompile(`(?i)[A-Z0-9]{10}`)

// FindASIN scans arbitrary text (such as a SKU like JP-B0BDHWDR12) for an
// embedded ASIN-shaped token. Returns "" when none is present.
func FindASIN(text string) string {
	return strings.ToUpper(asinToken.FindString(text))
}
