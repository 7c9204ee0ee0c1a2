package keepa

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
)

// PackageDims is a parsed package size from a product detail page.
// Dimensions in millimeters, weight in grams, to match Keepa's units.
type PackageDims struct {
	LengthMM float64
	WidthMM  float64
	HeightMM float64
	WeightG  float64
}

// DimensionScraper fills in package dimensions from the amazon.co.jp product
// page when the catalog API has none. Best-effort: any failure just means no
// dimensions.
type DimensionScraper struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

// NewDimensionScraper creates a scraper with browser-like headers.
func NewDimensionScraper(log zerolog.Logger) *DimensionScraper {
	return &DimensionScraper{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    "https://www.amazon.co.jp",
		log:        log,
	}
}

// NewDimensionScraperWithBaseURL is used by tests to point at a stub server.
func NewDimensionScraperWithBaseURL(baseURL string, log zerolog.Logger) *DimensionScraper {
	s := NewDimensionScraper(log)
	s.baseURL = baseURL
	return s
}

// dimsPattern matches "20 x 15.5 x 10 cm" in detail tables.
var dimsPattern = regexp.MustCompile(`([\d.]+)\s*[x×]\s*([\d.]+)\s*[x×]\s*([\d.]+)\s*cm`)

// weightPattern matches "480 g" or "1.2 kg".
var weightPattern = regexp.MustCompile(`([\d.]+)\s*(kg|g)`)

// FetchDimensions scrapes the product detail table of an ASIN's page.
func (s *DimensionScraper) FetchDimensions(ctx context.Context, asin string) (*PackageDims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/dp/"+asin, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product page returned status %d", resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing product page: %w", err)
	}

	dims := &PackageDims{}
	found := false

	// Detail rows live in a handful of table layouts; scan them all for the
	// package-size and weight labels.
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th").Text())
		value := strings.TrimSpace(row.Find("td").Text())
		if label == "" || value == "" {
			return
		}

		if strings.Contains(label, "梱包サイズ") || strings.Contains(label, "商品の寸法") {
			if m := dimsPattern.FindStringSubmatch(value); m != nil {
				dims.LengthMM = parseCM(m[1])
				dims.WidthMM = parseCM(m[2])
				dims.HeightMM = parseCM(m[3])
				found = true
			}
			if w := parseWeight(value); w > 0 {
				dims.WeightG = w
				found = true
			}
		}
		if strings.Contains(label, "梱包重量") || strings.Contains(label, "商品の重量") {
			if w := parseWeight(value); w > 0 {
				dims.WeightG = w
				found = true
			}
		}
	})

	if !found {
		return nil, fmt.Errorf("no package dimensions on page for %s", asin)
	}
	return dims, nil
}

// decodeBody handles the content encodings Amazon actually serves.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return r, nil
	default:
		return resp.Body, nil
	}
}

func parseCM(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * 10 // cm → mm
}

func parseWeight(s string) float64 {
	m := weightPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] == "kg" {
		return v * 1000
	}
	return v
}
