package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guarzo/crosslist/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.keepa.com"
	// domainJP is Keepa's domain ID for amazon.co.jp.
	domainJP = 5

	// TokensPerRequest is the budget one product lookup consumes (with
	// headroom).
	TokensPerRequest = 2
	// MinTokens is the floor below which lookups are refused proactively.
	MinTokens = 5
	// TokensPerMinute is Keepa's refill rate, used to estimate retry-after.
	TokensPerMinute = 5
	// TokenCeiling is the account's token cap on the base plan.
	TokenCeiling = 60
)

// Product status strings shared with the monitor service.
const (
	StatusOK         = "正常"
	StatusNoData     = "データなし"
	StatusOutOfStock = "在庫切れ"
	StatusLastOne    = "ラスト1点"
	StatusSlowShip   = "配送遅延"
)

// QuotaError reports an insufficient token budget before any tokens were
// spent, with an estimated wait until the budget recovers.
type QuotaError struct {
	TokensLeft    int
	TokensNeeded  int
	EstimatedWait time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("keepa token budget too low: %d left, %d needed (retry in ~%s)",
		e.TokensLeft, e.TokensNeeded, e.EstimatedWait)
}

// Product is the catalog snapshot returned to tool callers. Field names are
// shared with the monitor service.
type Product struct {
	ASIN            string   `json:"asin"`
	Title           string   `json:"title"`
	PriceJPY        float64  `json:"price_jpy"`
	StockAvailable  bool     `json:"stock_available"`
	StockCount      *int     `json:"stock_count"`
	ShippingDaysMin *int     `json:"shipping_days_min"`
	ShippingDaysMax *int     `json:"shipping_days_max"`
	IsPrime         bool     `json:"is_prime"`
	ImageURL        string   `json:"image_url,omitempty"`
	Status          string   `json:"status"`
	Brand           string   `json:"brand,omitempty"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Model           string   `json:"model,omitempty"`
	Category        string   `json:"category,omitempty"`
	WeightG         float64  `json:"weight_g,omitempty"`
	PackageWeightG  float64  `json:"package_weight_g,omitempty"`
	PackageLengthMM float64  `json:"package_length_mm,omitempty"`
	PackageWidthMM  float64  `json:"package_width_mm,omitempty"`
	PackageHeightMM float64  `json:"package_height_mm,omitempty"`
	Features        []string `json:"features"`
	Description     string   `json:"description,omitempty"`
	Images          []string `json:"images"`
}

// Client talks to the Keepa product API for amazon.co.jp.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	budget     *ratelimit.Budget
	log        zerolog.Logger
}

// NewClient creates a Keepa client. The limiter paces outbound calls; the
// budget mirrors Keepa's server-side token account so healthy lookups can
// skip the remote balance check.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		budget:     ratelimit.NewBudget(TokenCeiling, TokensPerMinute, MinTokens),
		log:        log,
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string, log zerolog.Logger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

// Available reports whether the client is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// TokensLeft returns the remaining Keepa token budget.
func (c *Client) TokensLeft(ctx context.Context) (int, error) {
	if !c.Available() {
		return 0, fmt.Errorf("KEEPA_API_KEY is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var out struct {
		TokensLeft int `json:"tokensLeft"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/token?key=%s", c.baseURL, c.apiKey), &out); err != nil {
		return 0, err
	}
	c.budget.Sync(out.TokensLeft)
	return out.TokensLeft, nil
}

// CheckQuota verifies the token budget before an expensive call. The local
// mirror answers when it shows headroom, and also when it is synced and
// short, sparing a remote round trip either way. Only an unsynced mirror
// asks Keepa for the real balance. A shortfall is a *QuotaError; a failure
// of the remote check itself is only logged so that a flaky token endpoint
// does not block lookups.
func (c *Client) CheckQuota(ctx context.Context) error {
	if c.budget.Spend(TokensPerRequest) {
		return nil
	}
	if c.budget.Synced() {
		return &QuotaError{
			TokensLeft:    c.budget.TokensAvailable(),
			TokensNeeded:  MinTokens,
			EstimatedWait: c.budget.WaitEstimate(MinTokens),
		}
	}

	left, err := c.TokensLeft(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("keepa token check failed, proceeding")
		return nil
	}
	if left < MinTokens {
		return &QuotaError{
			TokensLeft:    left,
			TokensNeeded:  MinTokens,
			EstimatedWait: c.budget.WaitEstimate(MinTokens),
		}
	}
	c.budget.Spend(TokensPerRequest)
	return nil
}

// keepaProduct is the subset of Keepa's product payload this system reads.
type keepaProduct struct {
	ASIN               string   `json:"asin"`
	Title              string   `json:"title"`
	Brand              string   `json:"brand"`
	Manufacturer       string   `json:"manufacturer"`
	Model              string   `json:"model"`
	Description        string   `json:"description"`
	ImagesCSV          string   `json:"imagesCSV"`
	ItemWeight         float64  `json:"itemWeight"`
	PackageWeight      float64  `json:"packageWeight"`
	PackageLength      float64  `json:"packageLength"`
	PackageWidth       float64  `json:"packageWidth"`
	PackageHeight      float64  `json:"packageHeight"`
	AvailabilityAmazon int      `json:"availabilityAmazon"`
	ShippingDelay      []int    `json:"shippingDelay"`
	Features           []string `json:"features"`
	CategoryTree       []struct {
		Name string `json:"name"`
	} `json:"categoryTree"`
	LiveOffersOrder []int `json:"liveOffersOrder"`
	Offers          []struct {
		IsAmazon bool  `json:"isAmazon"`
		IsFBA    bool  `json:"isFBA"`
		IsPrime  bool  `json:"isPrime"`
		StockCSV []int `json:"stockCSV"`
	} `json:"offers"`
	Stats struct {
		Current     []float64 `json:"current"`
		StockAmazon int       `json:"stockAmazon"`
		StockBuyBox int       `json:"stockBuyBox"`
	} `json:"stats"`
}

// GetProduct looks up one ASIN and derives the listing-relevant snapshot:
// current price, a stock signal, shipping delay, Prime flag, images and
// package data.
func (c *Client) GetProduct(ctx context.Context, asin string) (*Product, error) {
	if !c.Available() {
		return nil, fmt.Errorf("KEEPA_API_KEY is not configured")
	}

	if err := c.CheckQuota(ctx); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/product?key=%s&domain=%d&asin=%s&history=1&stats=1&offers=20",
		c.baseURL, c.apiKey, domainJP, asin)

	var out struct {
		Error    json.RawMessage `json:"error"`
		Products []keepaProduct  `json:"products"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	if len(out.Error) > 0 && string(out.Error) != "null" {
		return nil, fmt.Errorf("keepa API error: %s", out.Error)
	}
	if len(out.Products) == 0 {
		return nil, fmt.Errorf("product not found: %s", asin)
	}

	return c.buildSnapshot(&out.Products[0]), nil
}

func (c *Client) buildSnapshot(p *keepaProduct) *Product {
	snap := &Product{
		ASIN:            p.ASIN,
		Title:           p.Title,
		Brand:           p.Brand,
		Manufacturer:    p.Manufacturer,
		Model:           p.Model,
		Description:     p.Description,
		WeightG:         p.ItemWeight,
		PackageWeightG:  p.PackageWeight,
		PackageLengthMM: p.PackageLength,
		PackageWidthMM:  p.PackageWidth,
		PackageHeightMM: p.PackageHeight,
		Features:        p.Features,
		Images:          []string{},
	}

	if len(p.CategoryTree) > 0 {
		snap.Category = p.CategoryTree[len(p.CategoryTree)-1].Name
	}

	// Price: Amazon's own offer first, then marketplace-new.
	current := p.Stats.Current
	if len(current) > 1 && current[1] > 0 {
		snap.PriceJPY = current[1]
	} else if len(current) > 10 && current[10] > 0 {
		snap.PriceJPY = current[10]
	}
	snap.StockAvailable = snap.PriceJPY > 0

	snap.StockCount = c.deriveStock(p, snap.PriceJPY)

	// Prime before shipping delay: Prime offers ship in 0-2 days even when
	// Keepa reports no delay data.
	for _, idx := range p.LiveOffersOrder {
		if idx >= 0 && idx < len(p.Offers) && p.Offers[idx].IsPrime {
			snap.IsPrime = true
			break
		}
	}

	if len(p.ShippingDelay) >= 2 {
		minDays := int(math.Ceil(float64(p.ShippingDelay[0]) / 24))
		maxDays := int(math.Ceil(float64(p.ShippingDelay[1]) / 24))
		snap.ShippingDaysMin = &minDays
		snap.ShippingDaysMax = &maxDays
	} else if snap.IsPrime {
		minDays, maxDays := 0, 2
		snap.ShippingDaysMin = &minDays
		snap.ShippingDaysMax = &maxDays
	}

	if p.ImagesCSV != "" {
		codes := strings.Split(p.ImagesCSV, ",")
		if len(codes) > 5 {
			codes = codes[:5]
		}
		for _, code := range codes {
			snap.Images = append(snap.Images, "https://images-na.ssl-images-amazon.com/images/I/"+code)
		}
		snap.ImageURL = snap.Images[0]
	}

	snap.Status = deriveStatus(snap.StockCount, snap.ShippingDaysMax)
	return snap
}

// deriveStock interprets Keepa's scattered stock signals.
// nil = no data, -1 = in stock (quantity unknown), 0 = out of stock,
// 1+ = counted stock.
func (c *Client) deriveStock(p *keepaProduct, priceJPY float64) *int {
	intPtr := func(v int) *int { return &v }

	if p.Stats.StockAmazon > 0 {
		return intPtr(p.Stats.StockAmazon)
	}
	if p.Stats.StockBuyBox > 0 {
		return intPtr(p.Stats.StockBuyBox)
	}

	hasLiveOffers := len(p.LiveOffersOrder) > 0
	if len(p.Offers) > 0 && hasLiveOffers {
		var found *int
		for _, idx := range p.LiveOffersOrder {
			if idx < 0 || idx >= len(p.Offers) {
				continue
			}
			offer := p.Offers[idx]
			if len(offer.StockCSV) >= 2 {
				last := offer.StockCSV[len(offer.StockCSV)-1]
				// Zero readings are unreliable and ignored; an Amazon/FBA
				// offer's count beats a marketplace seller's.
				if last > 0 {
					found = intPtr(last)
					if offer.IsAmazon || offer.IsFBA {
						break
					}
				}
			}
		}
		if found != nil {
			return found
		}
		// Live offers exist even without stock history: in stock, quantity
		// unknown.
		return intPtr(-1)
	}

	// No live offers and no Amazon availability: the listing is dead even
	// when the price history still carries a last-seen price.
	if len(p.Offers) == 0 && p.AvailabilityAmazon == -1 {
		return intPtr(0)
	}

	if priceJPY > 0 {
		return intPtr(-1)
	}

	return nil
}

func deriveStatus(stockCount *int, shippingDaysMax *int) string {
	switch {
	case stockCount == nil:
		return StatusNoData
	case *stockCount == 0:
		return StatusOutOfStock
	case *stockCount == 1:
		return StatusLastOne
	case shippingDaysMax != nil && *shippingDaysMax > 2 && *stockCount > 1:
		return StatusSlowShip
	default:
		return StatusOK
	}
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keepa request failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parsing keepa response: %w", err)
	}
	return nil
}
