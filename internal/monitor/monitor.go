// Package monitor talks to the external stock-monitor service that tracks
// listed items against their Amazon source. Both endpoints are optional:
// an unconfigured client degrades to local fallbacks so listing flows keep
// working without the service.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client calls the monitor service's PHP endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger

	now func() time.Time
}

// NewClient creates a monitor client. Empty baseURL or apiKey leaves the
// client unconfigured.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// Available reports whether the monitor service is configured.
func (c *Client) Available() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// IssueSKU asks the service for the next managed SKU for an ASIN. When the
// service is unreachable or unconfigured it falls back to a local
// timestamp-based SKU, which stays unique enough for listing purposes.
func (c *Client) IssueSKU(ctx context.Context, asin string) string {
	if !c.Available() {
		return c.fallbackSKU(asin)
	}

	url := fmt.Sprintf("%s/api/generate_sku.php?asin=%s", c.baseURL, asin)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.fallbackSKU(asin)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("asin", asin).Msg("sku issue failed, using fallback")
		return c.fallbackSKU(asin)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("asin", asin).
			Msg("sku issue failed, using fallback")
		return c.fallbackSKU(asin)
	}

	var out struct {
		SKU string `json:"sku"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.SKU == "" {
		return c.fallbackSKU(asin)
	}
	return out.SKU
}

func (c *Client) fallbackSKU(asin string) string {
	return fmt.Sprintf("%s-%d", asin, c.now().Unix())
}

// Registration describes one listed item for stock tracking.
type Registration struct {
	SKU        string  `json:"sku"`
	ASIN       string  `json:"asin"`
	ListingID  string  `json:"listing_id"`
	Title      string  `json:"title"`
	PriceJPY   float64 `json:"price_jpy"`
	PriceUSD   float64 `json:"price_usd"`
	EbayURL    string  `json:"ebay_url"`
	AmazonURL  string  `json:"amazon_url"`
	Status     string  `json:"status"`
	StockCount *int    `json:"stock_count,omitempty"`
}

// Register reports a published listing to the monitor service. Failure is
// logged, not returned; a listing that exists on eBay should not be failed
// because tracking lagged behind.
func (c *Client) Register(ctx context.Context, reg Registration) bool {
	if !c.Available() {
		return false
	}

	payload, err := json.Marshal(reg)
	if err != nil {
		c.log.Warn().Err(err).Str("sku", reg.SKU).Msg("monitor registration marshal failed")
		return false
	}

	url := c.baseURL + "/api/register_product.php"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("sku", reg.SKU).Msg("monitor registration failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.Warn().Int("status", resp.StatusCode).Str("sku", reg.SKU).
			Msg("monitor registration rejected")
		return false
	}
	return true
}
