package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

const (
	marketplaceID = "EBAY_US"

	// merchantLocationKey identifies the seller's warehouse location,
	// created once on first listing.
	merchantLocationKey = "JP_SAITAMA"
)

// ListingPolicies are the business policy IDs attached to an offer.
type ListingPolicies struct {
	FulfillmentPolicyID string
	PaymentPolicyID     string
	ReturnPolicyID      string
}

// ListingRequest describes one new fixed-price listing.
type ListingRequest struct {
	SKU                  string
	Title                string
	Description          string
	PriceUSD             float64
	CategoryID           string
	Quantity             int
	Condition            string
	ConditionDescription string
	Images               []string
	ItemSpecifics        map[string]string
	WeightKG             float64
	Policies             ListingPolicies
}

// ListingResult reports a published listing.
type ListingResult struct {
	ListingID string  `json:"listing_id"`
	OfferID   string  `json:"offer_id"`
	SKU       string  `json:"sku"`
	PriceUSD  float64 `json:"price_usd"`
	URL       string  `json:"ebay_url"`
}

// Lister drives the Sell Inventory flow: inventory item, offer, publish.
type Lister struct {
	client *Client

	locMu       sync.Mutex
	locationSet bool
}

// NewLister creates a Lister on the given client.
func NewLister(client *Client) *Lister {
	return &Lister{client: client}
}

// EnsureLocation creates the merchant inventory location if eBay does not
// know it yet. Runs at most once per process.
func (l *Lister) EnsureLocation(ctx context.Context) error {
	l.locMu.Lock()
	defer l.locMu.Unlock()

	if l.locationSet {
		return nil
	}

	endpoint := "/sell/inventory/v1/location/" + merchantLocationKey

	_, err := l.client.Request(ctx, "GET", endpoint, nil)
	if err == nil {
		l.locationSet = true
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		return fmt.Errorf("checking inventory location: %w", err)
	}

	location := map[string]interface{}{
		"location": map[string]interface{}{
			"address": map[string]string{
				"city":            "Saitama",
				"stateOrProvince": "Saitama",
				"country":         "JP",
			},
		},
		"merchantLocationStatus": "ENABLED",
		"name":                   "Japan Warehouse",
		"locationTypes":          []string{"WAREHOUSE"},
	}
	if _, err := l.client.Request(ctx, "POST", endpoint, location); err != nil {
		return fmt.Errorf("creating inventory location: %w", err)
	}

	l.locationSet = true
	return nil
}

// cdataPattern strips CDATA wrappers agents sometimes leave in generated
// descriptions.
var cdataPattern = regexp.MustCompile(`<!\[CDATA\[|\]\]>`)

// offerConflictPattern recovers the existing offer ID from eBay's
// already-exists error payload.
var offerConflictPattern = regexp.MustCompile(`"offerId","value":"(\d+)"`)

// CreateListing publishes a listing: PUT the inventory item, POST the offer
// (reusing an existing offer on conflict), then publish it.
func (l *Lister) CreateListing(ctx context.Context, req ListingRequest) (*ListingResult, error) {
	if err := l.EnsureLocation(ctx); err != nil {
		return nil, err
	}

	// eBay counts title length in characters, so truncate on runes; byte
	// slicing would split multibyte Japanese titles.
	title := req.Title
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}

	aspects := make(map[string][]string)
	for k, v := range req.ItemSpecifics {
		if v != "" {
			aspects[k] = []string{v}
		}
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	condition := req.Condition
	if condition == "" {
		condition = "NEW"
	}

	images := req.Images
	if len(images) > 12 {
		images = images[:12]
	}

	item := map[string]interface{}{
		"availability": map[string]interface{}{
			"shipToLocationAvailability": map[string]int{"quantity": quantity},
		},
		"condition": condition,
		"product": map[string]interface{}{
			"title":       title,
			"description": strings.TrimSpace(cdataPattern.ReplaceAllString(req.Description, "")),
			"aspects":     aspects,
			"imageUrls":   images,
		},
	}
	if req.ConditionDescription != "" {
		item["conditionDescription"] = req.ConditionDescription
	}
	if req.WeightKG > 0 {
		item["packageWeightAndSize"] = map[string]interface{}{
			"weight": map[string]interface{}{"value": req.WeightKG, "unit": "KILOGRAM"},
		}
	}

	skuPath := "/sell/inventory/v1/inventory_item/" + url.PathEscape(req.SKU)
	if _, err := l.client.Request(ctx, "PUT", skuPath, item); err != nil {
		return nil, fmt.Errorf("creating inventory item: %w", err)
	}

	offer := map[string]interface{}{
		"sku":             req.SKU,
		"marketplaceId":   marketplaceID,
		"format":          "FIXED_PRICE",
		"listingDuration": "GTC",
		"pricingSummary": map[string]interface{}{
			"price": map[string]string{
				"value":    fmt.Sprintf("%.2f", req.PriceUSD),
				"currency": "USD",
			},
		},
		"categoryId":            req.CategoryID,
		"quantityLimitPerBuyer": 3,
		"merchantLocationKey":   merchantLocationKey,
	}

	policies := make(map[string]string)
	if req.Policies.FulfillmentPolicyID != "" {
		policies["fulfillmentPolicyId"] = req.Policies.FulfillmentPolicyID
	}
	if req.Policies.PaymentPolicyID != "" {
		policies["paymentPolicyId"] = req.Policies.PaymentPolicyID
	}
	if req.Policies.ReturnPolicyID != "" {
		policies["returnPolicyId"] = req.Policies.ReturnPolicyID
	}
	if len(policies) > 0 {
		offer["listingPolicies"] = policies
	}

	offerID, err := l.createOffer(ctx, offer)
	if err != nil {
		return nil, err
	}

	raw, err := l.client.Request(ctx, "POST", "/sell/inventory/v1/offer/"+offerID+"/publish/", nil)
	if err != nil {
		return nil, fmt.Errorf("publishing offer: %w", err)
	}

	var published struct {
		ListingID string `json:"listingId"`
	}
	if err := json.Unmarshal(raw, &published); err != nil {
		return nil, fmt.Errorf("parsing publish response: %w", err)
	}

	return &ListingResult{
		ListingID: published.ListingID,
		OfferID:   offerID,
		SKU:       req.SKU,
		PriceUSD:  req.PriceUSD,
		URL:       "https://www.ebay.com/itm/" + published.ListingID,
	}, nil
}

func (l *Lister) createOffer(ctx context.Context, offer map[string]interface{}) (string, error) {
	raw, err := l.client.Request(ctx, "POST", "/sell/inventory/v1/offer", offer)
	if err != nil {
		// An offer for this SKU may already exist; eBay embeds its ID in
		// the error payload.
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if m := offerConflictPattern.FindStringSubmatch(apiErr.Body); m != nil {
				return m[1], nil
			}
		}
		return "", fmt.Errorf("creating offer: %w", err)
	}

	var created struct {
		OfferID string `json:"offerId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("parsing offer response: %w", err)
	}
	return created.OfferID, nil
}

// UpdateQuantity rewrites an inventory item's available quantity. Setting it
// to zero effectively ends the listing.
func (l *Lister) UpdateQuantity(ctx context.Context, sku string, quantity int) error {
	skuPath := "/sell/inventory/v1/inventory_item/" + url.PathEscape(sku)

	raw, err := l.client.Request(ctx, "GET", skuPath, nil)
	if err != nil {
		return fmt.Errorf("fetching inventory item: %w", err)
	}

	var item map[string]interface{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return fmt.Errorf("parsing inventory item: %w", err)
	}

	item["availability"] = map[string]interface{}{
		"shipToLocationAvailability": map[string]int{"quantity": quantity},
	}

	if _, err := l.client.Request(ctx, "PUT", skuPath, item); err != nil {
		return fmt.Errorf("updating inventory item: %w", err)
	}
	return nil
}
