package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/guarzo/crosslist/internal/classify"
	"github.com/guarzo/crosslist/internal/ebay"
	"github.com/guarzo/crosslist/internal/keepa"
	"github.com/guarzo/crosslist/internal/monitor"
	"github.com/guarzo/crosslist/internal/pricing"
)

// Reason codes for business-rule refusals.
const (
	reasonPriceExceedsLimit = "price_exceeds_limit"
	reasonNoPrice           = "no_price"
	reasonOutOfStock        = "out_of_stock"
	reasonShippingDelay     = "shipping_delay"
	reasonQuota             = "quota"
)

// maxShippingDelayDays is the longest acceptable Amazon shipping delay for a
// new listing.
const maxShippingDelayDays = 2

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func blockResult(reason string, extra map[string]interface{}) (*mcp.CallToolResult, error) {
	payload := map[string]interface{}{
		"success": false,
		"reason":  reason,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return jsonResult(payload)
}

func (s *Server) handleExtractASIN(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := req.RequireString("url_or_asin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	asin, err := keepa.ExtractASIN(input)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"asin": asin})
}

func (s *Server) handleKeepaGetProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	asin, err := req.RequireString("asin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	product, blocked, err := s.fetchProduct(ctx, asin)
	if blocked != nil || err != nil {
		return blocked, err
	}
	return jsonResult(product)
}

func (s *Server) handleKeepaGetTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	left, err := s.keepa.TokensLeft(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]int{"tokens_left": left})
}

// fetchProduct resolves an ASIN and looks it up, translating a quota
// shortfall into a block result. Exactly one of the three returns is set.
func (s *Server) fetchProduct(ctx context.Context, urlOrASIN string) (*keepa.Product, *mcp.CallToolResult, error) {
	asin, err := keepa.ExtractASIN(urlOrASIN)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error()), nil
	}

	product, err := s.keepa.GetProduct(ctx, asin)
	if err != nil {
		var quotaErr *keepa.QuotaError
		if errors.As(err, &quotaErr) {
			blocked, berr := blockResult(reasonQuota, map[string]interface{}{
				"tokens_left":    quotaErr.TokensLeft,
				"tokens_needed":  quotaErr.TokensNeeded,
				"estimated_wait": quotaErr.EstimatedWait.String(),
			})
			return nil, blocked, berr
		}
		return nil, mcp.NewToolResultError(err.Error()), nil
	}
	return product, nil, nil
}

func (s *Server) handleCalculatePrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	purchaseJPY, err := req.RequireFloat("purchase_price_jpy")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weightG, err := req.RequireFloat("weight_g")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sizeCategory, err := req.RequireString("size_category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	destination := req.GetString("destination", "US")
	category := req.GetString("category", "")
	margin := req.GetFloat("target_profit_rate", s.cfg.TargetMargin)

	if s.cfg.PricingServiceURL != "" {
		if result, err := s.delegatePricing(ctx, map[string]interface{}{
			"purchase_price_jpy": purchaseJPY,
			"weight_g":           weightG,
			"size_category":      sizeCategory,
			"destination":        destination,
			"category":           category,
			"target_profit_rate": margin,
		}); err == nil {
			return result, nil
		} else {
			s.log.Warn().Err(err).Msg("pricing service unavailable, solving locally")
		}
	}

	quote, err := s.engine.Solve(pricing.SolveInput{
		PurchasePriceJPY: purchaseJPY,
		WeightGrams:      weightG,
		Size:             pricing.SizeClass(sizeCategory),
		Destination:      destination,
		Category:         pricing.NormalizeCategory(category),
		TargetMargin:     margin,
		FX:               s.rates.Current(ctx),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(quote)
}

func (s *Server) delegatePricing(ctx context.Context, payload map[string]interface{}) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PricingServiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.pricingClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing service returned %d", resp.StatusCode)
	}
	return mcp.NewToolResultText(string(respBody)), nil
}

// logistics are the shipping-relevant attributes derived from a product.
type logistics struct {
	Category        pricing.Category  `json:"category"`
	SizeClass       pricing.SizeClass `json:"size_class"`
	PackagedWeightG float64           `json:"packaged_weight_g"`
}

// deriveLogistics classifies the product and derives its shipping size. When
// Keepa has no package dimensions the product page is scraped as a fallback.
func (s *Server) deriveLogistics(ctx context.Context, p *keepa.Product, categoryOverride string) logistics {
	var cat pricing.Category
	if categoryOverride != "" {
		cat = pricing.NormalizeCategory(categoryOverride)
	} else {
		cat = classify.Category(p.Title + " " + p.Category + " " + p.Brand)
	}

	lengthMM, widthMM, heightMM := p.PackageLengthMM, p.PackageWidthMM, p.PackageHeightMM
	weightG := classify.PackagedWeight(p.WeightG, p.PackageWeightG)

	if lengthMM <= 0 && s.scraper != nil {
		if dims, err := s.scraper.FetchDimensions(ctx, p.ASIN); err == nil {
			lengthMM, widthMM, heightMM = dims.LengthMM, dims.WidthMM, dims.HeightMM
			if p.PackageWeightG <= 0 && dims.WeightG > 0 {
				weightG = dims.WeightG
			}
		} else {
			s.log.Debug().Err(err).Str("asin", p.ASIN).Msg("dimension scrape failed")
		}
	}

	size := classify.Size(weightG, lengthMM/10, widthMM/10, heightMM/10)
	return logistics{Category: cat, SizeClass: size, PackagedWeightG: weightG}
}

func (s *Server) handleEstimateProfit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlOrASIN, err := req.RequireString("url_or_asin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	priceUSD, err := req.RequireFloat("price_usd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	product, blocked, err := s.fetchProduct(ctx, urlOrASIN)
	if blocked != nil || err != nil {
		return blocked, err
	}
	if product.PriceJPY <= 0 {
		return blockResult(reasonNoPrice, map[string]interface{}{
			"asin":   product.ASIN,
			"status": product.Status,
		})
	}

	derived := s.deriveLogistics(ctx, product, req.GetString("category", ""))

	report, err := s.engine.Evaluate(pricing.EvaluateInput{
		PriceUSD:         priceUSD,
		PurchasePriceJPY: product.PriceJPY,
		WeightGrams:      derived.PackagedWeightG,
		Size:             derived.SizeClass,
		Destination:      "US",
		Category:         derived.Category,
		FX:               s.rates.Current(ctx),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"asin":      product.ASIN,
		"title":     product.Title,
		"logistics": derived,
		"report":    report,
	})
}

func (s *Server) handleGenerateListingData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlOrASIN, err := req.RequireString("url_or_asin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	product, blocked, err := s.fetchProduct(ctx, urlOrASIN)
	if blocked != nil || err != nil {
		return blocked, err
	}

	derived := s.deriveLogistics(ctx, product, req.GetString("category", ""))

	return jsonResult(map[string]interface{}{
		"asin":         product.ASIN,
		"title":        product.Title,
		"brand":        product.Brand,
		"manufacturer": product.Manufacturer,
		"model":        product.Model,
		"description":  product.Description,
		"features":     product.Features,
		"images":       product.Images,
		"price_jpy":    product.PriceJPY,
		"status":       product.Status,
		"is_prime":     product.IsPrime,
		"logistics":    derived,
		"amazon_url":   "https://www.amazon.co.jp/dp/" + product.ASIN,
	})
}

func (s *Server) handleEbaySuggestCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	suggestions, err := s.tax.SuggestCategory(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"suggestions": suggestions})
}

func (s *Server) handleEbayGetItemAspects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categoryID, err := req.RequireString("category_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	aspects, err := s.tax.GetItemAspects(ctx, categoryID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(aspects)
}

func (s *Server) handleEbayGetPolicies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policies, err := s.ebay.GetPolicies(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(policies)
}

func (s *Server) handleEbayCreateListing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	priceUSD, err := req.RequireFloat("price_usd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	categoryID, err := req.RequireString("category_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sku := req.GetString("sku", "")
	asin := resolveASIN(req.GetString("asin", ""), req.GetString("amazon_url", ""), sku)
	if asin == "" && sku == "" {
		return mcp.NewToolResultError("provide asin, amazon_url, or a sku containing the ASIN"), nil
	}

	if priceUSD >= pricing.EconomyCeilingUSD {
		return blockResult(reasonPriceExceedsLimit, map[string]interface{}{
			"price_usd": priceUSD,
			"limit_usd": pricing.EconomyCeilingUSD,
		})
	}

	var product *keepa.Product
	if asin != "" && !req.GetBool("skip_keepa_check", false) {
		product, err = s.keepa.GetProduct(ctx, asin)
		if err != nil {
			var quotaErr *keepa.QuotaError
			if errors.As(err, &quotaErr) {
				return blockResult(reasonQuota, map[string]interface{}{
					"tokens_left":    quotaErr.TokensLeft,
					"tokens_needed":  quotaErr.TokensNeeded,
					"estimated_wait": quotaErr.EstimatedWait.String(),
				})
			}
			// A flaky availability check must not stop a listing the
			// caller already decided on.
			s.log.Warn().Err(err).Str("asin", asin).
				Msg("availability check failed, listing without it")
			product = nil
		}
	}
	if product != nil {
		if product.PriceJPY <= 0 {
			return blockResult(reasonNoPrice, map[string]interface{}{
				"asin":   product.ASIN,
				"status": product.Status,
			})
		}
		if product.StockCount != nil && *product.StockCount == 0 {
			return blockResult(reasonOutOfStock, map[string]interface{}{
				"asin":   product.ASIN,
				"status": product.Status,
			})
		}
		if product.ShippingDaysMax != nil && *product.ShippingDaysMax > maxShippingDelayDays {
			return blockResult(reasonShippingDelay, map[string]interface{}{
				"asin":              product.ASIN,
				"shipping_days_max": *product.ShippingDaysMax,
				"max_days":          maxShippingDelayDays,
			})
		}
	}

	if sku == "" {
		sku = s.monitor.IssueSKU(ctx, asin)
	}

	result, err := s.lister.CreateListing(ctx, ebay.ListingRequest{
		SKU:                  sku,
		Title:                title,
		Description:          description,
		PriceUSD:             priceUSD,
		CategoryID:           categoryID,
		Quantity:             req.GetInt("quantity", 1),
		Condition:            req.GetString("condition", "NEW"),
		ConditionDescription: req.GetString("condition_description", ""),
		Images:               listingImages(req.GetArguments()["image_urls"], product),
		ItemSpecifics:        stringMap(req.GetArguments()["item_specifics"]),
		WeightKG:             req.GetFloat("weight_g", 0) / 1000,
		Policies: ebay.ListingPolicies{
			FulfillmentPolicyID: s.cfg.EbayFulfillmentPolicyID,
			PaymentPolicyID:     s.cfg.EbayPaymentPolicyID,
			ReturnPolicyID:      s.cfg.EbayReturnPolicyID,
		},
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Without an ASIN there is nothing for the monitor to watch.
	registered := false
	if asin != "" {
		registered = s.registerWithMonitor(ctx, asin, product, result, req.GetFloat("purchase_price_jpy", 0))
	}

	return jsonResult(map[string]interface{}{
		"success":            true,
		"listing":            result,
		"monitor_registered": registered,
	})
}

func (s *Server) registerWithMonitor(ctx context.Context, asin string, product *keepa.Product, result *ebay.ListingResult, purchaseJPY float64) bool {
	reg := monitor.Registration{
		SKU:       result.SKU,
		ASIN:      asin,
		ListingID: result.ListingID,
		PriceUSD:  result.PriceUSD,
		PriceJPY:  purchaseJPY,
		EbayURL:   result.URL,
		AmazonURL: "https://www.amazon.co.jp/dp/" + asin,
		Status:    keepa.StatusOK,
	}
	if product != nil {
		reg.Title = product.Title
		reg.Status = product.Status
		reg.StockCount = product.StockCount
		if purchaseJPY <= 0 {
			reg.PriceJPY = product.PriceJPY
		}
	}
	return s.monitor.Register(ctx, reg)
}

func (s *Server) handleEbayUpdateQuantity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quantity, err := req.RequireInt("quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if quantity < 0 {
		return mcp.NewToolResultError("quantity must not be negative"), nil
	}

	if err := s.lister.UpdateQuantity(ctx, sku, quantity); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{
		"success":  true,
		"sku":      sku,
		"quantity": quantity,
	})
}

// resolveASIN finds the source product's ASIN from the explicit parameter,
// the Amazon URL, or an ASIN-shaped token embedded in the SKU. Returns ""
// when none of them carries one.
func resolveASIN(asin, amazonURL, sku string) string {
	if asin != "" {
		return asin
	}
	if amazonURL != "" {
		if got, err := keepa.ExtractASIN(amazonURL); err == nil {
			return got
		}
	}
	return keepa.FindASIN(sku)
}

// listingImages prefers explicitly supplied URLs over the Amazon product
// images.
func listingImages(v interface{}, p *keepa.Product) []string {
	if raw, ok := v.([]interface{}); ok && len(raw) > 0 {
		urls := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}
	if p == nil {
		return nil
	}
	return p.Images
}

func stringMap(v interface{}) map[string]string {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
