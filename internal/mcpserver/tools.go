package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the crosslist MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolExtractASIN = mcp.NewTool("extract_asin",
	mcp.WithDescription(
		"Extract the ASIN from an Amazon Japan product URL or validate a bare ASIN. "+
			"Handles /dp/, /gp/product/, /gp/aw/d/ and query-string URL shapes."),
	mcp.WithString("url_or_asin",
		mcp.Required(),
		mcp.Description("Amazon product URL or a 10-character ASIN")),
)

var ToolKeepaGetProduct = mcp.NewTool("keepa_get_product",
	mcp.WithDescription(
		"Fetch a product snapshot from amazon.co.jp via Keepa: current price in JPY, "+
			"stock signal, shipping delay, Prime flag, images, package dimensions and weight, "+
			"brand, model and category text. Costs Keepa tokens."),
	mcp.WithString("asin",
		mcp.Required(),
		mcp.Description("The product's ASIN (e.g. 'B0ABC12345')")),
)

var ToolKeepaGetTokens = mcp.NewTool("keepa_get_tokens",
	mcp.WithDescription(
		"Check the remaining Keepa API token budget. "+
			"Product lookups are refused when the budget is too low; use this to see how long to wait."),
)

var ToolCalculatePrice = mcp.NewTool("calculate_price",
	mcp.WithDescription(
		"Calculate the eBay US listing price in USD that achieves the target profit margin "+
			"for an item purchased in JPY. Accounts for eBay fees, import duty (DDP), "+
			"SpeedPAK shipping, customs clearance and the payout FX spread. "+
			"Returns the full cost breakdown."),
	mcp.WithNumber("purchase_price_jpy",
		mcp.Required(),
		mcp.Description("Purchase cost on Amazon Japan in JPY")),
	mcp.WithNumber("weight_g",
		mcp.Required(),
		mcp.Description("Packaged shipping weight in grams")),
	mcp.WithString("size_category",
		mcp.Required(),
		mcp.Description("SpeedPAK size class"),
		mcp.Enum("StandardA", "StandardB", "LargeA", "LargeB")),
	mcp.WithString("destination",
		mcp.Description("Destination country code (default 'US'; UK/DE/FR/IT/ES use EU rates)")),
	mcp.WithString("category",
		mcp.Description("Product category for duty and fee tiers (e.g. 'watches', 'electronics', 'clothing')")),
	mcp.WithNumber("target_profit_rate",
		mcp.Description("Target margin as a fraction of net proceeds, 0 < rate < 1 (default 0.15)")),
)

var ToolEstimateProfit = mcp.NewTool("estimate_profit",
	mcp.WithDescription(
		"Estimate the realized profit of listing an Amazon Japan product at a given USD price. "+
			"Fetches the product via Keepa, derives size class and packaged weight, and returns "+
			"every cost component plus the margin. Flags prices at or above the $800 economy shipping ceiling."),
	mcp.WithString("url_or_asin",
		mcp.Required(),
		mcp.Description("Amazon product URL or ASIN")),
	mcp.WithNumber("price_usd",
		mcp.Required(),
		mcp.Description("Candidate eBay listing price in USD")),
	mcp.WithString("category",
		mcp.Description("Product category override; classified from the title when omitted")),
)

var ToolGenerateListingData = mcp.NewTool("generate_listing_data",
	mcp.WithDescription(
		"Build listing-ready data for an Amazon Japan product: classified category, "+
			"SpeedPAK size class, packaged weight estimate and catalog attributes. "+
			"Does not solve for a price."),
	mcp.WithString("url_or_asin",
		mcp.Required(),
		mcp.Description("Amazon product URL or ASIN")),
	mcp.WithString("category",
		mcp.Description("Product category override; classified from the title when omitted")),
)

var ToolEbaySuggestCategory = mcp.NewTool("ebay_suggest_category",
	mcp.WithDescription(
		"Get suggested eBay US leaf categories for a product query, with full category breadcrumbs."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Product title or keywords (English works best)")),
)

var ToolEbayGetItemAspects = mcp.NewTool("ebay_get_item_aspects",
	mcp.WithDescription(
		"Get the item specifics an eBay category accepts, split into required and recommended, "+
			"with sample values."),
	mcp.WithString("category_id",
		mcp.Required(),
		mcp.Description("eBay leaf category ID (from ebay_suggest_category)")),
)

var ToolEbayGetPolicies = mcp.NewTool("ebay_get_policies",
	mcp.WithDescription(
		"List the seller's eBay business policies (fulfillment, payment, return) with their IDs. "+
			"Policy IDs are needed to create listings."),
)

var ToolEbayCreateListing = mcp.NewTool("ebay_create_listing",
	mcp.WithDescription(
		"Create and publish a fixed-price eBay US listing. Verifies stock and shipping delay "+
			"on Amazon first (skippable), blocks prices at or over the $800 economy shipping "+
			"ceiling, auto-issues a SKU when none is given, and registers the published listing "+
			"with the stock monitor. The source product is identified by asin, amazon_url, or "+
			"an ASIN embedded in the sku; without one the Amazon checks and monitor "+
			"registration are skipped."),
	mcp.WithString("asin",
		mcp.Description("Source product ASIN on Amazon Japan")),
	mcp.WithString("amazon_url",
		mcp.Description("Amazon Japan product URL, used to derive the ASIN when asin is omitted")),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Listing title (truncated to 80 characters)")),
	mcp.WithString("description",
		mcp.Required(),
		mcp.Description("Listing description HTML")),
	mcp.WithNumber("price_usd",
		mcp.Required(),
		mcp.Description("Listing price in USD")),
	mcp.WithString("category_id",
		mcp.Required(),
		mcp.Description("eBay leaf category ID")),
	mcp.WithString("sku",
		mcp.Description("SKU to list under; issued automatically when omitted")),
	mcp.WithNumber("quantity",
		mcp.Description("Quantity to list (default 1)")),
	mcp.WithString("condition",
		mcp.Description("Item condition (default 'NEW')"),
		mcp.Enum("NEW", "USED_EXCELLENT", "USED_VERY_GOOD", "USED_GOOD", "USED_ACCEPTABLE")),
	mcp.WithString("condition_description",
		mcp.Description("Free-text condition details for used items")),
	mcp.WithObject("item_specifics",
		mcp.Description("Item specifics as name/value pairs (e.g. {\"Brand\": \"Seiko\"})")),
	mcp.WithArray("image_urls",
		mcp.Description("Listing image URLs; falls back to the Amazon product images when omitted"),
		mcp.Items(map[string]any{"type": "string"})),
	mcp.WithNumber("weight_g",
		mcp.Description("Packaged weight in grams, used for the shipping profile")),
	mcp.WithNumber("purchase_price_jpy",
		mcp.Description("Purchase cost in JPY, reported to the stock monitor")),
	mcp.WithBoolean("skip_keepa_check",
		mcp.Description("Skip the pre-listing stock and shipping-delay verification")),
)

var ToolEbayUpdateQuantity = mcp.NewTool("ebay_update_quantity",
	mcp.WithDescription(
		"Update the available quantity of an existing listing by SKU. "+
			"Setting quantity to 0 ends the listing."),
	mcp.WithString("sku",
		mcp.Required(),
		mcp.Description("The listing's SKU")),
	mcp.WithNumber("quantity",
		mcp.Required(),
		mcp.Description("New available quantity (0 to end the listing)")),
)
