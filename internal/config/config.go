// Package config loads environment configuration for the server. Only the
// Keepa key is hard-required; each integration degrades gracefully when its
// variables are absent, so research-only usage needs minimal setup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting.
type Config struct {
	// Keepa product API.
	KeepaAPIKey string

	// eBay OAuth credentials.
	EbayClientID     string
	EbayClientSecret string
	EbayRefreshToken string

	// eBay business policy IDs attached to new offers.
	EbayFulfillmentPolicyID string
	EbayPaymentPolicyID     string
	EbayReturnPolicyID      string

	// Stock monitor service.
	MonitorBaseURL string
	MonitorAPIKey  string

	// Optional external pricing service that overrides the local solver.
	PricingServiceURL string

	// Pricing defaults.
	TargetMargin float64
	FallbackRate float64

	// Paths.
	CachePath string
	LogPath   string
}

const (
	defaultTargetMargin = 0.15
	defaultFallbackRate = 155.0
	defaultCachePath    = "cache/taxonomy.json"
	defaultLogPath      = "logs/crosslist.log"
)

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		KeepaAPIKey:             os.Getenv("KEEPA_API_KEY"),
		EbayClientID:            os.Getenv("EBAY_CLIENT_ID"),
		EbayClientSecret:        os.Getenv("EBAY_CLIENT_SECRET"),
		EbayRefreshToken:        os.Getenv("EBAY_REFRESH_TOKEN"),
		EbayFulfillmentPolicyID: os.Getenv("EBAY_FULFILLMENT_POLICY_ID"),
		EbayPaymentPolicyID:     os.Getenv("EBAY_PAYMENT_POLICY_ID"),
		EbayReturnPolicyID:      os.Getenv("EBAY_RETURN_POLICY_ID"),
		MonitorBaseURL:          os.Getenv("MONITOR_BASE_URL"),
		MonitorAPIKey:           os.Getenv("MONITOR_API_KEY"),
		PricingServiceURL:       os.Getenv("PRICING_SERVICE_URL"),
		TargetMargin:            defaultTargetMargin,
		FallbackRate:            defaultFallbackRate,
		CachePath:               envOr("CACHE_PATH", defaultCachePath),
		LogPath:                 envOr("LOG_PATH", defaultLogPath),
	}

	if v := os.Getenv("TARGET_MARGIN"); v != "" {
		margin, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TARGET_MARGIN %q: %w", v, err)
		}
		if margin <= 0 || margin >= 1 {
			return nil, fmt.Errorf("TARGET_MARGIN must be between 0 and 1, got %v", margin)
		}
		cfg.TargetMargin = margin
	}

	if v := os.Getenv("FALLBACK_USD_JPY"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FALLBACK_USD_JPY %q: %w", v, err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("FALLBACK_USD_JPY must be positive, got %v", rate)
		}
		cfg.FallbackRate = rate
	}

	return cfg, nil
}

// EbayConfigured reports whether listing operations can authenticate.
func (c *Config) EbayConfigured() bool {
	return c.EbayClientID != "" && c.EbayClientSecret != "" && c.EbayRefreshToken != ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
