package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guarzo/crosslist/internal/cache"
	"github.com/guarzo/crosslist/internal/config"
	"github.com/guarzo/crosslist/internal/ebay"
	"github.com/guarzo/crosslist/internal/keepa"
	"github.com/guarzo/crosslist/internal/mcpserver"
	"github.com/guarzo/crosslist/internal/monitor"
	"github.com/guarzo/crosslist/internal/pricing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crosslist: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.LogPath)
	if err != nil {
		return err
	}

	rates := pricing.NewRateSource(log.With().Str("component", "rates").Logger())
	engine := pricing.NewEngine(pricing.DefaultFeeConfig())

	keepaClient := keepa.NewClient(cfg.KeepaAPIKey, log.With().Str("component", "keepa").Logger())
	scraper := keepa.NewDimensionScraper(log.With().Str("component", "scraper").Logger())

	tokens := ebay.NewTokenManager(ebay.Credentials{
		ClientID:     cfg.EbayClientID,
		ClientSecret: cfg.EbayClientSecret,
		RefreshToken: cfg.EbayRefreshToken,
	})
	ebayClient := ebay.NewClient(tokens, log.With().Str("component", "ebay").Logger())
	lister := ebay.NewLister(ebayClient)

	taxonomyCache, err := cache.New(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("opening taxonomy cache: %w", err)
	}
	taxonomy := ebay.NewTaxonomy(ebayClient, taxonomyCache)

	monitorClient := monitor.NewClient(cfg.MonitorBaseURL, cfg.MonitorAPIKey,
		log.With().Str("component", "monitor").Logger())

	// Warm the rate snapshot and keep it fresh in the background so a flaky
	// rate API mid-call falls back to a recent value, not the hardcoded one.
	rates.Refresh(context.Background())
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1h", func() {
		rates.Refresh(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduling rate refresh: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := mcpserver.New(cfg, mcpserver.Deps{
		Engine:   engine,
		Rates:    rates,
		Keepa:    keepaClient,
		Scraper:  scraper,
		Ebay:     ebayClient,
		Lister:   lister,
		Taxonomy: taxonomy,
		Monitor:  monitorClient,
	}, log)

	log.Info().
		Bool("keepa", keepaClient.Available()).
		Bool("ebay", cfg.EbayConfigured()).
		Bool("monitor", monitorClient.Available()).
		Msg("starting MCP server on stdio")

	return srv.Serve()
}

// newLogger writes to a file: stdout and stdin belong to the MCP transport
// and must stay clean.
func newLogger(path string) (zerolog.Logger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return zerolog.Logger{}, fmt.Errorf("creating log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("opening log file: %w", err)
	}
	return zerolog.New(f).With().Timestamp().Logger(), nil
}
