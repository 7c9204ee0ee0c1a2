package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FXSpread is the payment processor's hidden spread on currency
	// conversion.
	FXSpread = 0.02
	// DefaultUSDJPY is used when no live rate can be fetched.
	DefaultUSDJPY = 155.0

	frankfurterURL = "https://api.frankfurter.app/latest?from=USD&to=JPY"
)

// ExchangeContext carries the rates for a single quote computation. Rates may
// move between calls, so a context is fetched per computation and never
// cached as part of a financial result.
type ExchangeContext struct {
	MarketRate    float64 `json:"exchange_rate"`
	EffectiveRate float64 `json:"effective_rate"`
}

// NewExchangeContext derives the effective (spread-adjusted) rate from a
// market USD→JPY rate.
func NewExchangeContext(marketRate float64) ExchangeContext {
	return ExchangeContext{
		MarketRate:    marketRate,
		EffectiveRate: marketRate * (1 - FXSpread),
	}
}

// RateSource fetches the USD→JPY market rate. A background refresher keeps a
// snapshot so that a fetch failure mid-call degrades to the last known rate
// rather than straight to the static default.
type RateSource struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger

	mu       sync.RWMutex
	snapshot float64
}

// NewRateSource creates a RateSource with no snapshot yet.
func NewRateSource(log zerolog.Logger) *RateSource {
	return &RateSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        frankfurterURL,
		log:        log,
	}
}

// NewRateSourceWithURL is used by tests to point at a stub server.
func NewRateSourceWithURL(url string, log zerolog.Logger) *RateSource {
	s := NewRateSource(log)
	s.url = url
	return s
}

// Current returns an ExchangeContext from a live fetch, the last snapshot, or
// the static default, in that order.
func (s *RateSource) Current(ctx context.Context) ExchangeContext {
	rate, err := s.fetch(ctx)
	if err != nil {
		s.mu.RLock()
		snap := s.snapshot
		s.mu.RUnlock()
		if snap > 0 {
			s.log.Warn().Err(err).Float64("snapshot", snap).Msg("rate fetch failed, using snapshot")
			return NewExchangeContext(snap)
		}
		s.log.Warn().Err(err).Msg("rate fetch failed, using default rate")
		return NewExchangeContext(DefaultUSDJPY)
	}
	return NewExchangeContext(rate)
}

// Refresh updates the fallback snapshot. Run on a schedule.
func (s *RateSource) Refresh(ctx context.Context) {
	rate, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("scheduled rate refresh failed")
		return
	}
	s.mu.Lock()
	s.snapshot = rate
	s.mu.Unlock()
	s.log.Debug().Float64("usd_jpy", rate).Msg("exchange rate snapshot refreshed")
}

func (s *RateSource) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Rates struct {
			JPY float64 `json:"JPY"`
		} `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("parsing rate response: %w", err)
	}
	if payload.Rates.JPY <= 0 {
		return 0, fmt.Errorf("rate response missing JPY rate")
	}
	return payload.Rates.JPY, nil
}
