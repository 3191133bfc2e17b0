package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openrange/orbbot/internal/orb"
)

// DailyHistory is an optional capability: daily closes for the trend regime
// filter. Callers type-assert for it; providers without it simply leave the
// regime undefined.
type DailyHistory interface {
	DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

// HistoryConfig configures the broker-native bar feed.
type HistoryConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// HistoryAdapter implements MarketDataPort against the broker-side bar
// service. Unlike the quote vendor it can serve minute history, so it backs
// hybrid backfill and the catch-up scan. Latest price is approximated by the
// last minute close; there is no streaming quote here.
type HistoryAdapter struct {
	cfg        HistoryConfig
	httpClient *http.Client
}

// NewHistoryAdapter applies defaults and returns the adapter.
func NewHistoryAdapter(cfg HistoryConfig) (*HistoryAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("history base URL is required")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	return &HistoryAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

type barsResponse struct {
	Bars []orb.Bar `json:"bars"`
}

func (a *HistoryAdapter) getBars(ctx context.Context, symbol, path string, q url.Values) ([]orb.Bar, error) {
	u, err := url.Parse(a.cfg.BaseURL + path)
	if err != nil {
		return nil, err
	}
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(symbol, "bar request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(symbol, fmt.Sprintf("bar service returned %d", resp.StatusCode), nil)
	}
	var br barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, NewProviderError(symbol, "malformed bar response", err)
	}
	return br.Bars, nil
}

// LatestPrice returns the close of the most recent minute bar.
func (a *HistoryAdapter) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	bar, err := a.MinuteSnapshot(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return bar.Close, nil
}

// MinuteSnapshot returns the most recent minute bar of the day.
func (a *HistoryAdapter) MinuteSnapshot(ctx context.Context, symbol string) (*orb.Bar, error) {
	now := time.Now()
	bars, err := a.HistoricalMinuteBars(ctx, symbol, now.Add(-15*time.Minute), now)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, NewDataUnavailable(symbol, "no minute bars returned")
	}
	last := bars[len(bars)-1]
	return &last, nil
}

// HistoricalMinuteBars fetches 1-minute bars for [from, to].
func (a *HistoryAdapter) HistoricalMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]orb.Bar, error) {
	q := url.Values{}
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	return a.getBars(ctx, symbol, "/bars", q)
}

// DailyCloses fetches up to days daily closes, oldest first.
func (a *HistoryAdapter) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	bars, err := a.getBars(ctx, symbol, "/bars/daily", q)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		closes = append(closes, b.Close)
	}
	return closes, nil
}

// HealthCheck hits the bar service health endpoint.
func (a *HistoryAdapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bar service health returned %d", resp.StatusCode)
	}
	return nil
}

func (a *HistoryAdapter) Close() error { return nil }
