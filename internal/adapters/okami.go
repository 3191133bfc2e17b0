package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/openrange/orbbot/internal/observ"
	"github.com/openrange/orbbot/internal/orb"
)

// OkamiConfig configures the Okami-style quote vendor client.
type OkamiConfig struct {
	BaseURL            string
	Token              string
	TimeoutSeconds     int
	RateLimitPerMinute int
	MaxRetries         int
	BackoffBaseMs      int
}

// OkamiAdapter implements MarketDataPort against the vendor's real-time and
// minute-snapshot endpoints. The vendor serves only the current minute, so
// HistoricalMinuteBars is not supported; hybrid catch-up must go through the
// broker-native feed instead.
type OkamiAdapter struct {
	cfg         OkamiConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// NewOkamiAdapter validates config and applies defaults.
func NewOkamiAdapter(cfg OkamiConfig) (*OkamiAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("okami base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("okami API token is required")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 5
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 60
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = 200
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "okami",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observ.Warn("okami_breaker_state", map[string]any{"from": from.String(), "to": to.String()})
		},
	})

	return &OkamiAdapter{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60), 1),
		breaker:     breaker,
	}, nil
}

type okamiQuote struct {
	BidPrice         *float64 `json:"bid_price"`
	AskPrice         *float64 `json:"ask_price"`
	Last             *float64 `json:"last"`
	MinuteClosePrice *float64 `json:"minute_close_price"`
	Timestamp        string   `json:"timestamp"`
}

type okamiMinute struct {
	Open      *float64 `json:"minute_open_price"`
	High      *float64 `json:"minute_high_price"`
	Low       *float64 `json:"minute_low_price"`
	Close     *float64 `json:"minute_close_price"`
	Volume    *int64   `json:"minute_volume"`
	Timestamp string   `json:"timestamp"`
}

// LatestPrice prefers the bid/ask mid, then falls back to whichever price
// field the vendor populated.
func (a *OkamiAdapter) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	var q okamiQuote
	if err := a.post(ctx, symbol, "/quote/real-time", &q); err != nil {
		return 0, err
	}
	if q.BidPrice != nil && q.AskPrice != nil {
		return (*q.BidPrice + *q.AskPrice) / 2, nil
	}
	for _, v := range []*float64{q.Last, q.MinuteClosePrice, q.BidPrice, q.AskPrice} {
		if v != nil {
			return *v, nil
		}
	}
	return 0, NewDataUnavailable(symbol, "real-time quote had no usable price fields")
}

// MinuteSnapshot returns the current minute's OHLCV bar.
func (a *OkamiAdapter) MinuteSnapshot(ctx context.Context, symbol string) (*orb.Bar, error) {
	var m okamiMinute
	if err := a.post(ctx, symbol, "/quote/minute", &m); err != nil {
		return nil, err
	}
	if m.High == nil || m.Low == nil {
		return nil, NewDataUnavailable(symbol, "minute snapshot missing high/low")
	}
	bar := &orb.Bar{High: *m.High, Low: *m.Low}
	if m.Open != nil {
		bar.Open = *m.Open
	}
	if m.Close != nil {
		bar.Close = *m.Close
	}
	if m.Volume != nil {
		bar.Volume = *m.Volume
	}
	if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
		bar.Timestamp = ts
	} else {
		bar.Timestamp = time.Now()
	}
	return bar, nil
}

// HistoricalMinuteBars is not available from this vendor.
func (a *OkamiAdapter) HistoricalMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]orb.Bar, error) {
	return nil, ErrHistoryNotSupported
}

// HealthCheck performs a lightweight quote request.
func (a *OkamiAdapter) HealthCheck(ctx context.Context) error {
	var q okamiQuote
	return a.post(ctx, "SPY", "/quote/real-time", &q)
}

// Close releases nothing today; the http.Client owns no persistent state we
// need to tear down.
func (a *OkamiAdapter) Close() error { return nil }

// post issues one rate-limited call through the circuit breaker, retrying
// transient failures with exponential backoff bounded by the context.
func (a *OkamiAdapter) post(ctx context.Context, symbol, path string, out any) error {
	if err := a.rateLimiter.Wait(ctx); err != nil {
		return NewNetworkError(symbol, "rate limiter wait aborted", err)
	}

	body, err := json.Marshal(map[string]string{"token": a.cfg.Token, "ticker": symbol})
	if err != nil {
		return err
	}

	attempt := func() error {
		_, err := a.breaker.Execute(func() (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(body))
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")

			resp, err := a.httpClient.Do(req)
			if err != nil {
				observ.DataErrorsTotal.WithLabelValues("okami").Inc()
				return nil, NewNetworkError(symbol, "request failed", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				observ.DataErrorsTotal.WithLabelValues("okami").Inc()
				return nil, NewProviderError(symbol, fmt.Sprintf("vendor returned %d", resp.StatusCode), nil)
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, backoff.Permanent(NewProviderError(symbol, "malformed response body", err))
			}
			return nil, nil
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return backoff.Permanent(NewProviderError(symbol, "circuit breaker open", err))
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(time.Duration(a.cfg.BackoffBaseMs)*time.Millisecond),
		),
		uint64(a.cfg.MaxRetries),
	), ctx)

	return backoff.Retry(attempt, policy)
}
