package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/openrange/orbbot/internal/orb"
)

// MockMarketData is a deterministic MarketDataPort for tests and dry runs.
// Fields are plain data so tests can script each tick.
type MockMarketData struct {
	mu sync.Mutex

	Price     float64
	PriceSet  bool
	PriceErr  error
	Minute    *orb.Bar
	MinuteErr error
	Bars      []orb.Bar
	BarsErr   error
	Daily     []float64
	NoHistory bool
}

func (m *MockMarketData) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PriceErr != nil {
		return 0, m.PriceErr
	}
	if !m.PriceSet {
		return 0, NewDataUnavailable(symbol, "no scripted price")
	}
	return m.Price, nil
}

func (m *MockMarketData) MinuteSnapshot(ctx context.Context, symbol string) (*orb.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MinuteErr != nil {
		return nil, m.MinuteErr
	}
	if m.Minute == nil {
		return nil, NewDataUnavailable(symbol, "no scripted minute bar")
	}
	bar := *m.Minute
	return &bar, nil
}

func (m *MockMarketData) HistoricalMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]orb.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NoHistory {
		return nil, ErrHistoryNotSupported
	}
	if m.BarsErr != nil {
		return nil, m.BarsErr
	}
	var out []orb.Bar
	for _, b := range m.Bars {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockMarketData) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NoHistory {
		return nil, ErrHistoryNotSupported
	}
	return m.Daily, nil
}

func (m *MockMarketData) HealthCheck(ctx context.Context) error { return nil }
func (m *MockMarketData) Close() error                          { return nil }

// MockBroker records bracket submissions and reports scripted exposure.
type MockBroker struct {
	mu sync.Mutex

	Position   int
	OpenOrders int
	PosErr     error
	PlaceErr   error
	Placed     []BracketRequest
}

func (b *MockBroker) NetPosition(ctx context.Context, symbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PosErr != nil {
		return 0, b.PosErr
	}
	return b.Position, nil
}

func (b *MockBroker) OpenOrderCount(ctx context.Context, symbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PosErr != nil {
		return 0, b.PosErr
	}
	return b.OpenOrders, nil
}

func (b *MockBroker) PlaceBracket(ctx context.Context, req BracketRequest) (*BracketResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PlaceErr != nil {
		return nil, b.PlaceErr
	}
	b.Placed = append(b.Placed, req)
	tp, sl := req.BracketPrices()
	qty := req.Quantity
	if req.Side == "SELL" {
		qty = -qty
	}
	b.Position = qty
	b.OpenOrders = 2
	return &BracketResult{
		ParentID:        "mock-parent",
		TakeProfitID:    "mock-tp",
		StopLossID:      "mock-sl",
		Side:            req.Side,
		Quantity:        req.Quantity,
		EntryRefPrice:   req.RefPrice,
		TakeProfitPrice: tp,
		StopLossPrice:   sl,
	}, nil
}
