// Package adapters holds the capability interfaces the strategy core calls
// and their concrete implementations. The core depends on the capability,
// never on the vendor.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openrange/orbbot/internal/orb"
)

// MarketDataPort supplies the latest trade price and minute-level OHLCV for
// a symbol. HistoricalMinuteBars is an optional capability used only for
// hybrid backfill and catch-up scans; implementations without history return
// ErrHistoryNotSupported.
type MarketDataPort interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	MinuteSnapshot(ctx context.Context, symbol string) (*orb.Bar, error)
	HistoricalMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]orb.Bar, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// BrokerPort exposes position/open-order introspection and bracket order
// submission. Implementations must be safe for the check-then-act sequence
// the controller performs (serialized within one tick).
type BrokerPort interface {
	NetPosition(ctx context.Context, symbol string) (int, error)
	OpenOrderCount(ctx context.Context, symbol string) (int, error)
	PlaceBracket(ctx context.Context, req BracketRequest) (*BracketResult, error)
}

// BracketRequest describes one entry plus its paired exits.
type BracketRequest struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"` // BUY | SELL
	Quantity      int     `json:"quantity"`
	RefPrice      float64 `json:"ref_price"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	StopLossPct   float64 `json:"stop_loss_pct"`
}

// BracketPrices computes the child order prices from the entry reference.
// The percentage sign flips with side: a SELL entry takes profit below and
// stops above.
func (r BracketRequest) BracketPrices() (tp, sl float64) {
	if r.Side == "BUY" {
		return r.RefPrice * (1 + r.TakeProfitPct/100), r.RefPrice * (1 - r.StopLossPct/100)
	}
	return r.RefPrice * (1 - r.TakeProfitPct/100), r.RefPrice * (1 + r.StopLossPct/100)
}

// BracketResult carries the submitted order identifiers and resolved prices.
type BracketResult struct {
	ParentID        string  `json:"parent_id"`
	TakeProfitID    string  `json:"take_profit_id"`
	StopLossID      string  `json:"stop_loss_id"`
	Side            string  `json:"side"`
	Quantity        int     `json:"quantity"`
	EntryRefPrice   float64 `json:"entry_ref_price"`
	TakeProfitPrice float64 `json:"take_profit_price"`
	StopLossPrice   float64 `json:"stop_loss_price"`
}

// ErrHistoryNotSupported marks providers with no minute-bar history.
var ErrHistoryNotSupported = errors.New("historical minute bars not supported by this provider")

// DataError classifies market-data failures so the controller can fold them
// into decision results instead of crashing the loop.
type DataError struct {
	Type    string // "unavailable", "network", "rate_limit", "provider_error"
	Symbol  string
	Message string
	Cause   error
}

func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error { return e.Cause }

func NewDataUnavailable(symbol, message string) *DataError {
	return &DataError{Type: "unavailable", Symbol: symbol, Message: message}
}

func NewNetworkError(symbol, message string, cause error) *DataError {
	return &DataError{Type: "network", Symbol: symbol, Message: message, Cause: cause}
}

func NewProviderError(symbol, message string, cause error) *DataError {
	return &DataError{Type: "provider_error", Symbol: symbol, Message: message, Cause: cause}
}

// IsDataUnavailable reports whether err means "no data this tick" as opposed
// to a transport fault.
func IsDataUnavailable(err error) bool {
	var de *DataError
	return errors.As(err, &de) && de.Type == "unavailable"
}

// BrokerError classifies brokerage failures.
type BrokerError struct {
	Type    string // "unavailable", "rejected", "timeout"
	Symbol  string
	Message string
	Cause   error
}

func (e *BrokerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("broker %s for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("broker %s for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *BrokerError) Unwrap() error { return e.Cause }

func NewBrokerUnavailable(symbol, message string, cause error) *BrokerError {
	return &BrokerError{Type: "unavailable", Symbol: symbol, Message: message, Cause: cause}
}

func NewOrderRejected(symbol, message string) *BrokerError {
	return &BrokerError{Type: "rejected", Symbol: symbol, Message: message}
}
