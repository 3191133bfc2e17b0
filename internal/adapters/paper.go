package adapters

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrange/orbbot/internal/observ"
	"github.com/openrange/orbbot/internal/outbox"
)

// PaperBroker simulates the brokerage: entries fill immediately at the
// reference price, the two child orders stay working. That gives the
// duplicate-entry gate the same shape a live broker would: once a bracket is
// in, net position is nonzero and open orders are pending.
//
// All state is mutex-guarded; the check-then-act sequence in the controller
// stays race-free even if a second scheduler is pointed at the same broker.
type PaperBroker struct {
	mu        sync.Mutex
	positions map[string]int
	working   map[string]int // symbol -> open child order count
	journal   *outbox.Outbox
}

// NewPaperBroker creates a paper broker journaling to the given outbox.
// The journal may be nil; submission still works, it just isn't recorded.
func NewPaperBroker(journal *outbox.Outbox) *PaperBroker {
	return &PaperBroker{
		positions: make(map[string]int),
		working:   make(map[string]int),
		journal:   journal,
	}
}

func (b *PaperBroker) NetPosition(ctx context.Context, symbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol], nil
}

func (b *PaperBroker) OpenOrderCount(ctx context.Context, symbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.working[symbol], nil
}

// PlaceBracket validates, dedupes against the journal, fills the entry and
// leaves the two exits working.
func (b *PaperBroker) PlaceBracket(ctx context.Context, req BracketRequest) (*BracketResult, error) {
	if req.Quantity <= 0 {
		return nil, NewOrderRejected(req.Symbol, fmt.Sprintf("invalid quantity %d", req.Quantity))
	}
	if req.Side != "BUY" && req.Side != "SELL" {
		return nil, NewOrderRejected(req.Symbol, fmt.Sprintf("invalid side %q", req.Side))
	}
	if req.RefPrice <= 0 || math.IsNaN(req.RefPrice) {
		return nil, NewOrderRejected(req.Symbol, fmt.Sprintf("invalid reference price %.4f", req.RefPrice))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.positions[req.Symbol] != 0 || b.working[req.Symbol] > 0 {
		return nil, NewOrderRejected(req.Symbol, "bracket already active for symbol")
	}

	idemKey := fmt.Sprintf("%s_%s_%s", req.Symbol, time.Now().UTC().Format("2006-01-02"), req.Side)
	if b.journal != nil {
		if dup, err := b.journal.HasRecentOrder(idemKey); err == nil && dup {
			return nil, NewOrderRejected(req.Symbol, "duplicate bracket suppressed by journal dedupe")
		}
	}

	tp, sl := req.BracketPrices()
	res := &BracketResult{
		ParentID:        uuid.NewString(),
		TakeProfitID:    uuid.NewString(),
		StopLossID:      uuid.NewString(),
		Side:            req.Side,
		Quantity:        req.Quantity,
		EntryRefPrice:   req.RefPrice,
		TakeProfitPrice: round2(tp),
		StopLossPrice:   round2(sl),
	}

	qty := req.Quantity
	if req.Side == "SELL" {
		qty = -qty
	}
	b.positions[req.Symbol] = qty
	b.working[req.Symbol] = 2 // tp + sl children

	if b.journal != nil {
		if err := b.journal.WriteOrder(outbox.Order{
			ID:             res.ParentID,
			Symbol:         req.Symbol,
			Side:           req.Side,
			Quantity:       req.Quantity,
			RefPrice:       req.RefPrice,
			TakeProfit:     res.TakeProfitPrice,
			StopLoss:       res.StopLossPrice,
			Timestamp:      time.Now().UTC(),
			Status:         "filled",
			IdempotencyKey: idemKey,
		}); err != nil {
			observ.Error("paper_journal_write_failed", err, map[string]any{"symbol": req.Symbol})
		}
	}

	observ.OrdersPlacedTotal.WithLabelValues(req.Symbol, req.Side).Inc()
	return res, nil
}

// Flatten clears position and working orders for a symbol, simulating a
// child-order fill closing the trade. Exposed for the ops surface and tests.
func (b *PaperBroker) Flatten(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[symbol] = 0
	b.working[symbol] = 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
