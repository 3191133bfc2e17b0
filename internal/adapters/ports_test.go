package adapters

import (
	"fmt"
	"math"
	"testing"
)

func TestBracketPrices(t *testing.T) {
	tests := []struct {
		side   string
		ref    float64
		tpPct  float64
		slPct  float64
		wantTP float64
		wantSL float64
	}{
		{"BUY", 100, 2.0, 0.5, 102.0, 99.5},
		{"SELL", 100, 2.0, 0.5, 98.0, 100.5},
		{"BUY", 55.5, 1.0, 1.0, 56.055, 54.945},
	}
	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			req := BracketRequest{Side: tt.side, RefPrice: tt.ref, TakeProfitPct: tt.tpPct, StopLossPct: tt.slPct}
			tp, sl := req.BracketPrices()
			if math.Abs(tp-tt.wantTP) > 1e-9 || math.Abs(sl-tt.wantSL) > 1e-9 {
				t.Fatalf("tp=%v sl=%v, want tp=%v sl=%v", tp, sl, tt.wantTP, tt.wantSL)
			}
		})
	}
}

func TestBuySideExitsBracketTheEntry(t *testing.T) {
	req := BracketRequest{Side: "BUY", RefPrice: 50, TakeProfitPct: 2, StopLossPct: 1}
	tp, sl := req.BracketPrices()
	if !(tp > req.RefPrice && sl < req.RefPrice) {
		t.Fatalf("BUY bracket must straddle entry: tp=%v sl=%v ref=%v", tp, sl, req.RefPrice)
	}

	req.Side = "SELL"
	tp, sl = req.BracketPrices()
	if !(tp < req.RefPrice && sl > req.RefPrice) {
		t.Fatalf("SELL bracket must straddle entry: tp=%v sl=%v ref=%v", tp, sl, req.RefPrice)
	}
}

func TestIsDataUnavailable(t *testing.T) {
	if !IsDataUnavailable(NewDataUnavailable("VIXY", "quiet tape")) {
		t.Fatal("unavailable error not classified")
	}
	if IsDataUnavailable(NewNetworkError("VIXY", "conn reset", nil)) {
		t.Fatal("network error misclassified as unavailable")
	}
	if IsDataUnavailable(fmt.Errorf("plain error")) {
		t.Fatal("plain error misclassified")
	}
	// Wrapped errors still classify.
	wrapped := fmt.Errorf("fetch: %w", NewDataUnavailable("VIXY", "gap"))
	if !IsDataUnavailable(wrapped) {
		t.Fatal("wrapped unavailable error not classified")
	}
}
