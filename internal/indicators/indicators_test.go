package indicators

import (
	"math"
	"testing"

	"github.com/openrange/orbbot/internal/orb"
)

func TestSessionVWAP(t *testing.T) {
	bars := []orb.Bar{
		{High: 12, Low: 10, Close: 11, Volume: 100}, // typical 11
		{High: 14, Low: 12, Close: 13, Volume: 300}, // typical 13
	}
	vwap, ok := SessionVWAP(bars)
	if !ok {
		t.Fatal("expected defined VWAP")
	}
	want := (11.0*100 + 13.0*300) / 400
	if math.Abs(vwap-want) > 1e-9 {
		t.Fatalf("vwap = %v, want %v", vwap, want)
	}
}

func TestSessionVWAP_NoVolume(t *testing.T) {
	bars := []orb.Bar{{High: 12, Low: 10, Close: 11, Volume: 0}}
	if _, ok := SessionVWAP(bars); ok {
		t.Fatal("zero volume must leave VWAP undefined")
	}
	if _, ok := SessionVWAP(nil); ok {
		t.Fatal("no bars must leave VWAP undefined")
	}
}

func TestVolumeSMA(t *testing.T) {
	bars := make([]orb.Bar, 0, 6)
	for _, v := range []int64{100, 200, 300, 400, 500, 9999} {
		bars = append(bars, orb.Bar{Volume: v})
	}
	// Average of the 5 bars preceding the last one.
	sma, ok := VolumeSMA(bars, 5)
	if !ok {
		t.Fatal("expected defined SMA")
	}
	if sma != 300 {
		t.Fatalf("sma = %v, want 300", sma)
	}
}

func TestVolumeSMA_InsufficientBars(t *testing.T) {
	bars := []orb.Bar{{Volume: 100}, {Volume: 200}}
	if _, ok := VolumeSMA(bars, 5); ok {
		t.Fatal("expected undefined SMA with too few bars")
	}
	if _, ok := VolumeSMA(bars, 0); ok {
		t.Fatal("period 0 must be undefined")
	}
}

func TestEMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	ema := EMA(closes, 3)
	if len(ema) != 3 {
		t.Fatalf("len = %d, want 3", len(ema))
	}
	// Seed is SMA(1,2,3)=2; k=0.5; then 4*0.5+2*0.5=3; 5*0.5+3*0.5=4.
	want := []float64{2, 3, 4}
	for i := range want {
		if math.Abs(ema[i]-want[i]) > 1e-9 {
			t.Fatalf("ema[%d] = %v, want %v", i, ema[i], want[i])
		}
	}
}

func TestEMA_NotEnoughData(t *testing.T) {
	if got := EMA([]float64{1, 2}, 3); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestDailyRegime(t *testing.T) {
	rising := make([]float64, 60)
	falling := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 200 - float64(i)
	}

	if got := DailyRegime(rising, 50); got != orb.RegimeUp {
		t.Fatalf("rising closes: got %s, want %s", got, orb.RegimeUp)
	}
	if got := DailyRegime(falling, 50); got != orb.RegimeDown {
		t.Fatalf("falling closes: got %s, want %s", got, orb.RegimeDown)
	}
	if got := DailyRegime(rising[:10], 50); got != orb.RegimeUnknown {
		t.Fatalf("short history: got %s, want %s", got, orb.RegimeUnknown)
	}
}
