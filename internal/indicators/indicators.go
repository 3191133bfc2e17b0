// Package indicators computes the small set of filter inputs the breakout
// evaluator consumes: session VWAP, rolling volume SMA, and the EMA-based
// daily trend regime.
package indicators

import (
	"github.com/openrange/orbbot/internal/orb"
)

// SessionVWAP returns the volume-weighted average price across the given
// intraday bars. The second return is false when there is no volume to
// weight by, in which case the filter treats VWAP as undefined.
func SessionVWAP(bars []orb.Bar) (float64, bool) {
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3.0
		pv += typical * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol <= 0 {
		return 0, false
	}
	return pv / vol, true
}

// VolumeSMA returns the simple moving average of volume over the trailing
// period bars, excluding the most recent bar (the one being tested against
// it). False when there are fewer than period prior bars.
func VolumeSMA(bars []orb.Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}
	window := bars[len(bars)-1-period : len(bars)-1]
	var sum float64
	for _, b := range window {
		sum += float64(b.Volume)
	}
	return sum / float64(period), true
}

// EMA computes an exponential moving average series over closes.
// Returns nil when there is not enough data for the period.
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	out := make([]float64, len(closes))
	var seed float64
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out[period-1:]
}

// DailyRegime classifies the long-horizon trend from daily closes: price
// above its EMA is an uptrend, below is a downtrend. Unknown when there is
// not enough history, which the filter gate treats as non-blocking.
func DailyRegime(dailyCloses []float64, emaPeriod int) orb.Regime {
	ema := EMA(dailyCloses, emaPeriod)
	if len(ema) == 0 {
		return orb.RegimeUnknown
	}
	last := dailyCloses[len(dailyCloses)-1]
	if last > ema[len(ema)-1] {
		return orb.RegimeUp
	}
	return orb.RegimeDown
}
