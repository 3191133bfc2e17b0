package orb

import (
	"fmt"
	"strings"
	"time"
)

// Phase tracks where the session stands relative to the opening range.
type Phase string

const (
	PhasePre      Phase = "pre"
	PhaseBuilding Phase = "building"
	PhasePost     Phase = "post"
)

// Status is the outcome of one evaluation.
type Status string

const (
	StatusPre              Status = "waiting_premarket"
	StatusBuilding         Status = "building_range"
	StatusNoData           Status = "no_data"
	StatusWaiting          Status = "waiting_for_breakout"
	StatusEnterLong        Status = "entered_long"
	StatusEnterShort       Status = "entered_short"
	StatusEnterLongLate    Status = "entered_long_late"
	StatusEnterShortLate   Status = "entered_short_late"
	StatusBlockedExisting  Status = "blocked_existing"
	StatusBlockedDirection Status = "blocked_direction"
	StatusBlockedFilter    Status = "blocked_filter"
	StatusError            Status = "error"
	StatusOrderFailed      Status = "order_failed"
)

// Entered reports whether the status represents a new entry signal.
func (s Status) Entered() bool {
	switch s {
	case StatusEnterLong, StatusEnterShort, StatusEnterLongLate, StatusEnterShortLate:
		return true
	}
	return false
}

// Side of a breakout.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Direction restricts which breakout sides may be traded.
type Direction string

const (
	DirectionBoth      Direction = "both"
	DirectionLongOnly  Direction = "long_only"
	DirectionShortOnly Direction = "short_only"
)

// FilterSet toggles the three independent entry filters. A disabled filter
// always passes.
type FilterSet struct {
	UseRegime bool `yaml:"regime" json:"regime"`
	UseVWAP   bool `yaml:"vwap" json:"vwap"`
	UseVolume bool `yaml:"volume" json:"volume"`
}

// Regime is the long-horizon trend classification derived from daily bars.
type Regime string

const (
	RegimeUp      Regime = "UPTREND"
	RegimeDown    Regime = "DOWNTREND"
	RegimeUnknown Regime = "UNKNOWN"
)

// Indicators carries the filter inputs for the current tick. An indicator
// that could not be computed (insufficient bars) is left with its Has flag
// unset and is non-blocking.
type Indicators struct {
	Regime       Regime
	VWAP         float64
	HasVWAP      bool
	BarVolume    float64
	VolumeSMA    float64
	HasVolumeSMA bool
}

// Exposure is the broker-reported state used as the duplicate-entry gate.
type Exposure struct {
	NetPosition    int `json:"net_position"`
	OpenOrderCount int `json:"open_order_count"`
}

// Blocked reports whether any position or working order exists.
func (e Exposure) Blocked() bool {
	return e.NetPosition != 0 || e.OpenOrderCount > 0
}

// CatchUp configures the late-entry mode for evaluators that start after the
// range already closed.
type CatchUp struct {
	Enabled    bool
	LateWindow time.Duration
}

// Crossing is the first historical breach of a buffered threshold after the
// window closed, found by scanning bars we were not live for.
type Crossing struct {
	Side Side      `json:"side"`
	At   time.Time `json:"at"`
	Bar  Bar       `json:"bar"`
}

// Params are the per-tick evaluation inputs that do not change intraday.
type Params struct {
	BufferPct float64
	Direction Direction
	Filters   FilterSet
	CatchUp   CatchUp
}

// Decision is the evaluator's verdict for one tick. Transient: produced
// fresh each tick, persistence is the event sink's job.
type Decision struct {
	Status Status `json:"status"`
	Phase  Phase  `json:"phase"`
	Side   Side   `json:"side,omitempty"`
	Reason string `json:"reason"`

	// FiltersFailed names the filters that vetoed an identified breakout.
	FiltersFailed []string `json:"filters_failed,omitempty"`
}

// Thresholds returns the buffered entry levels for a ready snapshot.
// A zero buffer means the exact level must be strictly exceeded.
func Thresholds(snap Snapshot, bufferPct float64) (hiBuf, loBuf float64) {
	hiBuf = *snap.High * (1 + bufferPct/100.0)
	loBuf = *snap.Low * (1 - bufferPct/100.0)
	return hiBuf, loBuf
}

// EvalContext bundles the live inputs for one evaluation.
type EvalContext struct {
	Snapshot  Snapshot
	LastPrice float64
	HasPrice  bool
	Now       time.Time
	Exposure  Exposure
	Ind       Indicators

	// MissedClose is true when the evaluator started after the window
	// already closed, so the live path never saw the crossing itself.
	MissedClose bool

	// FirstCross is the earliest post-window threshold breach found by the
	// one-time historical scan; nil when no scan ran or nothing crossed.
	FirstCross *Crossing
}

// Evaluate runs the per-tick state machine: phase, exposure gate, breakout
// detection, direction restriction, filter gate, and the late-entry policy.
// It never places orders; it only says what should happen.
func Evaluate(ctx EvalContext, p Params) Decision {
	snap := ctx.Snapshot
	phase := phaseFor(ctx.Now, snap.Window)

	switch phase {
	case PhasePre:
		return Decision{
			Status: StatusPre,
			Phase:  phase,
			Reason: fmt.Sprintf("pre-market: opening range starts at %s", snap.Window.Start.Format("15:04")),
		}
	case PhaseBuilding:
		return Decision{
			Status: StatusBuilding,
			Phase:  phase,
			Reason: fmt.Sprintf("building opening range: %.0f%% done, %ds remaining", snap.Progress*100, snap.RemainingSec),
		}
	}

	// Post-window from here on.
	if !snap.Ready() {
		return Decision{
			Status: StatusNoData,
			Phase:  phase,
			Reason: "range window closed but high/low are incomplete; provider supplied no usable samples",
		}
	}
	if !ctx.HasPrice {
		return Decision{
			Status: StatusNoData,
			Phase:  phase,
			Reason: "no current price available this tick",
		}
	}
	if ctx.Exposure.Blocked() {
		return Decision{
			Status: StatusBlockedExisting,
			Phase:  phase,
			Reason: fmt.Sprintf("existing exposure: position=%d open_orders=%d", ctx.Exposure.NetPosition, ctx.Exposure.OpenOrderCount),
		}
	}

	hiBuf, loBuf := Thresholds(snap, p.BufferPct)

	var side Side
	switch {
	case ctx.LastPrice > hiBuf:
		side = SideLong
	case ctx.LastPrice < loBuf:
		side = SideShort
	default:
		return Decision{
			Status: StatusWaiting,
			Phase:  phase,
			Reason: waitingReason(ctx.LastPrice, hiBuf, loBuf),
		}
	}

	// Direction restriction applies before anything else once a side exists.
	if d := directionBlock(side, p.Direction); d != "" {
		return Decision{
			Status: StatusBlockedDirection,
			Phase:  phase,
			Side:   side,
			Reason: d,
		}
	}

	// Filter gate: each enabled filter that fails vetoes the trade but does
	// not change range state. Undefined indicators pass through.
	if failed, detail := failedFilters(side, ctx.LastPrice, ctx.Ind, p.Filters); len(failed) > 0 {
		return Decision{
			Status:        StatusBlockedFilter,
			Phase:         phase,
			Side:          side,
			FiltersFailed: failed,
			Reason:        "filters blocked " + string(side) + " entry: " + detail,
		}
	}

	// Late-entry policy: if we were not watching when the range closed, the
	// breakout must be recent enough and must still hold right now.
	if ctx.MissedClose {
		if !p.CatchUp.Enabled {
			return Decision{
				Status: StatusWaiting,
				Phase:  phase,
				Side:   side,
				Reason: "range closed before startup and catch-up entries are disabled",
			}
		}
		cross := ctx.FirstCross
		if cross != nil && cross.Side == side {
			age := ctx.Now.Sub(cross.At)
			if age > p.CatchUp.LateWindow {
				return Decision{
					Status: StatusWaiting,
					Phase:  phase,
					Side:   side,
					Reason: fmt.Sprintf("missed breakout at %s is older than the %s late window", cross.At.Format("15:04"), p.CatchUp.LateWindow),
				}
			}
		}
		// Still beyond the threshold at evaluation time, so the move is
		// intact; enter as a late catch-up.
		if side == SideLong {
			return Decision{
				Status: StatusEnterLongLate,
				Phase:  phase,
				Side:   side,
				Reason: fmt.Sprintf("late entry: last %.4f still above %.4f", ctx.LastPrice, hiBuf),
			}
		}
		return Decision{
			Status: StatusEnterShortLate,
			Phase:  phase,
			Side:   side,
			Reason: fmt.Sprintf("late entry: last %.4f still below %.4f", ctx.LastPrice, loBuf),
		}
	}

	if side == SideLong {
		return Decision{
			Status: StatusEnterLong,
			Phase:  phase,
			Side:   side,
			Reason: fmt.Sprintf("breakout above range high: last %.4f > %.4f", ctx.LastPrice, hiBuf),
		}
	}
	return Decision{
		Status: StatusEnterShort,
		Phase:  phase,
		Side:   side,
		Reason: fmt.Sprintf("breakdown below range low: last %.4f < %.4f", ctx.LastPrice, loBuf),
	}
}

func phaseFor(now time.Time, win Window) Phase {
	switch {
	case now.Before(win.Start):
		return PhasePre
	case now.Before(win.End):
		return PhaseBuilding
	default:
		return PhasePost
	}
}

func waitingReason(last, hiBuf, loBuf float64) string {
	switch {
	case last <= hiBuf && last >= loBuf:
		return fmt.Sprintf("price %.4f inside range [%.4f, %.4f]; no signal", last, loBuf, hiBuf)
	case last <= hiBuf:
		return fmt.Sprintf("price %.4f has not crossed range high %.4f", last, hiBuf)
	default:
		return fmt.Sprintf("price %.4f has not crossed range low %.4f", last, loBuf)
	}
}

func directionBlock(side Side, d Direction) string {
	if d == DirectionLongOnly && side == SideShort {
		return "short breakout blocked: trade direction restricted to long only"
	}
	if d == DirectionShortOnly && side == SideLong {
		return "long breakout blocked: trade direction restricted to short only"
	}
	return ""
}

// failedFilters returns the names of enabled filters that reject the entry,
// with a human-readable detail string. Indicators that are unavailable are
// treated as passing.
func failedFilters(side Side, price float64, ind Indicators, f FilterSet) ([]string, string) {
	var failed []string
	var details []string

	if f.UseRegime && ind.Regime != RegimeUnknown {
		want := RegimeUp
		if side == SideShort {
			want = RegimeDown
		}
		if ind.Regime != want {
			failed = append(failed, "regime")
			details = append(details, fmt.Sprintf("regime=%s wants %s", ind.Regime, want))
		}
	}

	if f.UseVWAP && ind.HasVWAP {
		ok := price > ind.VWAP
		if side == SideShort {
			ok = price < ind.VWAP
		}
		if !ok {
			failed = append(failed, "vwap")
			details = append(details, fmt.Sprintf("price %.4f vs vwap %.4f", price, ind.VWAP))
		}
	}

	if f.UseVolume && ind.HasVolumeSMA {
		if !(ind.BarVolume > ind.VolumeSMA) {
			failed = append(failed, "volume")
			details = append(details, fmt.Sprintf("volume %.0f <= sma %.0f", ind.BarVolume, ind.VolumeSMA))
		}
	}

	return failed, strings.Join(details, "; ")
}
