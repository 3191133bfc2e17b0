// Package strategy orchestrates one ORB evaluation per scheduler tick:
// refresh the opening range, fetch a price, consult the evaluator, and place
// at most one bracket order through the broker port.
package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrange/orbbot/internal/adapters"
	"github.com/openrange/orbbot/internal/events"
	"github.com/openrange/orbbot/internal/indicators"
	"github.com/openrange/orbbot/internal/observ"
	"github.com/openrange/orbbot/internal/orb"
)

// Options are the per-run strategy parameters, consumed from config at
// startup and constant for the life of the controller.
type Options struct {
	Symbol         string
	Quantity       int
	TakeProfitPct  float64
	StopLossPct    float64
	BufferPct      float64
	RangeMinutes   int
	Direction      orb.Direction
	Filters        orb.FilterSet
	CatchUp        orb.CatchUp
	HybridBackfill bool

	Clock           orb.SessionClock
	VolumeSMAPeriod int
	RegimeEMAPeriod int
	RegimeDays      int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// DecisionResult is what one tick produces. Every tick yields one, always
// with a reason string; silence is not an acceptable outcome.
type DecisionResult struct {
	DecisionID    string                  `json:"decision_id"`
	Symbol        string                  `json:"symbol"`
	TS            time.Time               `json:"ts"`
	Status        orb.Status              `json:"status"`
	Phase         orb.Phase               `json:"phase"`
	Range         orb.Snapshot            `json:"range"`
	Last          *float64                `json:"last"`
	Reason        string                  `json:"reason"`
	FiltersFailed []string                `json:"filters_failed,omitempty"`
	Exposure      orb.Exposure            `json:"exposure"`
	Order         *adapters.BracketResult `json:"order,omitempty"`
	Err           string                  `json:"error,omitempty"`
}

// Controller owns the per-day mutable state for one symbol. All access is
// serialized: the scheduler never overlaps ticks, and the mutex covers the
// check-exposure-then-place sequence for anyone else holding a reference.
type Controller struct {
	opts   Options
	data   adapters.MarketDataPort
	broker adapters.BrokerPort
	sink   events.Sink

	mu            sync.Mutex
	dayKey        string
	builder       *orb.Builder
	sessionBars   map[int64]orb.Bar // keyed by unix minute
	missedClose   bool
	backfillDone  bool
	crossScanDone bool
	firstCross    *orb.Crossing
	regime        orb.Regime
	regimeDone    bool
	lastClose     float64
	hasLastClose  bool
	lastResult    *DecisionResult
}

// New builds a controller. The event sink may be nil.
func New(opts Options, data adapters.MarketDataPort, broker adapters.BrokerPort, sink events.Sink) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Clock.Location == nil {
		opts.Clock = orb.NewYorkSession()
	}
	if sink == nil {
		sink = events.Nop{}
	}
	return &Controller{
		opts:   opts,
		data:   data,
		broker: broker,
		sink:   sink,
		regime: orb.RegimeUnknown,
	}
}

// LastResult returns the most recent tick's result, nil before the first tick.
func (c *Controller) LastResult() *DecisionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return nil
	}
	cp := *c.lastResult
	return &cp
}

// Tick runs one full evaluation cycle. Adapter failures never escape: they
// are folded into the result so the polling loop can retry next interval.
func (c *Controller) Tick(ctx context.Context) DecisionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	started := time.Now()
	defer func() {
		observ.TickDuration.WithLabelValues(c.opts.Symbol).Observe(time.Since(started).Seconds())
	}()

	c.rotateDay(now)

	c.refreshRange(ctx, now)
	snap := c.builder.Snapshot(now)
	observ.RangeProgress.WithLabelValues(c.opts.Symbol).Set(snap.Progress)

	last, hasPrice, dataErr := c.currentPrice(ctx)
	if dataErr != nil {
		res := c.errorResult(snap, now, "market data failed: "+dataErr.Error())
		c.emitFor(res, orb.Decision{})
		return c.finish(res)
	}

	exposure, brokerErr := c.exposure(ctx)
	if brokerErr != nil {
		res := c.errorResult(snap, now, "broker unavailable: "+brokerErr.Error())
		c.emitFor(res, orb.Decision{})
		return c.finish(res)
	}

	ind := c.indicatorsFor(ctx, last)
	c.scanForMissedCross(ctx, snap, now)

	dec := orb.Evaluate(orb.EvalContext{
		Snapshot:    snap,
		LastPrice:   last,
		HasPrice:    hasPrice,
		Now:         now,
		Exposure:    exposure,
		Ind:         ind,
		MissedClose: c.missedClose,
		FirstCross:  c.firstCross,
	}, orb.Params{
		BufferPct: c.opts.BufferPct,
		Direction: c.opts.Direction,
		Filters:   c.opts.Filters,
		CatchUp:   c.opts.CatchUp,
	})

	res := DecisionResult{
		DecisionID:    uuid.NewString(),
		Symbol:        c.opts.Symbol,
		TS:            now,
		Status:        dec.Status,
		Phase:         dec.Phase,
		Range:         snap,
		Reason:        dec.Reason,
		FiltersFailed: dec.FiltersFailed,
		Exposure:      exposure,
	}
	if hasPrice {
		p := last
		res.Last = &p
	}

	if dec.Status.Entered() {
		res = c.placeEntry(ctx, res, dec, last)
	}

	c.emitFor(res, dec)
	return c.finish(res)
}

// rotateDay discards yesterday's state when the window key changes. The old
// range is logically discarded, never mutated.
func (c *Controller) rotateDay(now time.Time) {
	win := c.opts.Clock.WindowFor(now, c.opts.RangeMinutes)
	key := win.Key(c.opts.Symbol)
	if key == c.dayKey {
		return
	}
	c.dayKey = key
	c.builder = orb.NewBuilder(win)
	c.sessionBars = make(map[int64]orb.Bar)
	c.missedClose = !now.Before(win.End)
	c.backfillDone = false
	c.crossScanDone = false
	c.firstCross = nil
	c.regimeDone = false
	c.regime = orb.RegimeUnknown
	c.hasLastClose = false

	c.sink.Emit(events.Event{
		TS: now, Level: events.LevelInfo, Kind: events.KindState,
		Symbol: c.opts.Symbol,
		Reason: "new session window",
		Details: map[string]any{
			"window_start":  win.Start,
			"window_end":    win.End,
			"range_minutes": win.RangeMinutes,
			"missed_close":  c.missedClose,
		},
	})
}

// refreshRange feeds the builder from the live minute snapshot and, once,
// from historical bars when we started mid-session. Both paths only widen,
// so overlap cannot double count.
func (c *Controller) refreshRange(ctx context.Context, now time.Time) {
	win := c.builder.Window()

	if now.After(win.Start) {
		bar, err := c.data.MinuteSnapshot(ctx, c.opts.Symbol)
		switch {
		case err == nil:
			c.builder.Update(bar.High, bar.Low, bar.Timestamp, now)
			c.recordBar(*bar)
			c.lastClose = bar.Close
			c.hasLastClose = true
		case !adapters.IsDataUnavailable(err):
			observ.Warn("minute_snapshot_failed", map[string]any{"symbol": c.opts.Symbol, "err": err.Error()})
		}
	}

	needBackfill := c.opts.HybridBackfill && !c.backfillDone && now.After(win.Start)
	if needBackfill {
		if !c.builder.HasBothBounds() || c.missedClose {
			to := now
			if win.End.Before(to) {
				to = win.End
			}
			bars, err := c.data.HistoricalMinuteBars(ctx, c.opts.Symbol, win.Start, to)
			if err == nil {
				c.builder.Backfill(bars, now)
				for _, b := range bars {
					c.recordBar(b)
				}
				c.backfillDone = true
				observ.Log("hybrid_backfill", map[string]any{"symbol": c.opts.Symbol, "bars": len(bars)})
			} else if err == adapters.ErrHistoryNotSupported {
				c.backfillDone = true
			} else {
				observ.Warn("hybrid_backfill_failed", map[string]any{"symbol": c.opts.Symbol, "err": err.Error()})
			}
		} else {
			c.backfillDone = true
		}
	}
}

func (c *Controller) recordBar(b orb.Bar) {
	c.sessionBars[b.Timestamp.Truncate(time.Minute).Unix()] = b
}

// currentPrice returns the live price, or the last known close as fallback.
// A transport/provider fault is returned as an error; "no data" is not.
func (c *Controller) currentPrice(ctx context.Context) (float64, bool, error) {
	p, err := c.data.LatestPrice(ctx, c.opts.Symbol)
	if err == nil {
		return p, true, nil
	}
	if !adapters.IsDataUnavailable(err) {
		return 0, false, err
	}
	if c.hasLastClose {
		return c.lastClose, true, nil
	}
	return 0, false, nil
}

func (c *Controller) exposure(ctx context.Context) (orb.Exposure, error) {
	pos, err := c.broker.NetPosition(ctx, c.opts.Symbol)
	if err != nil {
		return orb.Exposure{}, err
	}
	oo, err := c.broker.OpenOrderCount(ctx, c.opts.Symbol)
	if err != nil {
		return orb.Exposure{}, err
	}
	return orb.Exposure{NetPosition: pos, OpenOrderCount: oo}, nil
}

// indicatorsFor assembles the filter inputs. Anything that cannot be
// computed stays undefined, which the evaluator treats as passing.
func (c *Controller) indicatorsFor(ctx context.Context, last float64) orb.Indicators {
	ind := orb.Indicators{Regime: orb.RegimeUnknown}

	if c.opts.Filters.UseRegime {
		if !c.regimeDone {
			if dh, ok := c.data.(adapters.DailyHistory); ok {
				closes, err := dh.DailyCloses(ctx, c.opts.Symbol, c.opts.RegimeDays)
				if err == nil {
					c.regime = indicators.DailyRegime(closes, c.opts.RegimeEMAPeriod)
				}
			}
			c.regimeDone = true
		}
		ind.Regime = c.regime
	}

	if !c.opts.Filters.UseVWAP && !c.opts.Filters.UseVolume {
		return ind
	}

	bars := c.orderedSessionBars()
	if c.opts.Filters.UseVWAP {
		ind.VWAP, ind.HasVWAP = indicators.SessionVWAP(bars)
	}
	if c.opts.Filters.UseVolume && len(bars) > 0 {
		ind.BarVolume = float64(bars[len(bars)-1].Volume)
		ind.VolumeSMA, ind.HasVolumeSMA = indicators.VolumeSMA(bars, c.opts.VolumeSMAPeriod)
	}
	return ind
}

func (c *Controller) orderedSessionBars() []orb.Bar {
	if len(c.sessionBars) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(c.sessionBars))
	for k := range c.sessionBars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]orb.Bar, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.sessionBars[k])
	}
	return out
}

// scanForMissedCross runs the one-time historical scan that catch-up mode
// needs when the range closed before we started watching.
func (c *Controller) scanForMissedCross(ctx context.Context, snap orb.Snapshot, now time.Time) {
	if !c.missedClose || !c.opts.CatchUp.Enabled || c.crossScanDone || !snap.Ready() {
		return
	}
	bars, err := c.data.HistoricalMinuteBars(ctx, c.opts.Symbol, snap.Window.End, now)
	if err != nil {
		// No history, no scan; the evaluator falls back to treating the
		// current tick as the first observed crossing.
		c.crossScanDone = true
		return
	}
	c.firstCross = orb.FirstCrossing(bars, snap, c.opts.BufferPct)
	c.crossScanDone = true
	if c.firstCross != nil {
		observ.Log("missed_crossing_found", map[string]any{
			"symbol": c.opts.Symbol,
			"side":   c.firstCross.Side,
			"at":     c.firstCross.At,
		})
	}
}

// placeEntry submits the bracket for an entry decision. At most one
// submission happens per tick, and failure leaves us flat so the next tick
// can retry.
func (c *Controller) placeEntry(ctx context.Context, res DecisionResult, dec orb.Decision, last float64) DecisionResult {
	side := "BUY"
	if dec.Side == orb.SideShort {
		side = "SELL"
	}
	order, err := c.broker.PlaceBracket(ctx, adapters.BracketRequest{
		Symbol:        c.opts.Symbol,
		Side:          side,
		Quantity:      c.opts.Quantity,
		RefPrice:      last,
		TakeProfitPct: c.opts.TakeProfitPct,
		StopLossPct:   c.opts.StopLossPct,
	})
	if err != nil {
		observ.OrderFailuresTotal.WithLabelValues(c.opts.Symbol).Inc()
		res.Status = orb.StatusOrderFailed
		res.Reason = "bracket submission failed: " + err.Error()
		res.Err = err.Error()
		return res
	}
	res.Order = order
	return res
}

func (c *Controller) errorResult(snap orb.Snapshot, now time.Time, reason string) DecisionResult {
	return DecisionResult{
		DecisionID: uuid.NewString(),
		Symbol:     c.opts.Symbol,
		TS:         now,
		Status:     orb.StatusError,
		Phase:      orb.PhasePost,
		Range:      snap,
		Reason:     reason,
		Err:        reason,
	}
}

// emitFor pushes tick telemetry to the sink: entries as SIGNAL+ORDER,
// blocks and errors at warning level, and a STATE record whenever the
// status changed from the previous tick.
func (c *Controller) emitFor(res DecisionResult, dec orb.Decision) {
	price := 0.0
	if res.Last != nil {
		price = *res.Last
	}

	switch {
	case res.Status.Entered() && res.Order != nil:
		c.sink.Emit(events.Event{
			TS: res.TS, Level: events.LevelInfo, Kind: events.KindSignal,
			Symbol: res.Symbol, Price: price, Side: string(dec.Side), Reason: res.Reason,
		})
		c.sink.Emit(events.Event{
			TS: res.TS, Level: events.LevelInfo, Kind: events.KindOrder,
			Symbol: res.Symbol, Price: price, Side: res.Order.Side, Reason: res.Reason,
			Details: map[string]any{
				"parent_id":   res.Order.ParentID,
				"quantity":    res.Order.Quantity,
				"take_profit": res.Order.TakeProfitPrice,
				"stop_loss":   res.Order.StopLossPrice,
			},
		})
	case res.Status == orb.StatusBlockedFilter:
		for _, f := range res.FiltersFailed {
			observ.FilterBlocksTotal.WithLabelValues(res.Symbol, f).Inc()
		}
		c.sink.Emit(events.Event{
			TS: res.TS, Level: events.LevelWarn, Kind: events.KindBlock,
			Symbol: res.Symbol, Price: price, Side: string(dec.Side), Reason: res.Reason,
			Details: map[string]any{"filters_failed": res.FiltersFailed},
		})
	case res.Status == orb.StatusBlockedDirection:
		c.sink.Emit(events.Event{
			TS: res.TS, Level: events.LevelWarn, Kind: events.KindBlock,
			Symbol: res.Symbol, Price: price, Side: string(dec.Side), Reason: res.Reason,
		})
	case res.Status == orb.StatusError, res.Status == orb.StatusOrderFailed:
		c.sink.Emit(events.Event{
			TS: res.TS, Level: events.LevelError, Kind: events.KindError,
			Symbol: res.Symbol, Reason: res.Reason,
		})
	default:
		if c.lastResult == nil || c.lastResult.Status != res.Status {
			c.sink.Emit(events.Event{
				TS: res.TS, Level: events.LevelInfo, Kind: events.KindState,
				Symbol: res.Symbol, Price: price, Reason: res.Reason,
				Details: map[string]any{"status": res.Status, "phase": res.Phase},
			})
		}
	}
}

func (c *Controller) finish(res DecisionResult) DecisionResult {
	observ.TicksTotal.WithLabelValues(res.Symbol, string(res.Status)).Inc()
	c.lastResult = &res
	return res
}
