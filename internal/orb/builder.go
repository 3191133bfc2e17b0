package orb

import (
	"math"
	"time"
)

// Builder accumulates the opening-range high/low for one symbol/day/range
// triple. The range only ever widens: applying the same sample twice is a
// no-op, which makes it safe to feed from both a live tick path and a one-time
// historical backfill. The bounds freeze permanently on the first Snapshot
// taken at or after the window close; that ordering lets a cold start backfill
// a missed window before any decision reads the range, while samples arriving
// after a complete snapshot was observed can never change it.
//
// A Builder is owned by a single evaluation context; it is not safe for
// concurrent use.
type Builder struct {
	win     Window
	high    float64
	low     float64
	hasHigh bool
	hasLow  bool
	frozen  bool
}

// NewBuilder creates an empty builder for the given window.
func NewBuilder(win Window) *Builder {
	return &Builder{win: win}
}

// Window returns the window this builder accumulates for.
func (b *Builder) Window() Window { return b.win }

// Update widens the range with one high/low sample. Samples outside
// [Start, min(now, End)) are ignored, as is anything after the range froze.
func (b *Builder) Update(sampleHigh, sampleLow float64, sampleTime, now time.Time) {
	if b.frozen {
		return
	}
	if !b.win.Contains(sampleTime) || sampleTime.After(now) {
		return
	}
	if math.IsNaN(sampleHigh) || math.IsNaN(sampleLow) {
		return
	}
	if !b.hasHigh || sampleHigh > b.high {
		b.high = sampleHigh
		b.hasHigh = true
	}
	if !b.hasLow || sampleLow < b.low {
		b.low = sampleLow
		b.hasLow = true
	}
}

// Backfill replays historical bars through Update. Because updates only
// widen, replaying bars already seen live cannot double count.
func (b *Builder) Backfill(bars []Bar, now time.Time) {
	for _, bar := range bars {
		b.Update(bar.High, bar.Low, bar.Timestamp, now)
	}
}

// HasBothBounds reports whether high and low are populated, without
// latching the freeze the way Snapshot does.
func (b *Builder) HasBothBounds() bool {
	return b.hasHigh && b.hasLow
}

func (b *Builder) maybeFreeze(now time.Time) {
	if !b.frozen && !now.Before(b.win.End) {
		b.frozen = true
	}
}

// Snapshot is the read-side view of the range at one instant.
type Snapshot struct {
	Window       Window   `json:"window"`
	High         *float64 `json:"high"`
	Low          *float64 `json:"low"`
	Complete     bool     `json:"complete"`
	ElapsedSec   int      `json:"elapsed_sec"`
	RemainingSec int      `json:"remaining_sec"`
	Progress     float64  `json:"progress"`
}

// Ready reports whether the range can drive entry decisions: window closed
// and both bounds populated. One bound alone is a data gap, still building.
func (s Snapshot) Ready() bool {
	return s.Complete && s.High != nil && s.Low != nil
}

// Snapshot computes progress and the frozen/complete state for now.
func (b *Builder) Snapshot(now time.Time) Snapshot {
	b.maybeFreeze(now)

	total := int(b.win.End.Sub(b.win.Start).Seconds())
	if total < 1 {
		total = 1
	}
	elapsed := 0
	if now.After(b.win.Start) {
		elapsed = int(now.Sub(b.win.Start).Seconds())
		if elapsed > total {
			elapsed = total
		}
	}
	remaining := int(b.win.End.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	progress := float64(elapsed) / float64(total)
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}

	snap := Snapshot{
		Window:       b.win,
		Complete:     b.frozen,
		ElapsedSec:   elapsed,
		RemainingSec: remaining,
		Progress:     progress,
	}
	if b.hasHigh {
		h := b.high
		snap.High = &h
	}
	if b.hasLow {
		l := b.low
		snap.Low = &l
	}
	return snap
}
