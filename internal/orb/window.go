package orb

import (
	"fmt"
	"time"
)

// Window is the opening-range time window for one trading day. It is anchored
// to the session open in the exchange timezone and never mutated after creation.
type Window struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	RangeMinutes int       `json:"range_minutes"`
}

// SessionClock knows where and when the trading session opens.
type SessionClock struct {
	Location   *time.Location
	OpenHour   int
	OpenMinute int
}

// NewYorkSession returns the default clock for US equities (09:30 ET open).
func NewYorkSession() SessionClock {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return SessionClock{Location: loc, OpenHour: 9, OpenMinute: 30}
}

// WindowFor computes today's opening-range window for the given instant.
// Pure function of the calendar date and config.
func (c SessionClock) WindowFor(now time.Time, rangeMinutes int) Window {
	local := now.In(c.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), c.OpenHour, c.OpenMinute, 0, 0, c.Location)
	return Window{
		Start:        start,
		End:          start.Add(time.Duration(rangeMinutes) * time.Minute),
		RangeMinutes: rangeMinutes,
	}
}

// Key identifies one window per symbol+day+range triple.
func (w Window) Key(symbol string) string {
	return fmt.Sprintf("%s_%s_%d", symbol, w.Start.Format("2006-01-02"), w.RangeMinutes)
}

// Contains reports whether t falls inside [Start, End). The end bound is
// exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
