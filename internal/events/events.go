// Package events carries decision and telemetry records from the strategy
// core to wherever the operator watches them. Sinks are fire-and-forget:
// they must never block the tick loop and never raise back into it.
package events

import "time"

// Kind labels what happened.
type Kind string

const (
	KindData      Kind = "DATA"
	KindSignal    Kind = "SIGNAL"
	KindBlock     Kind = "BLOCK"
	KindOrder     Kind = "ORDER"
	KindError     Kind = "ERROR"
	KindState     Kind = "STATE"
	KindHeartbeat Kind = "HEARTBEAT"
)

// Level mirrors log severity for offline filtering.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Event is one telemetry record.
type Event struct {
	TS      time.Time      `json:"ts"`
	Level   Level          `json:"level"`
	Kind    Kind           `json:"kind"`
	Symbol  string         `json:"symbol,omitempty"`
	Price   float64        `json:"price,omitempty"`
	Side    string         `json:"side,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Sink receives events. Implementations swallow their own failures.
type Sink interface {
	Emit(ev Event)
	Close() error
}

// Nop is a Sink that drops everything.
type Nop struct{}

func (Nop) Emit(Event) {}
func (Nop) Close() error { return nil }

// Fanout forwards each event to every child sink.
type Fanout []Sink

func (f Fanout) Emit(ev Event) {
	for _, s := range f {
		s.Emit(ev)
	}
}

func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
