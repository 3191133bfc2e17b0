package events

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJSONLSink_AppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatal(err)
	}

	sink.Emit(Event{TS: time.Now(), Level: LevelInfo, Kind: KindSignal, Symbol: "VIXY", Price: 50.2, Side: "LONG", Reason: "breakout"})
	sink.Emit(Event{TS: time.Now(), Level: LevelWarn, Kind: KindBlock, Symbol: "VIXY", Reason: "filters"})
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindSignal || ev.Symbol != "VIXY" || ev.Price != 50.2 {
		t.Fatalf("round trip mismatch: %+v", ev)
	}
}

func TestFanout_ForwardsToAllSinks(t *testing.T) {
	var a, b countingSink
	f := Fanout{&a, &b}
	f.Emit(Event{Kind: KindState})
	f.Emit(Event{Kind: KindState})
	if a.n != 2 || b.n != 2 {
		t.Fatalf("fanout counts: a=%d b=%d", a.n, b.n)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

type countingSink struct{ n int }

func (c *countingSink) Emit(Event) { c.n++ }
func (c *countingSink) Close() error { return nil }
