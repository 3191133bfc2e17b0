package orb

import (
	"testing"
	"time"
)

func TestFirstCrossing(t *testing.T) {
	snap := readySnapshot(t, 110, 100)
	end := snap.Window.End

	bars := []Bar{
		{High: 115, Low: 95, Timestamp: end.Add(-5 * time.Minute)}, // in-window excursion, not a breakout
		{High: 108, Low: 104, Timestamp: end},
		{High: 110.5, Low: 106, Timestamp: end.Add(1 * time.Minute)},
		{High: 112, Low: 108, Timestamp: end.Add(2 * time.Minute)},
	}

	cross := FirstCrossing(bars, snap, 0)
	if cross == nil {
		t.Fatal("expected a crossing")
	}
	if cross.Side != SideLong {
		t.Fatalf("side = %s, want %s", cross.Side, SideLong)
	}
	if !cross.At.Equal(end.Add(1 * time.Minute)) {
		t.Fatalf("crossed at %v, want first post-close breach at %v", cross.At, end.Add(1*time.Minute))
	}
}

func TestFirstCrossing_ShortSide(t *testing.T) {
	snap := readySnapshot(t, 110, 100)
	end := snap.Window.End

	bars := []Bar{
		{High: 105, Low: 101, Timestamp: end},
		{High: 103, Low: 99.5, Timestamp: end.Add(3 * time.Minute)},
	}
	cross := FirstCrossing(bars, snap, 0)
	if cross == nil || cross.Side != SideShort {
		t.Fatalf("got %+v, want short crossing", cross)
	}
}

func TestFirstCrossing_RespectsBuffer(t *testing.T) {
	snap := readySnapshot(t, 110, 100)
	end := snap.Window.End

	bars := []Bar{
		{High: 110.5, Low: 105, Timestamp: end}, // above high but under the 1% buffer
	}
	if cross := FirstCrossing(bars, snap, 1.0); cross != nil {
		t.Fatalf("buffered threshold not honored: %+v", cross)
	}
}

func TestFirstCrossing_NothingCrossed(t *testing.T) {
	snap := readySnapshot(t, 110, 100)
	bars := []Bar{
		{High: 109, Low: 101, Timestamp: snap.Window.End.Add(time.Minute)},
	}
	if cross := FirstCrossing(bars, snap, 0); cross != nil {
		t.Fatalf("expected nil, got %+v", cross)
	}
}

func TestFirstCrossing_NotReady(t *testing.T) {
	snap := readySnapshot(t, 110, 100)
	snap.Complete = false
	if cross := FirstCrossing(nil, snap, 0); cross != nil {
		t.Fatalf("expected nil on unready snapshot, got %+v", cross)
	}
}
