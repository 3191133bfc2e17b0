package orb

// FirstCrossing scans historical bars for the earliest breach of a buffered
// threshold at or after the window close. Bars inside the window are skipped:
// excursions during the build phase are range, not breakout. Returns nil when
// nothing crossed.
func FirstCrossing(bars []Bar, snap Snapshot, bufferPct float64) *Crossing {
	if !snap.Ready() {
		return nil
	}
	hiBuf, loBuf := Thresholds(snap, bufferPct)

	for _, b := range bars {
		if b.Timestamp.Before(snap.Window.End) {
			continue
		}
		if b.High > hiBuf {
			return &Crossing{Side: SideLong, At: b.Timestamp, Bar: b}
		}
		if b.Low < loBuf {
			return &Crossing{Side: SideShort, At: b.Timestamp, Bar: b}
		}
	}
	return nil
}
