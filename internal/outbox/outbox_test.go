package outbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOutbox_WriteAndDedupe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	o, err := New(path, 90)
	if err != nil {
		t.Fatal(err)
	}

	dup, err := o.HasRecentOrder("VIXY_2025-06-02_BUY")
	if err != nil || dup {
		t.Fatalf("empty journal reported a duplicate: dup=%v err=%v", dup, err)
	}

	order := Order{
		ID: "o-1", Symbol: "VIXY", Side: "BUY", Quantity: 1,
		RefPrice: 50, TakeProfit: 51, StopLoss: 49.75,
		Timestamp: time.Now().UTC(), Status: "filled",
		IdempotencyKey: "VIXY_2025-06-02_BUY",
	}
	if err := o.WriteOrder(order); err != nil {
		t.Fatal(err)
	}

	dup, err = o.HasRecentOrder("VIXY_2025-06-02_BUY")
	if err != nil || !dup {
		t.Fatalf("journaled key not detected: dup=%v err=%v", dup, err)
	}

	dup, err = o.HasRecentOrder("VIXY_2025-06-02_SELL")
	if err != nil || dup {
		t.Fatalf("different key reported duplicate: dup=%v err=%v", dup, err)
	}
}

func TestOutbox_DedupeWindowExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	o, err := New(path, 0) // zero window: everything is stale immediately
	if err != nil {
		t.Fatal(err)
	}
	if err := o.WriteOrder(Order{ID: "o-1", IdempotencyKey: "k"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	dup, err := o.HasRecentOrder("k")
	if err != nil || dup {
		t.Fatalf("stale entry still deduped: dup=%v err=%v", dup, err)
	}
}

func TestOutbox_AppendOnlyJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	o, err := New(path, 90)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := o.WriteOrder(Order{ID: "o", IdempotencyKey: "k"}); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
}

func TestOutbox_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	o, err := New(path, 90)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := o.WriteOrder(Order{ID: "o-1", IdempotencyKey: "k"}); err != nil {
		t.Fatal(err)
	}
	dup, err := o.HasRecentOrder("k")
	if err != nil || !dup {
		t.Fatalf("corrupt line broke the scan: dup=%v err=%v", dup, err)
	}
}
