// Package outbox is the append-only JSONL journal of submitted orders. It
// doubles as a dedupe store: a bracket whose idempotency key was journaled
// within the dedupe window is refused a second submission.
package outbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Order struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Side           string    `json:"side"`
	Quantity       int       `json:"quantity"`
	RefPrice       float64   `json:"ref_price"`
	TakeProfit     float64   `json:"take_profit"`
	StopLoss       float64   `json:"stop_loss"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	IdempotencyKey string    `json:"idempotency_key"`
}

type entry struct {
	Type  string    `json:"type"`
	Data  Order     `json:"data"`
	Event time.Time `json:"event"`
}

type Outbox struct {
	path         string
	dedupeWindow time.Duration
}

func New(path string, dedupeWindowSecs int) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Outbox{
		path:         path,
		dedupeWindow: time.Duration(dedupeWindowSecs) * time.Second,
	}, nil
}

func (o *Outbox) WriteOrder(order Order) error {
	data, err := json.Marshal(entry{Type: "order", Data: order, Event: time.Now().UTC()})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(string(data) + "\n")
	return err
}

// HasRecentOrder reports whether an order with this idempotency key was
// journaled within the dedupe window.
func (o *Outbox) HasRecentOrder(idempotencyKey string) (bool, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	cutoff := time.Now().UTC().Add(-o.dedupeWindow)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Type != "order" || e.Event.Before(cutoff) {
			continue
		}
		if e.Data.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, nil
}
