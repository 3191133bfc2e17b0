package events

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/openrange/orbbot/internal/observ"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS bot_events (
	id      BIGSERIAL PRIMARY KEY,
	ts      TIMESTAMPTZ NOT NULL,
	level   TEXT NOT NULL,
	kind    TEXT NOT NULL,
	symbol  TEXT,
	price   DOUBLE PRECISION,
	side    TEXT,
	reason  TEXT,
	details JSONB
);
CREATE INDEX IF NOT EXISTS idx_bot_events_ts ON bot_events (ts);
CREATE INDEX IF NOT EXISTS idx_bot_events_symbol_ts ON bot_events (symbol, ts);
`

// PostgresSink persists events for offline analysis. Inserts run on a
// background goroutine fed by a bounded channel; when the buffer is full the
// event is dropped rather than stalling a tick.
type PostgresSink struct {
	db   *sqlx.DB
	ch   chan Event
	done chan struct{}
}

func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if _, err := db.Exec(eventsSchema); err != nil {
		db.Close()
		return nil, err
	}

	s := &PostgresSink{
		db:   db,
		ch:   make(chan Event, 256),
		done: make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

func (s *PostgresSink) loop() {
	defer close(s.done)
	for ev := range s.ch {
		details, _ := json.Marshal(ev.Details)
		_, err := s.db.Exec(
			`INSERT INTO bot_events (ts, level, kind, symbol, price, side, reason, details)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ev.TS, ev.Level, ev.Kind, ev.Symbol, ev.Price, ev.Side, ev.Reason, details,
		)
		if err != nil {
			observ.Error("postgres_sink_insert_failed", err, map[string]any{"kind": ev.Kind})
		}
	}
}

func (s *PostgresSink) Emit(ev Event) {
	select {
	case s.ch <- ev:
	default:
		// Buffer full. Dropping beats blocking the polling loop.
	}
}

func (s *PostgresSink) Close() error {
	close(s.ch)
	<-s.done
	return s.db.Close()
}
