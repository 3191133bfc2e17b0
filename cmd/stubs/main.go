package main

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Local stand-ins for the quote vendor (port 8092) and the broker-side bar
// service (port 8091). Prices follow a deterministic per-symbol random walk
// so repeated runs against the same symbol see the same session.

type quoteRequest struct {
	Token  string `json:"token"`
	Ticker string `json:"ticker"`
}

type quotePayload struct {
	BidPrice         float64 `json:"bid_price"`
	AskPrice         float64 `json:"ask_price"`
	Last             float64 `json:"last"`
	MinuteClosePrice float64 `json:"minute_close_price"`
	Timestamp        string  `json:"timestamp"`
}

type minutePayload struct {
	Open      float64 `json:"minute_open_price"`
	High      float64 `json:"minute_high_price"`
	Low       float64 `json:"minute_low_price"`
	Close     float64 `json:"minute_close_price"`
	Volume    int64   `json:"minute_volume"`
	Timestamp string  `json:"timestamp"`
}

type bar struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

type barsPayload struct {
	Bars []bar `json:"bars"`
}

// ---- synthetic walk ----

func seedFor(symbol string, day time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	_, _ = h.Write([]byte(day.Format("2006-01-02")))
	return int64(h.Sum64())
}

// barAt returns the synthetic minute bar for the i-th minute of the session.
func barAt(symbol string, open time.Time, i int) bar {
	rng := rand.New(rand.NewSource(seedFor(symbol, open)))
	price := 40 + 30*rng.Float64()
	var b bar
	for m := 0; m <= i; m++ {
		o := price
		drift := (rng.Float64() - 0.5) * 0.4
		price = math.Max(1, price+drift)
		hi := math.Max(o, price) + rng.Float64()*0.1
		lo := math.Min(o, price) - rng.Float64()*0.1
		b = bar{
			Open:      round2(o),
			High:      round2(hi),
			Low:       round2(lo),
			Close:     round2(price),
			Volume:    5000 + rng.Int63n(20000),
			Timestamp: open.Add(time.Duration(m) * time.Minute),
		}
	}
	return b
}

func sessionOpen(now time.Time) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 9, 30, 0, 0, loc)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ---- quote vendor (8092) ----

func decodeQuoteReq(w http.ResponseWriter, r *http.Request) (quoteRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return quoteRequest{}, false
	}
	defer r.Body.Close()
	var q quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Ticker == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return quoteRequest{}, false
	}
	return q, true
}

func currentMinuteIndex(now time.Time) int {
	open := sessionOpen(now)
	if now.Before(open) {
		return 0
	}
	return int(now.Sub(open) / time.Minute)
}

func realTime(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuoteReq(w, r)
	if !ok {
		return
	}
	now := time.Now()
	b := barAt(q.Ticker, sessionOpen(now), currentMinuteIndex(now))
	writeJSON(w, quotePayload{
		BidPrice:         round2(b.Close - 0.01),
		AskPrice:         round2(b.Close + 0.01),
		Last:             b.Close,
		MinuteClosePrice: b.Close,
		Timestamp:        now.UTC().Format(time.RFC3339),
	})
}

func minuteQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuoteReq(w, r)
	if !ok {
		return
	}
	now := time.Now()
	b := barAt(q.Ticker, sessionOpen(now), currentMinuteIndex(now))
	writeJSON(w, minutePayload{
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		Timestamp: b.Timestamp.UTC().Format(time.RFC3339),
	})
}

// ---- bar service (8091) ----

func minuteBars(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}
	from, err1 := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	to, err2 := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "from/to must be RFC3339", http.StatusBadRequest)
		return
	}
	open := sessionOpen(to)
	last := currentMinuteIndex(time.Now())
	var out []bar
	for i := 0; i <= last; i++ {
		b := barAt(symbol, open, i)
		if b.Timestamp.Before(from) || b.Timestamp.After(to) {
			continue
		}
		out = append(out, b)
	}
	writeJSON(w, barsPayload{Bars: out})
}

func dailyBars(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}
	days := 60
	if d := r.URL.Query().Get("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			days = n
		}
	}
	now := time.Now()
	out := make([]bar, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		b := barAt(symbol, sessionOpen(day), 389) // full 6.5h session
		out = append(out, b)
	}
	writeJSON(w, barsPayload{Bars: out})
}

func serve(port string, routes map[string]http.HandlerFunc) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health)
	for path, fn := range routes {
		mux.HandleFunc(path, fn)
	}
	addr := ":" + port
	log.Printf("listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("server %s error: %v", port, err)
		}
	}()
}

func main() {
	// 8091: broker-side bar service
	serve("8091", map[string]http.HandlerFunc{
		"/bars":       minuteBars,
		"/bars/daily": dailyBars,
	})
	// 8092: quote vendor
	serve("8092", map[string]http.HandlerFunc{
		"/quote/real-time": realTime,
		"/quote/minute":    minuteQuote,
	})

	// block forever
	select {}
}
