package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbbot_ticks_total",
		Help: "Evaluation ticks by symbol and resulting status.",
	}, []string{"symbol", "status"})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbbot_orders_placed_total",
		Help: "Bracket orders submitted by symbol and side.",
	}, []string{"symbol", "side"})

	OrderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbbot_order_failures_total",
		Help: "Bracket submissions rejected or timed out.",
	}, []string{"symbol"})

	DataErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbbot_data_errors_total",
		Help: "Market data fetch failures by provider.",
	}, []string{"provider"})

	FilterBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbbot_filter_blocks_total",
		Help: "Entries vetoed by a filter.",
	}, []string{"symbol", "filter"})

	RangeProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orbbot_range_progress",
		Help: "Opening range build progress in [0,1].",
	}, []string{"symbol"})

	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbbot_tick_duration_seconds",
		Help:    "Wall time of one full evaluation tick.",
		Buckets: prometheus.DefBuckets,
	}, []string{"symbol"})
)

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
