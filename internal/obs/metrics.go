// Package obs exposes the bot's Prometheus metrics, served at /metrics in
// text exposition format.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mtxShards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_shards_total",
			Help: "Executed shards by side",
		},
		[]string{"side"}, // buy|sell
	)

	mtxEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_entries_total",
			Help: "Positions opened by source",
		},
		[]string{"source"}, // manual|snipe|autopilot
	)

	mtxExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exits_total",
			Help: "Position exits by reason",
		},
		[]string{"reason"}, // take_profit|partial_take_profit|stop_loss|zero_balance|cancel
	)

	mtxOpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Currently open positions",
		},
	)

	mtxFeedTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_feed_ticks_total",
			Help: "Momentum feed ticks ingested by side",
		},
		[]string{"side"},
	)
)

func init() {
	prometheus.MustRegister(mtxShards, mtxEntries, mtxExits, mtxOpenPositions, mtxFeedTicks)
}

// ShardExecuted cuenta un shard confirmado.
func ShardExecuted(side string) {
	mtxShards.WithLabelValues(side).Inc()
}

// EntryOpened cuenta una posición abierta.
func EntryOpened(source string) {
	mtxEntries.WithLabelValues(source).Inc()
}

// ExitClosed cuenta un exit (parcial o completo).
func ExitClosed(reason string) {
	mtxExits.WithLabelValues(reason).Inc()
}

// SetOpenPositions actualiza el gauge de posiciones abiertas.
func SetOpenPositions(n int) {
	mtxOpenPositions.Set(float64(n))
}

// FeedTick cuenta un tick ingerido del feed.
func FeedTick(side string) {
	mtxFeedTicks.WithLabelValues(side).Inc()
}

// Handler devuelve el handler HTTP de /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
