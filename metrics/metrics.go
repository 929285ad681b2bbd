// Package metrics exposes prometheus counters for the trading cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_cycles_total",
		Help: "Completed strategy cycles.",
	})
	Checks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_entry_checks_total",
		Help: "Scheduled entry checks that ran.",
	})
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_orders_submitted_total",
		Help: "Market orders submitted to the venue.",
	})
	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_orders_rejected_total",
		Help: "Orders rejected by the venue or failed in transport.",
	})
	StopMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_stop_moves_total",
		Help: "Accepted trailing-stop modifications.",
	})
	ForcedCloses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_forced_closes_total",
		Help: "Positions force-closed on the loss time limit.",
	})
	PositionsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalper_positions_reconciled_total",
		Help: "Tracking records removed after the venue stopped reporting them.",
	})
)

// Serve starts the /metrics listener. The returned server is already
// serving; the caller owns shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go srv.ListenAndServe()
	return srv
}
