package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alphafusion_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"stage"},
	)
	SweepCells = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alphafusion_sweep_cells_total", Help: "Sweep cells evaluated by outcome"},
		[]string{"outcome"},
	)
	TickersSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alphafusion_tickers_skipped_total", Help: "Tickers excluded from a stage"},
		[]string{"stage", "reason"},
	)
)

func init() {
	prometheus.MustRegister(StageDuration, SweepCells, TickersSkipped)
}

// ObserveStage records the elapsed time of a stage started at start
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr in the background
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
