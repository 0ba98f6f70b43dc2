package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the executor counters of one process.
type Metrics struct {
	Chunks       prometheus.Counter
	Rows         prometheus.Counter
	NaNFilled    *prometheus.CounterVec
	ChunkSeconds prometheus.Histogram
	Runs         *prometheus.CounterVec
}

// NewMetrics registers the executor metrics on reg. A nil reg keeps them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tauflow", Name: "chunks_total",
			Help: "Chunks scored by the executor.",
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tauflow", Name: "rows_total",
			Help: "Rows scored by the executor.",
		}),
		NaNFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tauflow", Name: "nan_filled_total",
			Help: "Feature values replaced by the 0 sentinel, per group.",
		}, []string{"group"}),
		ChunkSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tauflow", Name: "chunk_seconds",
			Help:    "Wall time to fill, normalize and score one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tauflow", Name: "runs_total",
			Help: "Executor runs by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Chunks, m.Rows, m.NaNFilled, m.ChunkSeconds, m.Runs)
	}
	return m
}

// ObserveChunk records one scored chunk.
func (m *Metrics) ObserveChunk(rows int, took time.Duration) {
	if m == nil {
		return
	}
	m.Chunks.Inc()
	m.Rows.Add(float64(rows))
	m.ChunkSeconds.Observe(took.Seconds())
}

func (m *Metrics) ObserveNaN(group string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NaNFilled.WithLabelValues(group).Add(float64(n))
}

func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Runs.WithLabelValues(outcome).Inc()
}

// Expose serves g on :port/metrics in the background.
func Expose(port int, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
