package httpcodec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is an optional set of counters a caller can attach to a Facade
// to observe codec-level behavior across many connections. It follows the
// registration convention the teacher's buffer pool metrics use
// (promauto.With(reg), where a nil reg produces unregistered — but still
// usable — collectors): see DESIGN.md for the grounding note.
//
// The Facade updates Suspensions, FatalParseErrors and BodyResults itself,
// and ObserveBufferPool updates the buffer-pool counters. No code in this
// package increments ChunksWritten or KeepAliveDecided.
type Metrics struct {
	Suspensions      *prometheus.CounterVec
	FatalParseErrors *prometheus.CounterVec
	BodyResults      *prometheus.CounterVec
	ChunksWritten    prometheus.Counter
	KeepAliveDecided *prometheus.CounterVec
	BufferPoolHits   prometheus.Counter
	BufferPoolMisses prometheus.Counter

	lastBufferHits   uint64
	lastBufferMisses uint64
}

// NewMetrics registers the codec's counters against reg. Pass nil to get
// functional, unregistered collectors (useful in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Suspensions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "suspensions_total",
			Help:      "Resumable parse suspensions, by state.",
		}, []string{"state"}),
		FatalParseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "fatal_parse_errors_total",
			Help:      "Non-resumable parse failures, by state.",
		}, []string{"state"}),
		BodyResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "body_results_total",
			Help:      "ReadBody outcomes, by result.",
		}, []string{"result"}),
		ChunksWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "chunks_written_total",
			Help:      "Chunk frames rendered by WriteBody/WriteEndOfChunk.",
		}),
		KeepAliveDecided: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "keep_alive_decisions_total",
			Help:      "IsKeepAlive outcomes.",
		}, []string{"decision"}),
		BufferPoolHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "buffer_pool_hits_total",
			Help:      "Input buffer growths served by a pooled buffer.",
		}),
		BufferPoolMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shockwave",
			Subsystem: "httpcodec",
			Name:      "buffer_pool_misses_total",
			Help:      "Input buffer growths that required a fresh allocation.",
		}),
	}
}

// ObserveBufferPool adds the shared bufferPool's hit/miss counts accrued
// since the last call into m's counters. Call periodically, the same
// polling shape the teacher's UpdatePrometheusMetrics uses for
// buffer_pool_prometheus.go.
func (m *Metrics) ObserveBufferPool() {
	hits, misses := globalBufferPool.snapshot()
	m.BufferPoolHits.Add(float64(hits - m.lastBufferHits))
	m.BufferPoolMisses.Add(float64(misses - m.lastBufferMisses))
	m.lastBufferHits = hits
	m.lastBufferMisses = misses
}

func (m *Metrics) observeReadError(re *ReadError) {
	if re == nil {
		return
	}
	state := re.State.String()
	if re.Resumable {
		m.Suspensions.WithLabelValues(state).Inc()
		return
	}
	m.FatalParseErrors.WithLabelValues(state).Inc()
}

func (m *Metrics) observeWriteError(we *WriteError) {
	if we == nil {
		return
	}
	m.FatalParseErrors.WithLabelValues("write").Inc()
}

func (m *Metrics) observeBodyResult(r BodyResult) {
	switch r {
	case BodyFull:
		m.BodyResults.WithLabelValues("full").Inc()
	case BodyBestEffort:
		m.BodyResults.WithLabelValues("best_effort").Inc()
	default:
		m.BodyResults.WithLabelValues("incomplete").Inc()
	}
}
