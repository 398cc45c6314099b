// Package metrics provides Prometheus metrics for ragnotes
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for ragnotes
type Metrics struct {
	// Ingestion
	IngestDocumentsTotal *prometheus.CounterVec
	IngestChunksTotal    prometheus.Counter
	LedgerSkippedTotal   prometheus.Counter

	// Conversation
	TopicResetsTotal     prometheus.Counter
	MemoryEvictionsTotal prometheus.Counter
	RetrievalDuration    prometheus.Histogram

	// Generation
	GenerationAttemptsTotal  *prometheus.CounterVec
	GenerationExhaustedTotal *prometheus.CounterVec

	registry prometheus.Gatherer
}

// New creates and registers all metrics on the given registry.
// A nil registry gets a private one, so callers that don't export metrics
// never collide on the default registerer.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.IngestDocumentsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragnotes_ingest_documents_total",
			Help: "Total number of documents handled by ingestion, by status",
		},
		[]string{"status"},
	)

	m.IngestChunksTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ragnotes_ingest_chunks_total",
			Help: "Total number of chunks upserted into the vector index",
		},
	)

	m.LedgerSkippedTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ragnotes_ledger_skipped_total",
			Help: "Total number of documents skipped because the ledger already lists them",
		},
	)

	m.TopicResetsTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ragnotes_topic_resets_total",
			Help: "Total number of conversation resets caused by a topic change",
		},
	)

	m.MemoryEvictionsTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ragnotes_memory_evictions_total",
			Help: "Total number of conversation turns evicted for capacity",
		},
	)

	m.RetrievalDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragnotes_retrieval_duration_seconds",
			Help:    "Duration of vector index queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.GenerationAttemptsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragnotes_generation_attempts_total",
			Help: "Total number of generation attempts, by unit and outcome",
		},
		[]string{"unit", "outcome"},
	)

	m.GenerationExhaustedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragnotes_generation_exhausted_total",
			Help: "Total number of units whose retry budget was exhausted",
		},
		[]string{"unit"},
	)

	return m
}

// Handler returns an HTTP handler exposing this instance's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
