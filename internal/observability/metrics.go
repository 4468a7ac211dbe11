package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrchestrationTotal counts service operations by outcome (ok or an error code).
	OrchestrationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_orchestration_total",
		Help: "Total number of orchestrated operations by outcome",
	}, []string{"operation", "outcome"})

	// CompensationsTotal counts compensating cleanups by result.
	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_compensations_total",
		Help: "Total number of compensating cleanup steps",
	}, []string{"operation", "result"})

	// OrphanedResourcesTotal counts files and accounts left without an owner.
	OrphanedResourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_orphaned_resources_total",
		Help: "Total number of resources left orphaned by partial failures",
	}, []string{"kind", "reason"})

	// CacheRequestsTotal counts cache lookups by result (hit, miss, error).
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_cache_requests_total",
		Help: "Total number of read cache lookups",
	}, []string{"result"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DocumentStoreLatency records document store latency by operation and collection.
	DocumentStoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_document_store_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// FileStoreLatency records file store latency by operation.
	FileStoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapgram_file_store_latency_seconds",
		Help:    "File store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})
)

// TrackDocumentOp returns a function that records latency when called (e.g. defer).
func TrackDocumentOp(operation, collection string) func() {
	start := time.Now()
	return func() {
		DocumentStoreLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	}
}

// TrackFileOp returns a function that records file store latency when called.
func TrackFileOp(operation, backend string) func() {
	start := time.Now()
	return func() {
		FileStoreLatency.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
	}
}
