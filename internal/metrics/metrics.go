// Package metrics holds the process-wide Prometheus collectors this
// server exposes on its metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal tracks total DNS queries processed, by record type,
	// response code, and transport.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudresolve_queries_total",
		Help: "Total number of DNS queries processed",
	}, []string{"qtype", "rcode", "protocol"})

	// QueryDuration tracks query handling time, from the start of parsing
	// the request to the serialized response; the socket write of the
	// reply is not included.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cloudresolve_query_duration_seconds",
		Help:    "Histogram of query processing duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"protocol"})

	// CacheOperations tracks the optional cache adapter's hits and misses.
	// It stays at zero for the lifetime of the process when no cache is
	// configured.
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudresolve_cache_operations_total",
		Help: "Total number of cache hits, misses, and stores",
	}, []string{"backend", "result"})

	// WorkerPoolQueueDepth tracks how many tasks are currently queued,
	// waiting for a free worker.
	WorkerPoolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cloudresolve_worker_pool_queue_depth",
		Help: "Number of tasks currently queued in the worker pool",
	})

	// WorkerPoolActive tracks how many workers are currently executing a
	// task.
	WorkerPoolActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cloudresolve_worker_pool_active",
		Help: "Number of workers currently executing a task",
	})

	// TransportExchanges tracks outbound exchanges made by the transport
	// client, by transport and outcome.
	TransportExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudresolve_transport_exchanges_total",
		Help: "Total number of outbound transport exchanges",
	}, []string{"protocol", "outcome"})
)
