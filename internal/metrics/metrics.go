// Package metrics holds the Prometheus collectors shared by the persona
// services and adapters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "persona"

// Registry is the registry every collector below is registered with.
var Registry = prometheus.NewRegistry()

var (
	// UpstreamAttempts counts social API attempts by operation and outcome.
	UpstreamAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "attempts_total",
		Help:      "Social API request attempts by operation and outcome.",
	}, []string{"operation", "outcome"})

	// UpstreamLatency observes per-attempt latency.
	UpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "attempt_duration_seconds",
		Help:      "Social API attempt latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// CacheLookups counts cache reads by namespace and result (hit, miss, expired, corrupt, collision).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by namespace and result.",
	}, []string{"namespace", "result"})

	// CacheEvictions counts records removed by eviction or sweep.
	CacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Cache records removed, by reason.",
	}, []string{"reason"})

	// Answers counts answers by path (direct, generated, fallback).
	Answers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "answer",
		Name:      "total",
		Help:      "Answers produced, by path.",
	}, []string{"path"})

	// DocsChunks reports the number of chunks in the loaded docs index.
	DocsChunks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "docs",
		Name:      "chunks",
		Help:      "Chunks in the loaded documentation index.",
	})

	// DocsIngests counts docs ingestion attempts by outcome.
	DocsIngests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "docs",
		Name:      "ingests_total",
		Help:      "Documentation ingestion attempts by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		UpstreamAttempts,
		UpstreamLatency,
		CacheLookups,
		CacheEvictions,
		Answers,
		DocsChunks,
		DocsIngests,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
