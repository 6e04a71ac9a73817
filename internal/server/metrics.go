package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopchat",
		Name:      "chat_requests_total",
		Help:      "Chat requests by outcome.",
	}, []string{"outcome"})

	chatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shopchat",
		Name:      "chat_duration_seconds",
		Help:      "End-to-end answer latency.",
		Buckets:   prometheus.DefBuckets,
	})

	retrievedSources = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shopchat",
		Name:      "chat_sources_per_answer",
		Help:      "Passages attributed per answer.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 10},
	})

	reindexRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopchat",
		Name:      "reindex_runs_total",
		Help:      "Background reindex runs by outcome.",
	}, []string{"outcome"})
)
