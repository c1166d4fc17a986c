// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics defines the Prometheus metrics of vastplay. Labels stay
// bounded: no session ids, ad tags or URLs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_vast_resolutions_total",
		Help: "Ad tag resolutions by outcome and VAST error code (0 on success)",
	}, []string{"outcome", "code"})

	candidateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_vast_candidate_failures_total",
		Help: "Waterfall candidates abandoned, by VAST error code",
	}, []string{"code"})

	wrapperDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vastplay_vast_chain_length",
		Help:    "Length of successfully resolved ad chains",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vastplay_vast_fetch_duration_seconds",
		Help:    "Latency of ad tag document fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	documentCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_vast_document_cache_total",
		Help: "Ad tag document cache lookups by result (hit, miss)",
	}, []string{"result"})
)

// RecordResolution counts a finished resolution. code is 0 on success.
func RecordResolution(outcome string, code int, chainLen int) {
	resolutionsTotal.WithLabelValues(outcome, strconv.Itoa(code)).Inc()
	if code == 0 && chainLen > 0 {
		wrapperDepth.Observe(float64(chainLen))
	}
}

// RecordCandidateFailure counts a waterfall candidate that did not yield a chain.
func RecordCandidateFailure(code int) {
	candidateFailures.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveFetch records the latency of a single document fetch.
func ObserveFetch(result string, d time.Duration) {
	fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

// RecordDocumentCache records a document cache lookup.
func RecordDocumentCache(hit bool) {
	if hit {
		documentCache.WithLabelValues("hit").Inc()
		return
	}
	documentCache.WithLabelValues("miss").Inc()
}
