package symbols

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mnemo_symbols_analyze_seconds",
		Help:    "Wall time of symbol analysis runs.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
	})

	slowAnalyses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_symbols_slow_analyses_total",
		Help: "Analyze calls that exceeded the 50ms soft latency budget.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_symbols_cache_hits_total",
		Help: "Analyses served from the fingerprint cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_symbols_cache_misses_total",
		Help: "Analyses recomputed on cache miss or forced refresh.",
	})
)
