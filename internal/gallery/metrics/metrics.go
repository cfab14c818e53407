package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal tracks finished generation requests by outcome.
	// Outcome is "success" or the structured error kind.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_generations_total",
			Help: "Total number of design generation requests",
		},
		[]string{"outcome"},
	)

	// GenerationDuration tracks end-to-end generation latency.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_generation_duration_seconds",
			Help:    "Design generation latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		},
	)

	// RateLimitRejections tracks admissions refused by the sliding window.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_rate_limit_rejections_total",
			Help: "Total number of rate-limited generation requests",
		},
	)

	// DesignsSaved tracks designs persisted to the repository.
	DesignsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_designs_saved_total",
			Help: "Total number of designs saved",
		},
	)
)
