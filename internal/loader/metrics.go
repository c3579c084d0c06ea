package loader

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "requests_total",
			Help:      "Load requests offered to the decode queue",
		},
		[]string{"result"},
	)

	decodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "decodes_total",
			Help:      "Decode attempts by outcome",
		},
		[]string{"result"},
	)

	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding a single item",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 12),
		},
		[]string{"kind"},
	)

	resultsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "results_dropped_total",
			Help:      "Decoded results discarded before reaching the owner",
		},
		[]string{"reason"},
	)

	generationBumpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "generation_bumps_total",
			Help:      "Generation increments by cause",
		},
		[]string{"kind"},
	)

	dimensionProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mangad",
			Subsystem: "loader",
			Name:      "dimension_probes_total",
			Help:      "Header-only dimension probes by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, decodesTotal, decodeDuration, resultsDroppedTotal, generationBumpsTotal, dimensionProbesTotal)
}
