package texcache

import "github.com/prometheus/client_golang/prometheus"

var (
	// Each Cache adds its own deltas, so the gauge is the sum over every
	// live cache in the process.
	entriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mangad",
		Subsystem: "texcache",
		Name:      "entries",
		Help:      "Textures currently cached, summed over all caches",
	})

	evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mangad",
		Subsystem: "texcache",
		Name:      "evictions_total",
		Help:      "Textures evicted to stay within capacity",
	})
)

func init() {
	prometheus.MustRegister(entriesGauge, evictionsTotal)
}
