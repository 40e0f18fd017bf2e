// Package metrics provides Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
)

var (
	// ProbeRequests counts liveness probes by kind (stream, logo) and outcome (reachable, failed).
	ProbeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iplive",
			Subsystem: "probe",
			Name:      "requests_total",
			Help:      "Number of URL liveness probes.",
		},
		[]string{"kind", "outcome"},
	)
	// ProbeDuration reports how long liveness probes take.
	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iplive",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of URL liveness probes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		},
		[]string{"kind"},
	)
	// ExposedChannels tracks the number of channels served to players.
	ExposedChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iplive",
			Subsystem: "channels",
			Name:      "total",
			Help:      "Number of channels in the served playlist.",
		},
	)
	// ActiveSessions tracks the number of open player sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iplive",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of active player sessions.",
		},
	)
	// StreamRedirects counts stream requests by result.
	StreamRedirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iplive",
			Subsystem: "streams",
			Name:      "redirects_total",
			Help:      "Number of stream redirect requests.",
		},
		[]string{"result"},
	)
)

// nolint
func init() {
	prometheus.MustRegister(version.NewCollector("iplive"))
	prometheus.MustRegister(ProbeRequests)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(ExposedChannels)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(StreamRedirects)
}
