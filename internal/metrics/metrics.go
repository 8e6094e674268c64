// Package metrics holds the Prometheus collectors for the backend API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	diagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netdiag",
			Name:      "diagnoses_total",
			Help:      "Total number of diagnose requests handled, partitioned by local TCP status.",
		},
		[]string{"tcp_status"},
	)

	diagnoseSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "netdiag",
			Name:      "diagnose_seconds",
			Help:      "Local check latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	measurementPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netdiag",
			Name:      "measurement_polls_total",
			Help:      "Total number of measurement summary requests served.",
		},
	)
)

// Register attaches the netdiag collectors to reg. Registering twice is
// tolerated so tests can share the default registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		diagnosesTotal,
		diagnoseSeconds,
		measurementPollsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDiagnose records one handled diagnose request.
func ObserveDiagnose(duration time.Duration, tcpStatus string) {
	diagnosesTotal.WithLabelValues(tcpStatus).Inc()
	if duration < 0 {
		duration = 0
	}
	diagnoseSeconds.Observe(duration.Seconds())
}

// IncMeasurementPoll records one served measurement summary request.
func IncMeasurementPoll() {
	measurementPollsTotal.Inc()
}
