// Package observability registers service-level Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scheduledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schedule_service",
		Subsystem: "engine",
		Name:      "activities_scheduled_total",
		Help:      "Number of activities accepted and persisted, one per expanded day.",
	})

	conflictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schedule_service",
		Subsystem: "engine",
		Name:      "conflicts_detected_total",
		Help:      "Number of requests rejected with a scheduling conflict, labeled by whether an adjacent slot could be suggested.",
	}, []string{"suggestion"})

	previewCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schedule_service",
		Subsystem: "engine",
		Name:      "previews_total",
		Help:      "Number of draft previews evaluated without persistence.",
	})
)

func init() {
	prometheus.MustRegister(scheduledCounter, conflictCounter, previewCounter)
}

// RecordScheduled counts accepted candidates after a successful persist.
func RecordScheduled(count int) {
	scheduledCounter.Add(float64(count))
}

// RecordConflict counts a rejected request; suggested marks whether the
// slot heuristic produced an alternative.
func RecordConflict(suggested bool) {
	outcome := "none"
	if suggested {
		outcome = "offered"
	}
	conflictCounter.WithLabelValues(outcome).Inc()
}

// RecordPreview counts a live draft evaluation.
func RecordPreview() {
	previewCounter.Inc()
}
