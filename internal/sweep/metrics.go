// internal/sweep/metrics.go
package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sweepsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubhouse",
		Subsystem: "sweep",
		Name:      "runs_started_total",
		Help:      "Number of sweep runs started.",
	})

	sweepsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubhouse",
		Subsystem: "sweep",
		Name:      "runs_completed_total",
		Help:      "Number of sweep runs completed, by outcome.",
	}, []string{"outcome"})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clubhouse",
		Subsystem: "sweep",
		Name:      "run_duration_seconds",
		Help:      "Duration of sweep runs.",
		Buckets:   prometheus.DefBuckets,
	})

	effectsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubhouse",
		Subsystem: "sweep",
		Name:      "effects_applied_total",
		Help:      "Number of deferred change-request effects applied by sweeps.",
	})
)

// RegisterMetrics registers the sweep metrics with the given registry.
func RegisterMetrics(reg *prometheus.Registry) error {
	metrics := []prometheus.Collector{
		sweepsStarted,
		sweepsCompleted,
		sweepDuration,
		effectsApplied,
	}
	for _, metric := range metrics {
		if err := reg.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

func reportSweepStarted() {
	sweepsStarted.Inc()
}

func reportSweepCompleted(duration time.Duration, applied int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	sweepsCompleted.WithLabelValues(outcome).Inc()
	sweepDuration.Observe(duration.Seconds())
	effectsApplied.Add(float64(applied))
}
