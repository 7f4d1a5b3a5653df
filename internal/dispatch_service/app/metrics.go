package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "jobs_processed_total",
			Help:      "Queue jobs processed by outcome.",
		},
		[]string{"destination", "outcome"},
	)
	jobDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "job_duration_seconds",
			Help:      "Duration of job execution attempts.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"destination"},
	)
	queueDepthGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dispatch",
			Name:      "queue_depth",
			Help:      "Live jobs on the queue at the last poll.",
		},
	)
	deadLetterDepthGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dispatch",
			Name:      "dead_letter_depth",
			Help:      "Jobs on the dead-letter list at the last poll.",
		},
	)
)
