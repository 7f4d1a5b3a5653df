package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "messages_received_total",
			Help:      "Total inbound messages entering the pipeline.",
		},
		[]string{"content_type"},
	)
	messagesProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "messages_processed_total",
			Help:      "Pipeline outcomes per destination.",
		},
		[]string{"destination", "outcome"}, // outcome: enqueued, ignored, duplicate, error
	)
	pipelineDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of the producer pipeline per message.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"destination"},
	)
)
