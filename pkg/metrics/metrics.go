// Package metrics provides Prometheus metrics for the Wisteria service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MergesTotal tracks merge operations by entity kind and outcome
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "merge",
			Name:      "operations_total",
			Help:      "Total number of merge operations by entity and status",
		},
		[]string{"entity", "status"},
	)

	// MergeDuration tracks merge transaction duration in seconds
	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wisteria",
			Subsystem: "merge",
			Name:      "duration_seconds",
			Help:      "Duration of merge operations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"entity"},
	)

	// RevertsTotal tracks revert operations by entity kind and outcome
	RevertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "merge",
			Name:      "reverts_total",
			Help:      "Total number of revert operations by entity and status",
		},
		[]string{"entity", "status"},
	)

	// MergeLockWait tracks time spent acquiring building locks before a merge
	MergeLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wisteria",
			Subsystem: "merge",
			Name:      "lock_wait_seconds",
			Help:      "Time spent acquiring merge locks in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	// DuplicateScansTotal tracks duplicate scans by cache outcome
	DuplicateScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "dedup",
			Name:      "scans_total",
			Help:      "Total number of duplicate scans by cache outcome",
		},
		[]string{"cache"},
	)

	// DuplicateScanDuration tracks duplicate scan duration in seconds
	DuplicateScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wisteria",
			Subsystem: "dedup",
			Name:      "scan_duration_seconds",
			Help:      "Duration of duplicate scans in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// DuplicateGroupsFound tracks how many groups each scan returned
	DuplicateGroupsFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wisteria",
			Subsystem: "dedup",
			Name:      "groups_found",
			Help:      "Number of duplicate groups returned per scan",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// ListingsIngestedTotal tracks consumed listing events by outcome
	ListingsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "ingest",
			Name:      "listings_total",
			Help:      "Total number of listing events processed by outcome",
		},
		[]string{"status"},
	)

	// BuildingsCreatedTotal tracks buildings created by the ingest pipeline
	BuildingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "ingest",
			Name:      "buildings_created_total",
			Help:      "Total number of buildings created from scraped listings",
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wisteria",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// KafkaMessagesConsumed tracks Kafka messages consumed by outcome
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisteria",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka by outcome",
		},
		[]string{"topic", "status"},
	)
)

// RecordMerge records a merge operation metric
func RecordMerge(entity, status string, durationSeconds float64) {
	MergesTotal.WithLabelValues(entity, status).Inc()
	MergeDuration.WithLabelValues(entity).Observe(durationSeconds)
}

// RecordRevert records a revert operation metric
func RecordRevert(entity, status string) {
	RevertsTotal.WithLabelValues(entity, status).Inc()
}

// RecordDuplicateScan records a duplicate scan metric
func RecordDuplicateScan(cache string, durationSeconds float64, groups int) {
	DuplicateScansTotal.WithLabelValues(cache).Inc()
	DuplicateScanDuration.Observe(durationSeconds)
	DuplicateGroupsFound.Observe(float64(groups))
}

// RecordIngest records a listing ingest outcome
func RecordIngest(status string) {
	ListingsIngestedTotal.WithLabelValues(status).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordKafkaConsume records a Kafka consume outcome
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}
