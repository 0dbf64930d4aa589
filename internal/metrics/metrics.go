package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SendOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studymate_send_outcomes_total",
			Help: "Chat sends by terminal outcome.",
		},
		[]string{"outcome"},
	)

	SnapshotsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studymate_stream_snapshots_total",
			Help: "Cumulative text snapshots applied to in-flight model messages.",
		},
	)

	PersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studymate_persist_duration_seconds",
			Help:    "Time spent writing a full state snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studymate_persist_failures_total",
			Help: "Full state snapshot writes that returned an error.",
		},
	)

	RenderCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studymate_render_cache_lookups_total",
			Help: "Render cache lookups by result.",
		},
		[]string{"result"},
	)

	ArchivedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studymate_archived_messages_total",
			Help: "Archive events by stage and result.",
		},
		[]string{"stage", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		SendOutcomes,
		SnapshotsApplied,
		PersistDuration,
		PersistFailures,
		RenderCache,
		ArchivedMessages,
	)
}
