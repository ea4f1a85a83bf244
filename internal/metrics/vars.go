package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickwatch_polls_total",
		Help: "Pool polls by outcome",
	}, []string{"pool", "outcome"})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickwatch_fetch_errors_total",
		Help: "Failed pool fetches by error kind",
	}, []string{"pool", "kind"})

	Alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tickwatch_alerts_total",
		Help: "Alerts raised by kind",
	}, []string{"pool", "kind"})

	CurrentTick = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tickwatch_current_tick",
		Help: "Last observed tick",
	}, []string{"pool"})

	RangeLower = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tickwatch_range_lower_tick",
		Help: "Lower bound of the range holding the last observed tick",
	}, []string{"pool"})

	FetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickwatch_fetch_latency_seconds",
		Help:    "Time to fetch one pool snapshot, retries included",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tickwatch_notifications_sent_total",
		Help: "Chat messages delivered",
	})

	NotificationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tickwatch_notifications_failed_total",
		Help: "Chat messages dropped after all retries",
	})
)

func init() {
	prometheus.MustRegister(
		Polls,
		FetchErrors,
		Alerts,
		CurrentTick,
		RangeLower,
		FetchLatency,
		NotificationsSent,
		NotificationsFailed,
	)
}
