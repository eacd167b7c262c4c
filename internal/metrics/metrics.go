// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"sync"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	eventsIngestedCounter     prometheus.Counter
	eventsDeliveredCounter    prometheus.Counter
	eventsDiscardedCounter    prometheus.Counter
	eventsDroppedCounter      prometheus.Counter
	eventsDeadLetteredCounter *prometheus.CounterVec
	deliveryAttemptsCounter   *prometheus.CounterVec
	deliveryDurationMetric    prometheus.Histogram
	queueDepthGauge           prometheus.Gauge
	backendReconnectsCounter  prometheus.Counter
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		eventsIngestedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_events_ingested_total",
				Help: "Total number of events pulled from the backend.",
			},
		)

		eventsDeliveredCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_events_delivered_total",
				Help: "Total number of events acknowledged by the callback.",
			},
		)

		eventsDiscardedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_events_discarded_total",
				Help: "Total number of events discarded because no callback URL is configured.",
			},
		)

		eventsDroppedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_events_dropped_total",
				Help: "Total number of events dropped because the delivery queue was full.",
			},
		)

		eventsDeadLetteredCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_events_dead_lettered_total",
				Help: "Total number of dead-lettered events by reason.",
			},
			[]string{"reason"},
		)

		deliveryAttemptsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_delivery_attempts_total",
				Help: "Total number of callback delivery attempts by outcome.",
			},
			[]string{"outcome"},
		)

		deliveryDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_delivery_duration_seconds",
				Help:    "Duration of callback delivery attempts in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		queueDepthGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_queue_depth",
				Help: "Number of events currently waiting in the delivery queue.",
			},
		)

		backendReconnectsCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_backend_reconnects_total",
				Help: "Total number of backend reconnect attempts after a transport failure.",
			},
		)

		prometheus.MustRegister(
			eventsIngestedCounter,
			eventsDeliveredCounter,
			eventsDiscardedCounter,
			eventsDroppedCounter,
			eventsDeadLetteredCounter,
			deliveryAttemptsCounter,
			deliveryDurationMetric,
			queueDepthGauge,
			backendReconnectsCounter,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, reason := range []string{
			domain.DeadLetterRejected,
			domain.DeadLetterExhausted,
			domain.DeadLetterShutdown,
			domain.DeadLetterOverflow,
		} {
			eventsDeadLetteredCounter.WithLabelValues(reason)
		}

		for _, outcome := range []string{"success", "retryable", "rejected"} {
			deliveryAttemptsCounter.WithLabelValues(outcome)
		}
	})
}

func IncEventsIngested() {
	Init()
	eventsIngestedCounter.Inc()
}

func IncEventsDelivered() {
	Init()
	eventsDeliveredCounter.Inc()
}

func IncEventsDiscarded() {
	Init()
	eventsDiscardedCounter.Inc()
}

func IncEventsDropped() {
	Init()
	eventsDroppedCounter.Inc()
}

func IncEventsDeadLettered(reason string) {
	Init()
	eventsDeadLetteredCounter.WithLabelValues(reason).Inc()
}

func IncDeliveryAttempt(outcome string) {
	Init()
	deliveryAttemptsCounter.WithLabelValues(outcome).Inc()
}

func ObserveDeliveryDuration(d time.Duration) {
	Init()
	deliveryDurationMetric.Observe(d.Seconds())
}

func SetQueueDepth(depth int) {
	Init()
	queueDepthGauge.Set(float64(depth))
}

func IncBackendReconnects() {
	Init()
	backendReconnectsCounter.Inc()
}
