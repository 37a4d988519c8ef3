// Package metrics, Prometheus sayaçlarını tanımlar ve varsayılan registry'ye kaydeder.
// /metrics endpoint'i promhttp.Handler() ile bu değerleri sunar.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pwachat"

var (
	MessagesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_appended_total",
		Help:      "Messages committed to the store.",
	})

	ReadsMarked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "read_receipts_total",
		Help:      "Message ids included in committed markRead calls.",
	})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Events fanned out by the broker.",
	}, []string{"channel", "event"})

	PublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Broadcasts that failed after a successful commit.",
	}, []string{"event"})

	SubscriptionsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscriptions_dropped_total",
		Help:      "Subscribers dropped because their buffer was full.",
	}, []string{"channel"})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_rate_limited_total",
		Help:      "Send requests rejected by the per-participant limiter.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		MessagesAppended,
		ReadsMarked,
		EventsPublished,
		PublishFailures,
		SubscriptionsDropped,
		WSConnections,
		RateLimited,
		HTTPRequests,
		HTTPDuration,
	)
}

// Handler, /metrics için Prometheus text exposition handler'ı.
func Handler() http.Handler {
	return promhttp.Handler()
}
