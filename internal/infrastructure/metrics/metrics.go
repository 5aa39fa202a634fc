package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the goldroom collectors.
	Registry = prometheus.NewRegistry()

	primaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "primary_total",
			Help:      "Gold price events by outcome.",
		},
		[]string{"result"},
	)

	secondaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "secondary_total",
			Help:      "USD/IDR fetch results by outcome.",
		},
		[]string{"result"},
	)

	broadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to subscribers.",
		},
	)

	prunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "subscribers_pruned_total",
			Help:      "Subscribers dropped after a failed send.",
		},
	)

	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "goldroom",
			Name:      "subscribers",
			Help:      "Currently registered subscribers.",
		},
	)

	persistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "persist_errors_total",
			Help:      "Failed state writes.",
		},
	)

	feedConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goldroom",
			Name:      "feed_connects_total",
			Help:      "Push feed dial attempts by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		primaryTotal,
		secondaryTotal,
		broadcastsTotal,
		prunedTotal,
		subscribers,
		persistErrors,
		feedConnects,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Recorder implements coordinator.Recorder on the package collectors.
type Recorder struct{}

func (Recorder) PrimaryResult(result string) { primaryTotal.WithLabelValues(result).Inc() }

func (Recorder) SecondaryResult(result string) { secondaryTotal.WithLabelValues(result).Inc() }

func (Recorder) Broadcast(pruned int) {
	broadcastsTotal.Inc()
	if pruned > 0 {
		prunedTotal.Add(float64(pruned))
	}
}

func (Recorder) Subscribers(n int) { subscribers.Set(float64(n)) }

func (Recorder) PersistError() { persistErrors.Inc() }

// FeedConnect counts one push feed dial; ok is false when the dial failed.
func FeedConnect(ok bool) {
	if ok {
		feedConnects.WithLabelValues("ok").Inc()
		return
	}
	feedConnects.WithLabelValues("error").Inc()
}
